package page

import (
	"github.com/ryanhamamura/mvi/h"
	"github.com/ryanhamamura/mvi/router"
	"github.com/ryanhamamura/mvi/state"
	"github.com/ryanhamamura/mvi/stream"
)

// Home shows the shared count and links to the counter pages. It has no
// user-triggered changes.
func Home(_ Sources, in Inputs) Component {
	return Component{
		View: stream.Map(in.State, func(s state.Snapshot) h.H {
			return h.Div(h.Class("root"),
				h.Div(h.Text("Root")),
				h.Div(h.Textf("Current count: %d", s.Count())),
				h.Div(router.Link("/page1", h.Text("Go to page 1"))),
				h.Div(router.Link("/page2", h.Text("Go to page 2"))),
			)
		}),
		Change: stream.Never[int](),
	}
}
