package page

import (
	"github.com/ryanhamamura/mvi/h"
	"github.com/ryanhamamura/mvi/router"
	"github.com/ryanhamamura/mvi/state"
	"github.com/ryanhamamura/mvi/stream"
)

const (
	incSelector = "inc"
	decSelector = "dec"
)

// Counter shows the shared count under the page title, with buttons to
// increment and decrement it.
func Counter(src Sources, in Inputs) Component {
	return Component{
		View:   counterView(src, in),
		Change: counterIntent(src),
	}
}

// counterIntent maps clicks on the increment button to +1 and on the
// decrement button to -1.
func counterIntent(src Sources) *stream.Stream[int] {
	inc := stream.MapTo(src.DOM.Select(incSelector).Events("click"), 1)
	dec := stream.MapTo(src.DOM.Select(decSelector).Events("click"), -1)
	return stream.Merge(inc, dec)
}

func counterView(src Sources, in Inputs) *stream.Stream[h.H] {
	props := in.Props
	if props == nil {
		props = stream.Hold(Props{})
	}
	inc := src.DOM.Select(incSelector)
	dec := src.DOM.Select(decSelector)

	return stream.Map(stream.Combine(props, in.State), func(v stream.Pair[Props, state.Snapshot]) h.H {
		return h.Div(h.Class("child"),
			h.Div(h.Text(v.First.Title)),
			h.Div(h.Textf("Current count: %d", v.Second.Count())),
			h.Button(h.Class(incSelector), inc.OnClick(), h.Text("+")),
			h.Button(h.Class(decSelector), dec.OnClick(), h.Text("-")),
			h.Div(router.Link("/", h.Text("Back to root"))),
		)
	})
}
