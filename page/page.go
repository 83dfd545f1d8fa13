// Package page holds the page components of the application.
//
// A page component is a pure function of its sources (the DOM event source)
// and its inputs (the shared state stream, and props for pages that take
// them). It returns the stream of views to render and the stream of deltas
// its user produced. A component keeps no state of its own: whatever it
// shows is derived from its inputs, so recreating it never loses anything
// the state tree does not already hold.
package page

import (
	"github.com/ryanhamamura/mvi/dom"
	"github.com/ryanhamamura/mvi/h"
	"github.com/ryanhamamura/mvi/state"
	"github.com/ryanhamamura/mvi/stream"
)

// Sources are the drivers a component reads user input from.
type Sources struct {
	DOM *dom.Source
}

// Props are the route-specific values of a page.
type Props struct {
	Title string
}

// Inputs are the streams a component is rendered from. State and Props are
// remembered streams supplied by the caller.
type Inputs struct {
	State *stream.Stream[state.Snapshot]
	Props *stream.Stream[Props]
}

// Component is one instance of a page.
type Component struct {
	// View emits the view tree every time an input changes.
	View *stream.Stream[h.H]
	// Change emits the deltas caused by user interaction.
	Change *stream.Stream[int]
}

// Page builds a component instance.
type Page func(src Sources, in Inputs) Component
