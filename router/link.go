package router

import (
	"fmt"
	"strings"

	"github.com/ryanhamamura/mvi/h"
)

// NavPath is the URL prefix in-app navigation requests are sent to.
const NavPath = "/_nav/"

// NavURL returns the URL that navigates the current runtime to href without
// reloading the document.
func NavURL(href string) string {
	return NavPath + strings.TrimPrefix(Clean(href), "/")
}

// Link renders an anchor to href whose clicks are captured and turned into
// in-app navigation. The href stays a real link, so opening it in a new tab
// or without scripts performs a full page load of the same route.
//
// Example:
//
//	router.Link("/page1", h.Text("Go to page 1"))
func Link(href string, children ...h.H) h.H {
	nodes := []h.H{
		h.Href(href),
		h.Data("on:click__prevent", fmt.Sprintf("@get('%s')", NavURL(href))),
	}
	return h.A(append(nodes, children...)...)
}
