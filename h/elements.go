package h

import (
	gh "maragu.dev/gomponents/html"
)

func Div(children ...H) H    { return gh.Div(retype(children)...) }
func P(children ...H) H      { return gh.P(retype(children)...) }
func Span(children ...H) H   { return gh.Span(retype(children)...) }
func H1(children ...H) H     { return gh.H1(retype(children)...) }
func A(children ...H) H      { return gh.A(retype(children)...) }
func Button(children ...H) H { return gh.Button(retype(children)...) }
func Script(children ...H) H { return gh.Script(retype(children)...) }
func Meta(children ...H) H   { return gh.Meta(retype(children)...) }
func Link(children ...H) H   { return gh.Link(retype(children)...) }
func Main(children ...H) H   { return gh.Main(retype(children)...) }
func Nav(children ...H) H    { return gh.Nav(retype(children)...) }

func ID(v string) H    { return gh.ID(v) }
func Class(v string) H { return gh.Class(v) }
func Href(v string) H  { return gh.Href(v) }
func Src(v string) H   { return gh.Src(v) }
func Type(v string) H  { return gh.Type(v) }
func Rel(v string) H   { return gh.Rel(v) }

// Data creates a data-name attribute, the hook Datastar reads its
// expressions from.
//
// Example:
//
//	h.Button(h.Data("on:click", "@get('/_event/inc/click')"))
func Data(name, v string) H { return gh.Data(name, v) }
