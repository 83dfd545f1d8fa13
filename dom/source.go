// Package dom is the event source handed to page components. Components
// select elements by class and get a stream of the events fired on them;
// the same selection renders the Datastar attribute that makes the browser
// report those events back to the server.
package dom

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ryanhamamura/mvi/h"
	"github.com/ryanhamamura/mvi/stream"
)

// ErrInvalidSelector is returned for selectors or event names that are not
// made of letters, digits, dashes and underscores.
var ErrInvalidSelector = errors.New("dom: selectors and event names must only contain alphanum, dashes and underscores")

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// EventPath is the URL prefix events are reported to.
const EventPath = "/_event/"

// Event is one interaction reported by the browser.
type Event struct {
	Selector string
	Type     string
}

type key struct {
	selector string
	typ      string
}

// Source routes browser events to the streams components subscribed to.
// Like every stream, it is not safe for concurrent use.
type Source struct {
	subjects map[key]*stream.Stream[Event]
}

// NewSource returns an empty Source.
func NewSource() *Source {
	return &Source{subjects: make(map[key]*stream.Stream[Event])}
}

// Select scopes the source to elements carrying the given class. A leading
// dot is accepted, so ".inc" and "inc" select the same elements.
func (s *Source) Select(selector string) Selection {
	return Selection{src: s, selector: strings.TrimPrefix(selector, ".")}
}

// Emit delivers an event to the current listeners of (selector, typ). It
// reports whether anyone was listening.
func (s *Source) Emit(selector, typ string) (bool, error) {
	selector = strings.TrimPrefix(selector, ".")
	if err := validate(selector, typ); err != nil {
		return false, err
	}
	subj, ok := s.subjects[key{selector, typ}]
	if !ok || subj.Listeners() == 0 {
		return false, nil
	}
	subj.Emit(Event{Selector: selector, Type: typ})
	return true, nil
}

// Listening returns the number of listeners on (selector, typ).
func (s *Source) Listening(selector, typ string) int {
	subj, ok := s.subjects[key{strings.TrimPrefix(selector, "."), typ}]
	if !ok {
		return 0
	}
	return subj.Listeners()
}

func (s *Source) subject(k key) *stream.Stream[Event] {
	subj, ok := s.subjects[k]
	if !ok {
		subj = stream.New[Event]()
		s.subjects[k] = subj
	}
	return subj
}

func validate(selector, typ string) error {
	if !namePattern.MatchString(selector) {
		return fmt.Errorf("%w: selector %q", ErrInvalidSelector, selector)
	}
	if !namePattern.MatchString(typ) {
		return fmt.Errorf("%w: event %q", ErrInvalidSelector, typ)
	}
	return nil
}

// Selection is a Source scoped to one class of elements.
type Selection struct {
	src      *Source
	selector string
}

// Selector returns the class this selection matches.
func (sel Selection) Selector() string {
	return sel.selector
}

// Err reports whether the selection can be used with the given event type.
func (sel Selection) Err(typ string) error {
	return validate(sel.selector, typ)
}

// Events returns the stream of typ events fired on the selected elements.
// An invalid selection yields a stream that never emits.
func (sel Selection) Events(typ string) *stream.Stream[Event] {
	if sel.Err(typ) != nil {
		return stream.Never[Event]()
	}
	return sel.src.subject(key{sel.selector, typ})
}

// On returns the attribute that reports typ events on an element to the
// server. It renders nothing for an invalid selection.
//
// Example:
//
//	inc := src.Select(".inc")
//	h.Button(h.Class("inc"), inc.On("click"), h.Text("+"))
func (sel Selection) On(typ string, options ...TriggerOption) h.H {
	if sel.Err(typ) != nil {
		return nil
	}
	opts := applyOptions(options...)
	return h.Data("on:"+typ+opts.modifiers(), fmt.Sprintf("@get('%s')", EventURL(sel.selector, typ)))
}

// OnClick is shorthand for On("click").
func (sel Selection) OnClick(options ...TriggerOption) h.H {
	return sel.On("click", options...)
}

// EventURL returns the URL events of typ on selector are reported to.
func EventURL(selector, typ string) string {
	return EventPath + selector + "/" + typ
}
