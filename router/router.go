// Package router maps URL paths to route values and publishes the value of
// the current route as a remembered stream.
//
// Patterns are static paths whose segments may be {name} parameters, e.g.
// "/", "/page1" or "/users/{id}". Static segments win over parameters when
// two patterns match the same path.
package router

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/ryanhamamura/mvi/stream"
)

var (
	ErrNoRoute        = errors.New("router: no route matches path")
	ErrInvalidPattern = errors.New("router: invalid route pattern")
	ErrDuplicateRoute = errors.New("router: route already registered")
)

// Match is the result of matching a path against a Table.
type Match[V any] struct {
	Pattern string
	Path    string
	Params  map[string]string
	Value   V
}

// Param returns the value of the named path parameter, or "" if absent.
func (m Match[V]) Param(name string) string {
	return m.Params[name]
}

type route[V any] struct {
	pattern  string
	segments []string
	statics  int
	value    V
}

// Table is a static route table. It is built once, before serving, and
// read concurrently afterwards.
type Table[V any] struct {
	routes []route[V]
}

// NewTable returns an empty Table.
func NewTable[V any]() *Table[V] {
	return &Table[V]{}
}

// Add registers v under pattern.
func (t *Table[V]) Add(pattern string, v V) error {
	if !strings.HasPrefix(pattern, "/") {
		return fmt.Errorf("%w: %q must start with /", ErrInvalidPattern, pattern)
	}
	segs := split(pattern)
	statics := 0
	for _, s := range segs {
		if isParam(s) {
			if len(s) == 2 {
				return fmt.Errorf("%w: %q has an unnamed parameter", ErrInvalidPattern, pattern)
			}
			continue
		}
		if strings.ContainsAny(s, "{}") {
			return fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
		}
		statics++
	}
	for _, r := range t.routes {
		if r.pattern == pattern {
			return fmt.Errorf("%w: %q", ErrDuplicateRoute, pattern)
		}
	}
	t.routes = append(t.routes, route[V]{pattern: pattern, segments: segs, statics: statics, value: v})
	return nil
}

// Patterns returns the registered patterns in registration order.
func (t *Table[V]) Patterns() []string {
	out := make([]string, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r.pattern)
	}
	return out
}

// Match returns the route registered for path. Query strings and fragments
// are ignored, and so is a trailing slash.
func (t *Table[V]) Match(path string) (Match[V], error) {
	clean := Clean(path)
	u := split(clean)
	best := -1
	var params map[string]string
	for i, r := range t.routes {
		p, ok := extractParams(r.segments, u)
		if !ok {
			continue
		}
		if best < 0 || r.statics > t.routes[best].statics {
			best, params = i, p
		}
	}
	if best < 0 {
		return Match[V]{}, fmt.Errorf("%w: %q", ErrNoRoute, clean)
	}
	r := t.routes[best]
	return Match[V]{Pattern: r.pattern, Path: clean, Params: params, Value: r.value}, nil
}

// Clean normalizes a request path: it drops the query and fragment, makes
// the path absolute and removes a trailing slash.
func Clean(path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	if path == "" || path[0] != '/' {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

func split(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func isParam(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

func extractParams(pattern, path []string) (map[string]string, bool) {
	if len(pattern) != len(path) {
		return nil, false
	}
	params := make(map[string]string)
	for i := range pattern {
		if isParam(pattern[i]) {
			params[pattern[i][1:len(pattern[i])-1]] = path[i]
		} else if pattern[i] != path[i] {
			return nil, false
		}
	}
	return params, true
}

// Router publishes the current match of a Table.
type Router[V any] struct {
	table   *Table[V]
	matches *stream.Stream[Match[V]]
}

// New returns a Router over t that has not resolved any route yet.
func New[V any](t *Table[V]) *Router[V] {
	return &Router[V]{
		table:   t,
		matches: stream.NewMemory[Match[V]](),
	}
}

// Matches returns the remembered stream of matches, one per successful
// Navigate.
func (r *Router[V]) Matches() *stream.Stream[Match[V]] {
	return r.matches
}

// Navigate resolves path and publishes the match. On ErrNoRoute nothing is
// published and the current route stays in place.
func (r *Router[V]) Navigate(path string) (Match[V], error) {
	m, err := r.table.Match(path)
	if err != nil {
		return Match[V]{}, err
	}
	m.Params = maps.Clone(m.Params)
	r.matches.Emit(m)
	return m, nil
}

// Current returns the last published match.
func (r *Router[V]) Current() (Match[V], bool) {
	return r.matches.Current()
}
