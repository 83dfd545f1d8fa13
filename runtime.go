package mvi

import (
	"sync"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/ryanhamamura/mvi/dom"
	"github.com/ryanhamamura/mvi/h"
	"github.com/ryanhamamura/mvi/page"
	"github.com/ryanhamamura/mvi/router"
	"github.com/ryanhamamura/mvi/state"
	"github.com/ryanhamamura/mvi/stream"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// Route is the value registered for a URL pattern: the page to mount and
// the props it is mounted with.
type Route struct {
	Page  page.Page
	Props page.Props
}

// Runtime is the composition root of one browser tab. It owns the state
// tree, the router and the mounted page component for as long as the tab
// is open.
//
// Every entry point takes the runtime lock, so the streams inside a runtime
// only ever see one emission at a time, in arrival order.
type Runtime struct {
	id        string
	csrfToken string
	app       *App

	mu       sync.Mutex
	dom      *dom.Source
	router   *router.Router[Route]
	state    *stream.Stream[state.Snapshot]
	stateSub *stream.Subscription
	viewSub  *stream.Subscription
	snapshot state.Snapshot
	view     h.H
	route    string
	mounts   int
	disposed bool

	patchChan       chan patch
	ctxDisposedChan chan struct{}
	sseConnected    *atomic.Bool
	events          *atomic.Int64
	createdAt       time.Time
	eventLimiter    *rate.Limiter
}

func newRuntime(id string, a *App) *Runtime {
	rt := &Runtime{
		id:              id,
		csrfToken:       genCSRFToken(),
		app:             a,
		dom:             dom.NewSource(),
		patchChan:       make(chan patch, 8),
		ctxDisposedChan: make(chan struct{}),
		sseConnected:    atomic.NewBool(false),
		events:          atomic.NewInt64(0),
		createdAt:       time.Now(),
		eventLimiter:    newLimiter(a.eventRateLimit, defaultEventRate, defaultEventBurst),
	}
	rt.wire()
	return rt
}

// wire builds the stream graph. The change placeholder feeds the state
// store before any component exists; it starts forwarding the deltas of
// the mounted component once the component stream is attached to it.
func (rt *Runtime) wire() {
	change := stream.New[int]()
	rt.state = state.Model(state.Reducers(change, rt.app.reducers...))

	logger := rt.app.logger.With().Str(signalRuntimeID, rt.id).Logger()
	seeded := false
	rt.stateSub = stream.Debug(rt.state, logger, "state").Subscribe(func(s state.Snapshot) {
		rt.snapshot = s
		if seeded {
			rt.app.msink.IncrCounter(MetricStateTransitions, 1)
		}
		seeded = true
		rt.onSnapshot(s)
	})

	rt.router = router.New(rt.app.routes)
	components := stream.Remember(stream.Map(rt.router.Matches(), rt.mount))

	changes := stream.Flatten(stream.Map(components, func(c page.Component) *stream.Stream[int] {
		return c.Change
	}))
	if err := change.Imitate(changes); err != nil {
		rt.app.logErr(rt, "failed to attach component changes: %v", err)
	}

	views := stream.Flatten(stream.Map(components, func(c page.Component) *stream.Stream[h.H] {
		return c.View
	}))
	rt.viewSub = views.Subscribe(rt.render)
}

// mount instantiates the page of a freshly matched route. The previous
// component is released by Flatten before the new one is subscribed.
func (rt *Runtime) mount(m router.Match[Route]) page.Component {
	rt.route = m.Pattern
	rt.mounts++
	rt.app.logDebug(rt, "mounting page for route '%s'", m.Pattern)
	return rt.factory(m.Value)()
}

func (rt *Runtime) factory(r Route) func() page.Component {
	return func() page.Component {
		return r.Page(
			page.Sources{DOM: rt.dom},
			page.Inputs{State: rt.state, Props: stream.Hold(r.Props)},
		)
	}
}

func (rt *Runtime) onSnapshot(s state.Snapshot) {
	rt.app.msink.SetGauge(MetricStateCount, float32(s.Count()))
	if rt.app.pubsub == nil {
		return
	}
	if err := Publish(rt.app.pubsub, SnapshotSubject(rt.id), s); err != nil {
		rt.app.msink.IncrCounter(MetricSnapshotTapErrors, 1)
		rt.app.logWarn(rt, "snapshot tap publish failed: %v", err)
	}
}

func (rt *Runtime) render(n h.H) {
	rt.view = n
	rt.syncView()
}

func (rt *Runtime) wrap(n h.H) h.H {
	return h.Div(h.ID(rt.id), n)
}

func (rt *Runtime) syncView() {
	if !rt.sseConnected.Load() {
		return
	}
	html, err := h.String(rt.wrap(rt.view))
	if err != nil {
		rt.app.logErr(rt, "sync view failed: %v", err)
		return
	}
	rt.sendPatch(patch{patchTypeElements, html})
}

// sendPatch queues a patch for the SSE stream. Without a connection the
// patch is dropped; the current view is pushed again on connect. When the
// queue is full the oldest patch is dropped so the stream never blocks.
func (rt *Runtime) sendPatch(p patch) {
	if !rt.sseConnected.Load() {
		return
	}
	for {
		select {
		case rt.patchChan <- p:
			return
		default:
		}
		select {
		case <-rt.patchChan:
		default:
		}
	}
}

// ID returns the runtime id.
func (rt *Runtime) ID() string {
	return rt.id
}

// Navigate mounts the page registered for path. An unmatched path returns
// router.ErrNoRoute and keeps the current page mounted.
func (rt *Runtime) Navigate(path string) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.disposed {
		return ErrRuntimeDisposed
	}
	m, err := rt.router.Navigate(path)
	if err != nil {
		rt.app.msink.IncrCounter(MetricRouterMisses, 1)
		return err
	}
	rt.app.msink.IncrCounterWithLabels(MetricRouterNavigations, 1, []metrics.Label{LabelRoute.M(m.Pattern)})
	rt.sendPatch(patch{patchTypeReplaceURL, m.Path})
	return nil
}

// Dispatch delivers a browser event to the mounted component. It reports
// whether the component listens to it.
func (rt *Runtime) Dispatch(selector, typ string) (bool, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.disposed {
		return false, ErrRuntimeDisposed
	}
	delivered, err := rt.dom.Emit(selector, typ)
	if err != nil {
		rt.app.msink.IncrCounterWithLabels(MetricDOMEventsRejected, 1, []metrics.Label{LabelReason.M("invalid")})
		return false, err
	}
	rt.events.Inc()
	rt.app.msink.IncrCounter(MetricDOMEvents, 1)
	if !delivered {
		rt.app.logDebug(rt, "event '%s' on '%s' has no listener", typ, selector)
	}
	return delivered, nil
}

// Snapshot returns the current state.
func (rt *Runtime) Snapshot() state.Snapshot {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.snapshot
}

// View returns the current view, wrapped in the element patches target.
func (rt *Runtime) View() h.H {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.wrap(rt.view)
}

// Route returns the pattern of the mounted page, or "" before the first
// navigation.
func (rt *Runtime) Route() string {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.route
}

// Sync pushes the current view to the browser.
func (rt *Runtime) Sync() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.syncView()
}

// Dispose releases every subscription of the runtime and stops its SSE
// stream. It is safe to call more than once.
func (rt *Runtime) Dispose() {
	rt.mu.Lock()
	if rt.disposed {
		rt.mu.Unlock()
		return
	}
	rt.disposed = true
	rt.viewSub.Unsubscribe()
	rt.stateSub.Unsubscribe()
	rt.mu.Unlock()
	close(rt.ctxDisposedChan)
	rt.app.logDebug(rt, "runtime disposed after %d event(s)", rt.events.Load())
}
