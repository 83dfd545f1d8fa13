// Package mvi serves model-view-intent pages over HTTP.
//
// Pages are pure functions of an event source and input streams. Each
// browser tab gets a Runtime that folds the deltas produced by its mounted
// page into one immutable state tree and renders the page from it; views
// reach the browser as HTML over Server-Sent Events, and user interaction
// comes back as Datastar requests.
package mvi

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	ossignal "os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/rs/zerolog"
	"github.com/ryanhamamura/mvi/dom"
	"github.com/ryanhamamura/mvi/h"
	"github.com/ryanhamamura/mvi/page"
	"github.com/ryanhamamura/mvi/router"
	"github.com/ryanhamamura/mvi/state"
	"github.com/ryanhamamura/mvi/stream"
	"github.com/starfederation/datastar-go/datastar"
)

// DatastarCDN is the Datastar bundle documents load when no
// Options.DatastarContent is configured.
const DatastarCDN = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

const (
	signalRuntimeID = "mvi-ctx"
	signalCSRF      = "mvi-csrf"
)

// App is the root application.
// It manages page routing, runtimes and SSE connections for live updates.
type App struct {
	cfg                  Options
	mux                  *http.ServeMux
	server               *http.Server
	logger               zerolog.Logger
	routes               *router.Table[Route]
	runtimeRegistry      map[string]*Runtime
	runtimeRegistryMutex sync.RWMutex
	documentHeadIncludes []h.H
	documentFootIncludes []h.H
	pubsub               PubSub
	msink                metrics.MetricSink
	eventRateLimit       RateLimitConfig
	reducers             []state.Reducer
	datastarPath         string
	datastarContent      []byte
	datastarOnce         sync.Once
	reaperStop           chan struct{}
}

func (a *App) logEvent(evt *zerolog.Event, rt *Runtime) *zerolog.Event {
	if rt != nil && rt.id != "" {
		evt = evt.Str(signalRuntimeID, rt.id)
	}
	return evt
}

func (a *App) logFatal(format string, v ...any) {
	a.logEvent(a.logger.WithLevel(zerolog.FatalLevel), nil).Msgf(format, v...)
}

func (a *App) logErr(rt *Runtime, format string, v ...any) {
	a.logEvent(a.logger.Error(), rt).Msgf(format, v...)
}

func (a *App) logWarn(rt *Runtime, format string, v ...any) {
	a.logEvent(a.logger.Warn(), rt).Msgf(format, v...)
}

func (a *App) logInfo(rt *Runtime, format string, v ...any) {
	a.logEvent(a.logger.Info(), rt).Msgf(format, v...)
}

func (a *App) logDebug(rt *Runtime, format string, v ...any) {
	a.logEvent(a.logger.Debug(), rt).Msgf(format, v...)
}

func newConsoleLogger(level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger().Level(level)
}

// Config overrides the default configuration with the given options.
func (a *App) Config(cfg Options) {
	if cfg.Logger != nil {
		a.logger = *cfg.Logger
	} else if cfg.LogLevel != nil || cfg.DevMode != a.cfg.DevMode {
		level := zerolog.InfoLevel
		if cfg.LogLevel != nil {
			level = *cfg.LogLevel
		}
		if cfg.DevMode {
			a.logger = newConsoleLogger(level)
		} else {
			a.logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
		}
	}
	if cfg.DocumentTitle != "" {
		a.cfg.DocumentTitle = cfg.DocumentTitle
	}
	if cfg.Plugins != nil {
		for _, plugin := range cfg.Plugins {
			if plugin != nil {
				plugin(a)
			}
		}
	}
	if cfg.DevMode != a.cfg.DevMode {
		a.cfg.DevMode = cfg.DevMode
	}
	if cfg.ServerAddress != "" {
		a.cfg.ServerAddress = cfg.ServerAddress
	}
	if cfg.DatastarContent != nil {
		a.datastarContent = cfg.DatastarContent
	}
	if cfg.DatastarPath != "" {
		a.datastarPath = cfg.DatastarPath
	}
	if cfg.PubSub != nil {
		a.pubsub = cfg.PubSub
	}
	if cfg.ContextTTL != 0 {
		a.cfg.ContextTTL = cfg.ContextTTL
	}
	if cfg.EventRateLimit.Rate != 0 || cfg.EventRateLimit.Burst != 0 {
		a.eventRateLimit = cfg.EventRateLimit
	}
	if cfg.MetricSink != nil {
		a.msink = cfg.MetricSink
	}
	if cfg.Reducers != nil {
		a.reducers = cfg.Reducers
	}
}

// AppendToHead appends the given h.H nodes to the head of the base HTML document.
// Useful for including css stylesheets and JS scripts.
func (a *App) AppendToHead(elements ...h.H) {
	for _, el := range elements {
		if el != nil {
			a.documentHeadIncludes = append(a.documentHeadIncludes, el)
		}
	}
}

// AppendToFoot appends the given h.H nodes to the end of the base HTML document body.
// Useful for including JS scripts.
func (a *App) AppendToFoot(elements ...h.H) {
	for _, el := range elements {
		if el != nil {
			a.documentFootIncludes = append(a.documentFootIncludes, el)
		}
	}
}

// Page registers a route pattern and the page mounted for it. The optional
// props are handed to every instance of the page through Inputs.Props.
//
// Example:
//
//	app.Page("/", page.Home)
//	app.Page("/page1", page.Counter, page.Props{Title: "Page 1"})
//
// Page panics if p panics or renders nothing, or if the pattern is invalid
// or already registered.
func (a *App) Page(pattern string, p page.Page, props ...page.Props) {
	a.ensureDatastarHandler()
	var pr page.Props
	if len(props) > 0 {
		pr = props[0]
	}
	route := Route{Page: p, Props: pr}
	// check for panics
	func() {
		defer func() {
			if err := recover(); err != nil {
				a.logFatal("failed to register page '%s' that panics: %v", pattern, err)
				panic(err)
			}
		}()
		checkRoute(route)
	}()
	if err := a.routes.Add(pattern, route); err != nil {
		a.logFatal("failed to register page: %v", err)
		panic(err)
	}
}

// checkRoute mounts a throwaway instance of the page and requires it to
// render at least once.
func checkRoute(r Route) {
	if r.Page == nil {
		panic("nil page")
	}
	c := r.Page(
		page.Sources{DOM: dom.NewSource()},
		page.Inputs{State: stream.Hold(state.Default()), Props: stream.Hold(r.Props)},
	)
	if c.View == nil {
		panic("page has no view")
	}
	rendered := false
	sub := c.View.Subscribe(func(h.H) { rendered = true })
	sub.Unsubscribe()
	if !rendered {
		panic("page view rendered nothing")
	}
}

func (a *App) newRuntime() *Runtime {
	return newRuntime("rt-"+genRandID(), a)
}

func (a *App) registerRuntime(rt *Runtime) {
	a.runtimeRegistryMutex.Lock()
	defer a.runtimeRegistryMutex.Unlock()
	if rt == nil {
		a.logErr(rt, "failed to add nil runtime to registry")
		return
	}
	a.runtimeRegistry[rt.id] = rt
	a.msink.SetGauge(MetricRuntimes, float32(len(a.runtimeRegistry)))
	a.logDebug(rt, "new runtime added to registry")
	a.logDebug(nil, "number of runtimes in registry: %d", len(a.runtimeRegistry))
}

func (a *App) cleanupRuntime(rt *Runtime) {
	rt.Dispose()
	a.unregisterRuntime(rt)
}

func (a *App) unregisterRuntime(rt *Runtime) {
	if rt.id == "" {
		a.logErr(rt, "unregister runtime failed: runtime contains empty id")
		return
	}
	a.runtimeRegistryMutex.Lock()
	defer a.runtimeRegistryMutex.Unlock()
	delete(a.runtimeRegistry, rt.id)
	a.msink.SetGauge(MetricRuntimes, float32(len(a.runtimeRegistry)))
	a.logDebug(rt, "runtime removed from registry")
	a.logDebug(nil, "number of runtimes in registry: %d", len(a.runtimeRegistry))
}

func (a *App) getRuntime(id string) (*Runtime, error) {
	a.runtimeRegistryMutex.RLock()
	defer a.runtimeRegistryMutex.RUnlock()
	if rt, ok := a.runtimeRegistry[id]; ok {
		return rt, nil
	}
	return nil, fmt.Errorf("%w: '%s'", ErrRuntimeNotFound, id)
}

func (a *App) startReaper() {
	ttl := a.cfg.ContextTTL
	if ttl < 0 {
		return
	}
	if ttl == 0 {
		ttl = 30 * time.Second
	}
	interval := ttl / 3
	if interval < 5*time.Second {
		interval = 5 * time.Second
	}
	a.reaperStop = make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-a.reaperStop:
				return
			case <-ticker.C:
				a.reapOrphanedRuntimes(ttl)
			}
		}
	}()
}

func (a *App) reapOrphanedRuntimes(ttl time.Duration) {
	now := time.Now()
	a.runtimeRegistryMutex.RLock()
	var orphans []*Runtime
	for _, rt := range a.runtimeRegistry {
		if !rt.sseConnected.Load() && now.Sub(rt.createdAt) > ttl {
			orphans = append(orphans, rt)
		}
	}
	a.runtimeRegistryMutex.RUnlock()

	for _, rt := range orphans {
		a.logInfo(rt, "reaping orphaned runtime (no SSE connection after %s)", ttl)
		a.cleanupRuntime(rt)
	}
}

// Handler returns the http.Handler serving the application.
func (a *App) Handler() http.Handler {
	return a.mux
}

// Start starts the HTTP server and blocks until a SIGINT or SIGTERM
// signal is received, then performs a graceful shutdown.
func (a *App) Start() {
	a.server = &http.Server{
		Addr:    a.cfg.ServerAddress,
		Handler: a.mux,
	}

	a.startReaper()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.server.ListenAndServe()
	}()

	a.logInfo(nil, "mvi started at [%s]", a.cfg.ServerAddress)

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logInfo(nil, "received signal %v, shutting down", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			a.logger.Fatal().Err(err).Msg("http server failed")
		}
		return
	}

	a.shutdown()
}

// Shutdown gracefully shuts down the server and all runtimes.
// Safe for programmatic or test use.
func (a *App) Shutdown() {
	a.shutdown()
}

func (a *App) shutdown() {
	if a.reaperStop != nil {
		close(a.reaperStop)
		a.reaperStop = nil
	}
	a.logInfo(nil, "draining all runtimes")
	a.drainAllRuntimes()

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.server.Shutdown(ctx); err != nil {
			a.logErr(nil, "http server shutdown error: %v", err)
		}
	}

	if a.pubsub != nil {
		if err := a.pubsub.Close(); err != nil {
			a.logErr(nil, "pubsub close error: %v", err)
		}
	}

	a.logInfo(nil, "shutdown complete")
}

func (a *App) drainAllRuntimes() {
	a.runtimeRegistryMutex.Lock()
	runtimes := make([]*Runtime, 0, len(a.runtimeRegistry))
	for _, rt := range a.runtimeRegistry {
		runtimes = append(runtimes, rt)
	}
	a.runtimeRegistry = make(map[string]*Runtime)
	a.msink.SetGauge(MetricRuntimes, 0)
	a.runtimeRegistryMutex.Unlock()

	for _, rt := range runtimes {
		a.logDebug(rt, "disposing runtime")
		rt.Dispose()
	}
	a.logInfo(nil, "drained %d runtime(s)", len(runtimes))
}

// HTTPServeMux returns the underlying HTTP request multiplexer to enable user extentions, middleware and
// plugins.
//
// IMPORTANT. The returned *http.ServeMux can only be modified during initialization, before calling Start().
// Concurrent handler registration is not safe.
func (a *App) HTTPServeMux() *http.ServeMux {
	return a.mux
}

func (a *App) ensureDatastarHandler() {
	a.datastarOnce.Do(func() {
		if a.datastarContent == nil {
			return
		}
		a.mux.HandleFunc("GET "+a.datastarPath, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/javascript")
			_, _ = w.Write(a.datastarContent)
		})
	})
}

func (a *App) datastarSrc() string {
	if a.datastarContent != nil {
		return a.datastarPath
	}
	return DatastarCDN
}

type patchType int

const (
	patchTypeElements patchType = iota
	patchTypeReplaceURL
)

type patch struct {
	typ     patchType
	content string
}

// New creates a new *App with default configuration.
func New() *App {
	mux := http.NewServeMux()

	a := &App{
		mux:             mux,
		logger:          newConsoleLogger(zerolog.InfoLevel),
		routes:          router.NewTable[Route](),
		runtimeRegistry: make(map[string]*Runtime),
		msink:           metrics.Default(),
		datastarPath:    "/_datastar.js",
		cfg: Options{
			DevMode:       false,
			ServerAddress: ":3000",
			DocumentTitle: "⚡ mvi",
		},
	}

	a.mux.HandleFunc("GET /", a.handleDocument)
	a.mux.HandleFunc("GET /_sse", a.handleSSE)
	a.mux.HandleFunc("GET "+dom.EventPath+"{selector}/{event}", a.handleEvent)
	a.mux.HandleFunc("GET "+router.NavPath+"{path...}", a.handleNavigate)
	a.mux.HandleFunc("POST /_session/close", a.handleSessionClose)
	return a
}

func (a *App) handleDocument(w http.ResponseWriter, r *http.Request) {
	a.logDebug(nil, "GET %s", r.URL.String())
	if strings.Contains(r.URL.Path, "favicon") ||
		strings.Contains(r.URL.Path, ".well-known") ||
		strings.Contains(r.URL.Path, "js.map") {
		http.NotFound(w, r)
		return
	}
	rt := a.newRuntime()
	if err := rt.Navigate(r.URL.Path); err != nil {
		rt.Dispose()
		if errors.Is(err, router.ErrNoRoute) {
			a.logDebug(nil, "no page for %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		a.logErr(rt, "page failed to mount: %v", err)
		http.Error(w, "page failed to mount", http.StatusInternalServerError)
		return
	}
	a.registerRuntime(rt)

	headElements := []h.H{h.Script(h.Type("module"), h.Src(a.datastarSrc()))}
	headElements = append(headElements, a.documentHeadIncludes...)
	headElements = append(headElements,
		h.Meta(h.Data("signals", fmt.Sprintf("{'%s':'%s','%s':'%s'}", signalRuntimeID, rt.id, signalCSRF, rt.csrfToken))),
		h.Meta(h.Data("init", "@get('/_sse')")),
		h.Meta(h.Data("init", fmt.Sprintf(`window.addEventListener('beforeunload', (evt) => {
			navigator.sendBeacon('/_session/close', '%s');});`, rt.id))),
	)

	bodyElements := []h.H{rt.View()}
	bodyElements = append(bodyElements, a.documentFootIncludes...)
	view := h.HTML5(h.HTML5Props{
		Title: a.cfg.DocumentTitle,
		Head:  headElements,
		Body:  bodyElements,
	})
	if err := view.Render(w); err != nil {
		a.logErr(rt, "render document failed: %v", err)
	}
}

func (a *App) readSignals(r *http.Request) map[string]any {
	var sigs map[string]any
	if err := datastar.ReadSignals(r, &sigs); err != nil {
		a.logDebug(nil, "failed to read signals of %s: %v", r.URL.Path, err)
	}
	return sigs
}

// runtimeFor resolves the runtime named by the request signals and checks
// its CSRF token. On failure it writes the error response.
func (a *App) runtimeFor(w http.ResponseWriter, r *http.Request, what string) (*Runtime, bool) {
	sigs := a.readSignals(r)
	id, _ := sigs[signalRuntimeID].(string)
	rt, err := a.getRuntime(id)
	if err != nil {
		a.logErr(nil, "%s failed: %v", what, err)
		http.Error(w, "runtime not found", http.StatusNotFound)
		return nil, false
	}
	token, _ := sigs[signalCSRF].(string)
	if subtle.ConstantTimeCompare([]byte(token), []byte(rt.csrfToken)) != 1 {
		a.logWarn(rt, "%s rejected: invalid CSRF token", what)
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return nil, false
	}
	return rt, true
}

func (a *App) handleSSE(w http.ResponseWriter, r *http.Request) {
	sigs := a.readSignals(r)
	id, _ := sigs[signalRuntimeID].(string)
	rt, err := a.getRuntime(id)
	if err != nil {
		a.logErr(nil, "sse stream failed to start: %v", err)
		return
	}

	sse := datastar.NewSSE(w, r, datastar.WithCompression(datastar.WithBrotli(datastar.WithBrotliLevel(5))))

	// send empty SSE event to force flush headers
	sse.Send(datastar.EventTypePatchElements, []string{}, datastar.WithSSEEventId("mvi"))

	rt.sseConnected.Store(true)
	a.logDebug(rt, "SSE connection established")
	rt.Sync()

	for {
		select {
		case <-sse.Context().Done():
			a.logDebug(rt, "SSE connection ended")
			a.cleanupRuntime(rt)
			return
		case <-rt.ctxDisposedChan:
			a.logDebug(rt, "runtime disposed, closing SSE")
			return
		case p := <-rt.patchChan:
			switch p.typ {
			case patchTypeElements:
				if err := sse.PatchElements(p.content); err != nil {
					// Only log if connection wasn't closed (avoids noise during shutdown/tests)
					if sse.Context().Err() == nil {
						a.logErr(rt, "PatchElements failed: %v", err)
					}
				}
			case patchTypeReplaceURL:
				parsedURL, err := url.Parse(p.content)
				if err != nil {
					a.logErr(rt, "ReplaceURL failed to parse URL: %v", err)
				} else if err := sse.ReplaceURL(*parsedURL); err != nil {
					if sse.Context().Err() == nil {
						a.logErr(rt, "ReplaceURL failed: %v", err)
					}
				}
			}
		}
	}
}

func (a *App) handleEvent(w http.ResponseWriter, r *http.Request) {
	selector, typ := r.PathValue("selector"), r.PathValue("event")
	what := fmt.Sprintf("event '%s' on '%s'", typ, selector)
	rt, ok := a.runtimeFor(w, r, what)
	if !ok {
		return
	}
	if rt.eventLimiter != nil && !rt.eventLimiter.Allow() {
		a.msink.IncrCounterWithLabels(MetricDOMEventsRejected, 1, []metrics.Label{LabelReason.M("rate_limited")})
		a.logWarn(rt, "%s rate limited", what)
		http.Error(w, "rate limited", http.StatusTooManyRequests)
		return
	}
	if _, err := rt.Dispatch(selector, typ); err != nil {
		a.logWarn(rt, "%s failed: %v", what, err)
		switch {
		case errors.Is(err, dom.ErrInvalidSelector):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ErrRuntimeDisposed):
			http.Error(w, err.Error(), http.StatusGone)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func (a *App) handleNavigate(w http.ResponseWriter, r *http.Request) {
	path := "/" + r.PathValue("path")
	rt, ok := a.runtimeFor(w, r, "navigation to "+path)
	if !ok {
		return
	}
	if err := rt.Navigate(path); err != nil {
		a.logWarn(rt, "navigation to '%s' ignored: %v", path, err)
		switch {
		case errors.Is(err, router.ErrNoRoute):
			http.NotFound(w, r)
		case errors.Is(err, ErrRuntimeDisposed):
			http.Error(w, err.Error(), http.StatusGone)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func (a *App) handleSessionClose(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		a.logErr(nil, "error reading body: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	rt, err := a.getRuntime(string(body))
	if err != nil {
		a.logErr(nil, "failed to handle session close: %v", err)
		return
	}
	a.logDebug(rt, "session close event triggered")
	a.cleanupRuntime(rt)
}

func genRandID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)[:8]
}

func genCSRFToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
