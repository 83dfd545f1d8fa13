package mvi

import (
	"time"

	"github.com/hashicorp/go-metrics"
	"github.com/rs/zerolog"
	"github.com/ryanhamamura/mvi/state"
)

func ptr(l zerolog.Level) *zerolog.Level { return &l }

var (
	LogLevelDebug = ptr(zerolog.DebugLevel)
	LogLevelInfo  = ptr(zerolog.InfoLevel)
	LogLevelWarn  = ptr(zerolog.WarnLevel)
	LogLevelError = ptr(zerolog.ErrorLevel)
)

// Plugin is a func that can mutate the given *mvi.App runtime. It is useful to integrate popular JS/CSS UI libraries or tools.
type Plugin func(a *App)

// Options defines configuration options for the mvi application
type Options struct {
	// The development mode flag. If true, logs are written with a
	// human-readable console writer.
	DevMode bool

	// The http server address. e.g. ':3000'
	ServerAddress string

	// LogLevel sets the minimum log level. nil keeps the default (Info).
	LogLevel *zerolog.Level

	// Logger overrides the default logger entirely. When set, LogLevel and
	// DevMode have no effect on logging.
	Logger *zerolog.Logger

	// The title of the HTML document.
	DocumentTitle string

	// Plugins to extend the capabilities of the application.
	Plugins []Plugin

	// DatastarContent is the Datastar.js script content. If set, it is
	// served at DatastarPath. If nil, documents load the Datastar bundle
	// from DatastarCDN.
	DatastarContent []byte

	// DatastarPath is the URL path where DatastarContent is served.
	// Defaults to "/_datastar.js" if empty.
	DatastarPath string

	// PubSub enables the snapshot tap: every state snapshot of every
	// runtime is published as JSON on SnapshotSubject(runtimeID). Use
	// mvinats.New() for an embedded NATS backend.
	PubSub PubSub

	// ContextTTL is how long a runtime may live without an SSE connection
	// before it is reaped. Zero means 30s; negative disables reaping.
	ContextTTL time.Duration

	// EventRateLimit configures the token bucket every runtime applies to
	// DOM events. Zero values use the defaults; a Rate of -1 disables it.
	EventRateLimit RateLimitConfig

	// MetricSink receives runtime metrics. Defaults to metrics.Default().
	MetricSink metrics.MetricSink

	// Reducers replaces the reducers folded over user deltas. nil keeps
	// state.DefaultReducers. Combined reducers must commute.
	Reducers []state.Reducer
}
