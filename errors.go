package mvi

import "errors"

var (
	ErrRuntimeNotFound = errors.New("mvi: runtime not found")
	ErrRuntimeDisposed = errors.New("mvi: runtime disposed")
	ErrNoPubSub        = errors.New("mvi: pubsub not configured")
)
