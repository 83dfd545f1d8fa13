package mvi

import (
	"encoding/json"

	"github.com/ryanhamamura/mvi/state"
)

// Publish JSON-marshals msg and publishes to subject.
func Publish[T any](ps PubSub, subject string, msg T) error {
	if ps == nil {
		return ErrNoPubSub
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return ps.Publish(subject, data)
}

// Subscribe JSON-unmarshals each message as T and calls handler. Messages
// that do not decode are skipped.
func Subscribe[T any](ps PubSub, subject string, handler func(T)) (Subscription, error) {
	if ps == nil {
		return nil, ErrNoPubSub
	}
	return ps.Subscribe(subject, func(data []byte) {
		var msg T
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		handler(msg)
	})
}

// WatchSnapshots calls handler with every snapshot published by the
// runtime with the given id. The tap is read-only: nothing received here
// flows back into any runtime.
func WatchSnapshots(ps PubSub, runtimeID string, handler func(state.Snapshot)) (Subscription, error) {
	return Subscribe(ps, SnapshotSubject(runtimeID), handler)
}
