// Package mvinats provides an embedded NATS server with JetStream as the
// snapshot tap backend for mvi applications.
package mvinats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/delaneyj/toolbelt/embeddednats"
	"github.com/nats-io/nats.go"
	"github.com/ryanhamamura/mvi"
)

// SnapshotStream is the JetStream stream RetainSnapshots creates.
const SnapshotStream = "MVI_STATE"

// NATS implements mvi.PubSub using an embedded NATS server with JetStream.
type NATS struct {
	server *embeddednats.Server
	nc     *nats.Conn
	js     nats.JetStreamContext
}

var _ mvi.PubSub = (*NATS)(nil)

// New starts an embedded NATS server with JetStream enabled and returns a
// ready-to-use NATS instance. The server stores data in dataDir and shuts
// down when ctx is cancelled.
func New(ctx context.Context, dataDir string) (*NATS, error) {
	ns, err := embeddednats.New(ctx, embeddednats.WithDirectory(dataDir))
	if err != nil {
		return nil, fmt.Errorf("mvinats: start server: %w", err)
	}
	ns.WaitForServer()

	nc, err := ns.Client()
	if err != nil {
		ns.Close()
		return nil, fmt.Errorf("mvinats: connect client: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		ns.Close()
		return nil, fmt.Errorf("mvinats: init jetstream: %w", err)
	}

	return &NATS{server: ns, nc: nc, js: js}, nil
}

// RetainSnapshots creates (or updates) a JetStream stream capturing every
// snapshot published on mvi.AllSnapshots, keeping the last maxPerRuntime
// snapshots of each runtime for at most maxAge.
func (n *NATS) RetainSnapshots(maxPerRuntime int64, maxAge time.Duration) error {
	cfg := &nats.StreamConfig{
		Name:              SnapshotStream,
		Subjects:          []string{mvi.AllSnapshots},
		Retention:         nats.LimitsPolicy,
		MaxMsgsPerSubject: maxPerRuntime,
		MaxAge:            maxAge,
	}
	_, err := n.js.AddStream(cfg)
	if errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		_, err = n.js.UpdateStream(cfg)
	}
	if err != nil {
		return fmt.Errorf("mvinats: retain snapshots: %w", err)
	}
	return nil
}

// LastSnapshot returns the raw JSON of the last snapshot retained for the
// runtime with the given id. It requires RetainSnapshots.
func (n *NATS) LastSnapshot(runtimeID string) ([]byte, error) {
	msg, err := n.js.GetLastMsg(SnapshotStream, mvi.SnapshotSubject(runtimeID))
	if err != nil {
		return nil, fmt.Errorf("mvinats: last snapshot of '%s': %w", runtimeID, err)
	}
	return msg.Data, nil
}

// Publish sends data to the given subject using core NATS publish.
// JetStream captures messages automatically if a matching stream exists.
func (n *NATS) Publish(subject string, data []byte) error {
	return n.nc.Publish(subject, data)
}

// Subscribe creates a core NATS subscription for real-time fan-out delivery.
func (n *NATS) Subscribe(subject string, handler func(data []byte)) (mvi.Subscription, error) {
	sub, err := n.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Close shuts down the client connection and embedded server.
func (n *NATS) Close() error {
	n.nc.Close()
	return n.server.Close()
}

// Conn returns the underlying NATS connection for advanced usage.
func (n *NATS) Conn() *nats.Conn {
	return n.nc
}

// JetStream returns the JetStream context for stream configuration and replay.
func (n *NATS) JetStream() nats.JetStreamContext {
	return n.js
}
