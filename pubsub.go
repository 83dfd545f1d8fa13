package mvi

// PubSub is an interface for publish/subscribe messaging backends.
// The mvinats sub-package provides an embedded NATS implementation.
type PubSub interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte)) (Subscription, error)
	Close() error
}

// Subscription represents an active subscription that can be manually unsubscribed.
type Subscription interface {
	Unsubscribe() error
}

// SnapshotSubjectPrefix prefixes the subjects snapshots are published on.
const SnapshotSubjectPrefix = "mvi.state."

// SnapshotSubject returns the subject the snapshots of a runtime are
// published on.
func SnapshotSubject(runtimeID string) string {
	return SnapshotSubjectPrefix + runtimeID
}

// AllSnapshots is the wildcard subject matching the snapshots of every
// runtime.
const AllSnapshots = SnapshotSubjectPrefix + ">"
