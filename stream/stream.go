// Package stream provides push-based, synchronous streams used to wire page
// components to the state tree.
//
// A Stream is hot and multicast: its producer starts when the first listener
// subscribes and stops when the last one unsubscribes, and every listener
// sees the same values. A remembered stream additionally caches its last
// value and hands it to each new listener on subscription, so late
// subscribers never miss the current value.
//
// Streams are not safe for concurrent use. Values are pushed to listeners
// synchronously, in emission order, on the caller's goroutine; the owner of
// a stream graph must serialize calls into it.
package stream

import (
	"errors"
	"slices"
)

// ErrHasProducer is returned by Imitate when the placeholder already has a
// producer attached.
var ErrHasProducer = errors.New("stream: placeholder already has a producer")

// Producer starts pushing values through emit and returns a func that stops
// it. The returned func may be nil when there is nothing to release.
type Producer[T any] func(emit func(T)) (stop func())

type listener[T any] struct {
	fn     func(T)
	active bool
}

// Stream is a push-based sequence of values of type T.
type Stream[T any] struct {
	listeners []*listener[T]
	producer  Producer[T]
	stop      func()
	running   bool

	remember bool
	last     T
	hasLast  bool

	// resuming is set while a remembered stream that already holds a value
	// restarts its producer.
	resuming bool
	emitting bool
	queue    []T
}

// New returns a stream with no producer. Values are pushed into it with
// Emit, or by attaching a producer later with Imitate.
func New[T any]() *Stream[T] {
	return &Stream[T]{}
}

// NewMemory returns a remembered stream with no producer and no value yet.
func NewMemory[T any]() *Stream[T] {
	return &Stream[T]{remember: true}
}

// Hold returns a remembered stream whose current value is v.
func Hold[T any](v T) *Stream[T] {
	return &Stream[T]{remember: true, last: v, hasLast: true}
}

// FromProducer returns a stream driven by p.
func FromProducer[T any](p Producer[T]) *Stream[T] {
	return &Stream[T]{producer: p}
}

// Never returns a stream that never emits.
func Never[T any]() *Stream[T] {
	return &Stream[T]{}
}

// Of returns a stream that emits vals, in order, each time it starts.
func Of[T any](vals ...T) *Stream[T] {
	vs := slices.Clone(vals)
	return FromProducer(func(emit func(T)) func() {
		for _, v := range vs {
			emit(v)
		}
		return nil
	})
}

// Emit pushes v to every active listener. A listener removed while v is
// being delivered does not receive it.
//
// Values emitted from inside a delivery are queued and delivered once the
// current value has reached every listener, so all listeners see the same
// order.
func (s *Stream[T]) Emit(v T) {
	if s.resuming {
		return
	}
	if s.emitting {
		s.queue = append(s.queue, v)
		return
	}
	s.emitting = true
	defer func() {
		s.emitting = false
		s.queue = nil
	}()
	s.deliver(v)
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.deliver(next)
	}
}

func (s *Stream[T]) deliver(v T) {
	if s.remember {
		s.last = v
		s.hasLast = true
	}
	if len(s.listeners) == 0 {
		return
	}
	for _, l := range slices.Clone(s.listeners) {
		if l.active {
			l.fn(v)
		}
	}
}

// Subscribe registers fn to receive values. On a remembered stream holding a
// value, fn receives it before Subscribe returns.
func (s *Stream[T]) Subscribe(fn func(T)) *Subscription {
	l := &listener[T]{fn: fn, active: true}
	s.listeners = append(s.listeners, l)
	if s.remember && s.hasLast {
		fn(s.last)
	}
	if !s.running && s.producer != nil && l.active {
		s.start()
	}
	return &Subscription{cancel: func() { s.remove(l) }}
}

// Imitate attaches target as the producer of s, turning a placeholder created
// with New into a proxy of target. If s already has listeners, forwarding
// starts immediately.
func (s *Stream[T]) Imitate(target *Stream[T]) error {
	if s.producer != nil {
		return ErrHasProducer
	}
	s.producer = func(emit func(T)) func() {
		sub := target.Subscribe(emit)
		return sub.Unsubscribe
	}
	if !s.running && len(s.listeners) > 0 {
		s.start()
	}
	return nil
}

// Current returns the cached value of a remembered stream.
func (s *Stream[T]) Current() (T, bool) {
	return s.last, s.hasLast
}

// Listeners returns the number of active listeners.
func (s *Stream[T]) Listeners() int {
	return len(s.listeners)
}

// Remembered reports whether s caches its last value for late subscribers.
func (s *Stream[T]) Remembered() bool {
	return s.remember
}

// start runs the producer. A remembered stream restarting with a cached
// value drops what the producer pushes while starting: that is its sources
// replaying values the cache already stands for.
func (s *Stream[T]) start() {
	s.running = true
	s.resuming = s.remember && s.hasLast
	s.stop = s.producer(s.Emit)
	s.resuming = false
}

func (s *Stream[T]) remove(l *listener[T]) {
	l.active = false
	i := slices.Index(s.listeners, l)
	if i < 0 {
		return
	}
	s.listeners = slices.Delete(s.listeners, i, i+1)
	if len(s.listeners) > 0 || !s.running {
		return
	}
	s.running = false
	stop := s.stop
	s.stop = nil
	if stop != nil {
		stop()
	}
}

// Subscription is a registered listener.
type Subscription struct {
	cancel func()
	done   bool
}

// Unsubscribe stops delivery to the listener. It is safe to call more than
// once and on a nil Subscription.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.done {
		return
	}
	s.done = true
	if s.cancel != nil {
		s.cancel()
	}
}
