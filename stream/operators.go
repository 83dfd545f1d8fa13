package stream

import "github.com/rs/zerolog"

// Map returns a stream of fn applied to every value of src.
func Map[T, U any](src *Stream[T], fn func(T) U) *Stream[U] {
	return FromProducer(func(emit func(U)) func() {
		sub := src.Subscribe(func(v T) { emit(fn(v)) })
		return sub.Unsubscribe
	})
}

// MapTo returns a stream that emits v every time src emits.
func MapTo[T, U any](src *Stream[T], v U) *Stream[U] {
	return Map(src, func(T) U { return v })
}

// Filter returns a stream of the values of src that satisfy keep.
func Filter[T any](src *Stream[T], keep func(T) bool) *Stream[T] {
	return FromProducer(func(emit func(T)) func() {
		sub := src.Subscribe(func(v T) {
			if keep(v) {
				emit(v)
			}
		})
		return sub.Unsubscribe
	})
}

// Merge returns a stream that emits every value of every source, in the
// order the sources emit them.
func Merge[T any](srcs ...*Stream[T]) *Stream[T] {
	return FromProducer(func(emit func(T)) func() {
		subs := make([]*Subscription, 0, len(srcs))
		for _, src := range srcs {
			subs = append(subs, src.Subscribe(emit))
		}
		return func() {
			for _, sub := range subs {
				sub.Unsubscribe()
			}
		}
	})
}

// Pair holds the latest values of two combined streams.
type Pair[A, B any] struct {
	First  A
	Second B
}

// Combine returns a stream that emits the latest values of a and b whenever
// either one emits, once both have emitted at least once.
func Combine[A, B any](a *Stream[A], b *Stream[B]) *Stream[Pair[A, B]] {
	return FromProducer(func(emit func(Pair[A, B])) func() {
		var (
			p          Pair[A, B]
			hasA, hasB bool
		)
		subA := a.Subscribe(func(v A) {
			p.First, hasA = v, true
			if hasB {
				emit(p)
			}
		})
		subB := b.Subscribe(func(v B) {
			p.Second, hasB = v, true
			if hasA {
				emit(p)
			}
		})
		return func() {
			subA.Unsubscribe()
			subB.Unsubscribe()
		}
	})
}

// Fold returns a remembered stream of the running accumulation of src,
// starting from seed. The seed is emitted when the stream first starts. The
// accumulator belongs to the returned stream and is not reset when it stops;
// on restart, values src replays while being resubscribed are already in
// the accumulator and are not applied again.
func Fold[T, A any](src *Stream[T], fn func(A, T) A, seed A) *Stream[A] {
	acc := seed
	out := &Stream[A]{remember: true}
	out.producer = func(emit func(A)) func() {
		resumed := out.hasLast
		if !resumed {
			emit(acc)
		}
		sub := src.Subscribe(func(v T) {
			if resumed {
				return
			}
			acc = fn(acc, v)
			emit(acc)
		})
		resumed = false
		return sub.Unsubscribe
	}
	return out
}

// Remember returns a remembered stream mirroring src.
func Remember[T any](src *Stream[T]) *Stream[T] {
	out := FromProducer(func(emit func(T)) func() {
		sub := src.Subscribe(emit)
		return sub.Unsubscribe
	})
	out.remember = true
	return out
}

// Flatten returns a stream of the values of the latest inner stream emitted
// by src. When src emits a new inner stream, the previous one is
// unsubscribed before the new one is subscribed, so values of a replaced
// inner stream never reach the output. A nil inner stream emits nothing.
func Flatten[T any](src *Stream[*Stream[T]]) *Stream[T] {
	return FromProducer(func(emit func(T)) func() {
		var inner *Subscription
		outer := src.Subscribe(func(s *Stream[T]) {
			inner.Unsubscribe()
			inner = nil
			if s != nil {
				inner = s.Subscribe(emit)
			}
		})
		return func() {
			outer.Unsubscribe()
			inner.Unsubscribe()
			inner = nil
		}
	})
}

// Debug returns a stream mirroring src that logs every value at debug level
// under msg.
func Debug[T any](src *Stream[T], logger zerolog.Logger, msg string) *Stream[T] {
	return Map(src, func(v T) T {
		logger.Debug().Interface("value", v).Msg(msg)
		return v
	})
}
