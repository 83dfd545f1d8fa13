package state

import "github.com/ryanhamamura/mvi/stream"

// Transition is the effect of one user action on the state tree.
type Transition func(Snapshot) Snapshot

// Reducer turns a delta into the Transition it causes.
//
// Several reducers may run over the same delta stream. Their transitions are
// applied in registration order for every delta, so combined reducers must
// commute for the result to be independent of that order. The reducers in
// this package only add to the count, which commutes.
type Reducer func(delta int) Transition

// CountReducer adds delta to the count.
func CountReducer(delta int) Transition {
	return func(s Snapshot) Snapshot {
		return s.UpdateCount(func(n int) int { return n + delta })
	}
}

// MultiplierReducer returns a reducer that adds delta*factor to the count.
// It is not part of DefaultReducers.
func MultiplierReducer(factor int) Reducer {
	return func(delta int) Transition {
		return func(s Snapshot) Snapshot {
			return s.UpdateCount(func(n int) int { return n + delta*factor })
		}
	}
}

// DefaultReducers returns the reducers enabled by the application.
func DefaultReducers() []Reducer {
	return []Reducer{CountReducer}
}

// Reducers maps every delta to one Transition per reducer and merges the
// results. With no reducers, DefaultReducers is used.
func Reducers(deltas *stream.Stream[int], rs ...Reducer) *stream.Stream[Transition] {
	if len(rs) == 0 {
		rs = DefaultReducers()
	}
	transitions := make([]*stream.Stream[Transition], 0, len(rs))
	for _, r := range rs {
		transitions = append(transitions, stream.Map(deltas, func(d int) Transition { return r(d) }))
	}
	return stream.Merge(transitions...)
}

// Model folds transitions over Default, in arrival order. The returned
// stream is remembered: a late subscriber immediately receives the latest
// snapshot.
func Model(transitions *stream.Stream[Transition]) *stream.Stream[Snapshot] {
	return stream.Fold(transitions, func(s Snapshot, t Transition) Snapshot {
		return t(s)
	}, Default())
}
