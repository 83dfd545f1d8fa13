// Package state holds the application state tree and the pipeline that
// folds user deltas into it.
//
// A Snapshot is immutable. Every change produces a new Snapshot that shares
// structure with the previous one; nothing is ever updated in place. The
// only writer of state is the fold built by Model.
package state

import (
	"encoding/json"
	"fmt"

	"src.elv.sh/pkg/persistent/hash"
	"src.elv.sh/pkg/persistent/hashmap"
)

const countKey = "count"

var emptyTree = hashmap.New(equalKey, hashKey)

func equalKey(k1, k2 any) bool {
	return k1 == k2
}

func hashKey(k any) uint32 {
	if s, ok := k.(string); ok {
		return hash.String(s)
	}
	return 0
}

// Snapshot is one immutable version of the state tree.
//
// The zero Snapshot is equivalent to Default.
type Snapshot struct {
	tree hashmap.Map
}

// Default returns the initial snapshot, with a count of 0.
func Default() Snapshot {
	return Snapshot{tree: emptyTree.Assoc(countKey, 0)}
}

// Count returns the current count.
func (s Snapshot) Count() int {
	if s.tree == nil {
		return 0
	}
	v, ok := s.tree.Index(countKey)
	if !ok {
		return 0
	}
	n, _ := v.(int)
	return n
}

// WithCount returns a snapshot identical to s with the count set to n.
func (s Snapshot) WithCount(n int) Snapshot {
	tree := s.tree
	if tree == nil {
		tree = emptyTree
	}
	return Snapshot{tree: tree.Assoc(countKey, n)}
}

// UpdateCount returns a snapshot identical to s with the count replaced by
// f applied to the current count.
func (s Snapshot) UpdateCount(f func(int) int) Snapshot {
	return s.WithCount(f(s.Count()))
}

// Equal reports whether s and o hold the same values.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.Count() == o.Count()
}

func (s Snapshot) String() string {
	return fmt.Sprintf("{count:%d}", s.Count())
}

type snapshotJSON struct {
	Count int `json:"count"`
}

// MarshalJSON encodes s as {"count":N}.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotJSON{Count: s.Count()})
}

// UnmarshalJSON decodes {"count":N} into s.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var v snapshotJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("state: decode snapshot: %w", err)
	}
	*s = Default().WithCount(v.Count)
	return nil
}
