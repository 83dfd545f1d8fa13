package mvinats

import (
	"context"
	"testing"
	"time"

	"github.com/ryanhamamura/mvi"
	"github.com/ryanhamamura/mvi/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNATS(t *testing.T) *NATS {
	t.Helper()
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	n, err := New(ctx, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func TestNATS_WatchSnapshots(t *testing.T) {
	n := newTestNATS(t)

	got := make(chan state.Snapshot, 4)
	sub, err := mvi.WatchSnapshots(n, "rt-1", func(s state.Snapshot) { got <- s })
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, mvi.Publish(n, mvi.SnapshotSubject("rt-2"), state.Default().WithCount(7)))
	require.NoError(t, mvi.Publish(n, mvi.SnapshotSubject("rt-1"), state.Default().WithCount(3)))
	require.NoError(t, n.Conn().Flush())

	select {
	case s := <-got:
		assert.Equal(t, 3, s.Count())
	case <-time.After(5 * time.Second):
		t.Fatal("no snapshot received")
	}
}

func TestNATS_RetainSnapshots(t *testing.T) {
	n := newTestNATS(t)
	require.NoError(t, n.RetainSnapshots(5, time.Hour))
	require.NoError(t, n.RetainSnapshots(5, time.Hour), "retaining twice updates the stream")

	for i := 1; i <= 3; i++ {
		require.NoError(t, mvi.Publish(n, mvi.SnapshotSubject("rt-1"), state.Default().WithCount(i)))
	}
	require.NoError(t, n.Conn().Flush())

	require.Eventually(t, func() bool {
		data, err := n.LastSnapshot("rt-1")
		if err != nil {
			return false
		}
		var s state.Snapshot
		return s.UnmarshalJSON(data) == nil && s.Count() == 3
	}, 5*time.Second, 50*time.Millisecond)

	_, err := n.LastSnapshot("rt-unknown")
	assert.Error(t, err)
}
