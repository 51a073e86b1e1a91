package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_IssueThenSettle(t *testing.T) {
	s := newMemoryStore(t)
	ctx := t.Context()
	issued := time.UnixMilli(time.Now().UnixMilli())

	require.NoError(t, s.RecordIssued(ctx, Entry{
		SessionID: "s1", Sequence: 1, Trigger: "change", ProductID: "desk", ConfigDigest: "abc", IssuedAt: issued,
	}))

	entries, err := s.List(ctx, Query{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.False(t, entries[0].Settled())
	require.Equal(t, issued, entries[0].IssuedAt)

	require.NoError(t, s.RecordSettled(ctx, Entry{
		SessionID: "s1", Sequence: 1, Trigger: "change", Outcome: "committed",
		SettledAt: issued.Add(40 * time.Millisecond), Duration: 40 * time.Millisecond, RequestID: "r-1",
	}))

	entries, err = s.List(ctx, Query{SessionID: "s1"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	require.True(t, e.Settled())
	require.Equal(t, "committed", e.Outcome)
	require.Equal(t, "desk", e.ProductID, "settlement keeps issue fields")
	require.Equal(t, "abc", e.ConfigDigest)
	require.Equal(t, 40*time.Millisecond, e.Duration)
	require.Equal(t, "r-1", e.RequestID)
}

func TestStore_SettleWithoutIssue(t *testing.T) {
	s := newMemoryStore(t)
	now := time.Now()
	require.NoError(t, s.RecordSettled(t.Context(), Entry{
		SessionID: "s1", Sequence: 3, Trigger: "refetch", Outcome: "failed", Error: "boom",
		SettledAt: now, Duration: 10 * time.Millisecond,
	}))

	entries, err := s.List(t.Context(), Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "boom", entries[0].Error)
	require.Equal(t, "refetch", entries[0].Trigger)
}

func TestStore_ListFiltersAndOrders(t *testing.T) {
	s := newMemoryStore(t)
	ctx := t.Context()
	base := time.Now()

	for i, sess := range []string{"a", "a", "b"} {
		seq := uint64(i + 1)
		require.NoError(t, s.RecordIssued(ctx, Entry{
			SessionID: sess, Sequence: seq, Trigger: "change", ProductID: "desk",
			IssuedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, s.RecordSettled(ctx, Entry{SessionID: "a", Sequence: 1, Outcome: "discarded", SettledAt: base}))

	all, err := s.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "b", all[0].SessionID, "newest first")

	onlyA, err := s.List(ctx, Query{SessionID: "a"})
	require.NoError(t, err)
	require.Len(t, onlyA, 2)

	discarded, err := s.List(ctx, Query{Outcome: "discarded"})
	require.NoError(t, err)
	require.Len(t, discarded, 1)
	require.Equal(t, uint64(1), discarded[0].Sequence)

	limited, err := s.List(ctx, Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.Equal(t, "b", sessions[0].SessionID)
	require.Equal(t, 2, sessions[1].Attempts)
	require.Equal(t, 1, sessions[1].Discarded)
}

func TestStore_DuplicateIssueIgnored(t *testing.T) {
	s := newMemoryStore(t)
	e := Entry{SessionID: "s", Sequence: 1, Trigger: "change", IssuedAt: time.Now()}
	require.NoError(t, s.RecordIssued(t.Context(), e))
	require.NoError(t, s.RecordIssued(t.Context(), e))

	entries, err := s.List(t.Context(), Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestStore_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.RecordIssued(t.Context(), Entry{SessionID: "s", Sequence: 1, Trigger: "change", IssuedAt: time.Now()}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.List(t.Context(), Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
