package store

import (
	"sync"
	"testing"

	"causalkv/internal/causal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertAndLookup(t *testing.T) {
	s := New()
	_, ok := s.Lookup("x")
	require.False(t, ok)

	entry := causal.Entry{Value: "1", Version: causal.Version{Timestamp: 1, Node: 1}, Deps: causal.Deps{}}
	s.Upsert("x", entry)

	got, ok := s.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, entry, got)
}

func TestDelete(t *testing.T) {
	s := New()
	s.Upsert("x", causal.Entry{Value: "1"})
	s.Delete("x")

	_, ok := s.Lookup("x")
	assert.False(t, ok)
}

func TestKeys(t *testing.T) {
	s := New()
	s.Upsert("a", causal.Entry{Value: "1"})
	s.Upsert("b", causal.Entry{Value: "2"})

	keys := s.Keys()
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestSnapshotIsIndependentOfFutureWrites(t *testing.T) {
	s := New()
	s.Upsert("a", causal.Entry{Value: "1"})

	snap := s.Snapshot()
	s.Upsert("a", causal.Entry{Value: "2"})

	assert.Equal(t, "1", snap["a"].Value)
}

func TestWithLock_ConditionalReplace(t *testing.T) {
	s := New()
	s.Upsert("x", causal.Entry{Value: "1", Version: causal.Version{Timestamp: 1, Node: 1}})

	s.WithLock("x", func(current causal.Entry, exists bool) (causal.Entry, bool) {
		require.True(t, exists)
		if current.Version.Less(causal.Version{Timestamp: 2, Node: 1}) {
			return causal.Entry{Value: "2", Version: causal.Version{Timestamp: 2, Node: 1}}, true
		}
		return current, false
	})

	got, _ := s.Lookup("x")
	assert.Equal(t, "2", got.Value)
}

func TestStore_ConcurrentDistinctKeysDoNotBlock(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := string(rune('a' + i%26))
			s.Upsert(key, causal.Entry{Value: key})
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, len(s.Keys()), 26)
}
