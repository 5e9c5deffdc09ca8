package cluster

import (
	"testing"

	"causalkv/internal/causal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_EmptyViewFails(t *testing.T) {
	r := NewRouter()
	_, err := r.Shard("x", causal.View{})
	assert.ErrorIs(t, err, ErrNoShards)
}

func TestRouter_Deterministic(t *testing.T) {
	r := NewRouter()
	view := causal.View{
		"shard-a": {{ID: 1, Address: "a:1"}},
		"shard-b": {{ID: 2, Address: "b:1"}},
		"shard-c": {{ID: 3, Address: "c:1"}},
	}

	first, err := r.Shard("hello", view)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		got, err := r.Shard("hello", view)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}
}

func TestRouter_IndependentOfAddresses(t *testing.T) {
	r := NewRouter()
	viewA := causal.View{
		"shard-a": {{ID: 1, Address: "a:1"}},
		"shard-b": {{ID: 2, Address: "b:1"}},
	}
	viewB := causal.View{
		"shard-a": {{ID: 1, Address: "totally-different-address:9999"}},
		"shard-b": {{ID: 2, Address: "b:1"}},
	}

	gotA, err := r.Shard("some-key", viewA)
	require.NoError(t, err)
	gotB, err := r.Shard("some-key", viewB)
	require.NoError(t, err)
	assert.Equal(t, gotA, gotB)
}

func TestRouter_DistributesAcrossShards(t *testing.T) {
	r := NewRouter()
	view := causal.View{
		"shard-a": {{ID: 1, Address: "a:1"}},
		"shard-b": {{ID: 2, Address: "b:1"}},
	}

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		key := string(rune('a' + i%26))
		shard, err := r.Shard(key, view)
		require.NoError(t, err)
		seen[shard] = true
	}
	assert.Len(t, seen, 2, "expected keys to land on both shards")
}
