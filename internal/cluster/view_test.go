package cluster

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"causalkv/internal/causal"
	"causalkv/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewManager_Install_BecomesOnline(t *testing.T) {
	m := NewMembership(1)
	vm := NewViewManager(m, NewRouter(), store.New(), nil)

	view := causal.View{"s1": {{ID: 1, Address: "self:1"}}}
	require.NoError(t, vm.Install(view))

	assert.True(t, m.Online())
	assert.Equal(t, "s1", m.ShardName())
}

func TestViewManager_Install_EvictionGoesOffline(t *testing.T) {
	m := NewMembership(1)
	vm := NewViewManager(m, NewRouter(), store.New(), nil)

	require.NoError(t, vm.Install(causal.View{"s1": {{ID: 1, Address: "self:1"}}}))
	require.True(t, m.Online())

	// New view no longer contains node 1 anywhere.
	require.NoError(t, vm.Install(causal.View{"s1": {{ID: 2, Address: "other:1"}}}))
	assert.False(t, m.Online())
	assert.Equal(t, "", m.ShardName())
}

func TestViewManager_Install_TransfersKeysThatNoLongerBelong(t *testing.T) {
	var mu sync.Mutex
	var acceptedKeys []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req acceptKeyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		mu.Lock()
		acceptedKeys = append(acceptedKeys, req.Key)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := store.New()
	router := NewRouter()

	// Seed the store with every key that currently belongs to "s1" under
	// a single-shard view, then introduce a second shard "s2" and confirm
	// whatever re-routes to s2 is transferred out and removed locally.
	singleShardView := causal.View{"s1": {{ID: 1, Address: "self:1"}}}
	var ownKeys, foreignKeys []string
	candidates := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	twoShardView := causal.View{
		"s1": {{ID: 1, Address: "self:1"}},
		"s2": {{ID: 2, Address: srv.Listener.Addr().String()}},
	}
	for _, k := range candidates {
		shard, err := router.Shard(k, twoShardView)
		require.NoError(t, err)
		if shard == "s1" {
			ownKeys = append(ownKeys, k)
		} else {
			foreignKeys = append(foreignKeys, k)
		}
	}
	require.NotEmpty(t, foreignKeys, "test fixture needs at least one key that moves shards")

	m := NewMembership(1)
	vm := NewViewManager(m, router, s, nil)
	require.NoError(t, vm.Install(singleShardView))
	for _, k := range append(append([]string{}, ownKeys...), foreignKeys...) {
		s.Upsert(k, causal.Entry{Value: k, Version: causal.Version{Timestamp: 1, Node: 1}})
	}

	require.NoError(t, vm.Install(twoShardView))

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, foreignKeys, acceptedKeys)

	for _, k := range foreignKeys {
		_, ok := s.Lookup(k)
		assert.False(t, ok, "transferred key %q should be deleted locally", k)
	}
	for _, k := range ownKeys {
		_, ok := s.Lookup(k)
		assert.True(t, ok, "key %q should remain on this shard", k)
	}
}
