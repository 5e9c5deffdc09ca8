package cluster

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"causalkv/internal/causal"
	"causalkv/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGossipDriver_PushNow_SendsSnapshotToPeer(t *testing.T) {
	var mu sync.Mutex
	var received convergeRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	addr := srv.Listener.Addr().String()

	m := NewMembership(1)
	m.set(causal.View{"s1": {{ID: 1, Address: "self"}, {ID: 2, Address: addr}}}, "s1",
		[]causal.NodeDescriptor{{ID: 1, Address: "self"}, {ID: 2, Address: addr}})

	s := store.New()
	s.Upsert("x", causal.Entry{Value: "1", Version: causal.Version{Timestamp: 1, Node: 1}})

	g := NewGossipDriver(m, s)
	g.PushNow()

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, received.KVs, "x")
	assert.Equal(t, "1", received.KVs["x"].Value)
}

func TestGossipDriver_ChoosePeers_ExcludesSelfAndCapsFanout(t *testing.T) {
	m := NewMembership(1)
	m.set(causal.View{"s1": nil}, "s1", []causal.NodeDescriptor{
		{ID: 1, Address: "self"},
		{ID: 2, Address: "p2"},
		{ID: 3, Address: "p3"},
		{ID: 4, Address: "p4"},
	})

	g := NewGossipDriver(m, store.New())
	peers := g.choosePeers()

	assert.LessOrEqual(t, len(peers), defaultGossipFanout)
	for _, p := range peers {
		assert.NotEqual(t, 1, p.ID)
	}
}

func TestGossipDriver_StartStop(t *testing.T) {
	m := NewMembership(1)
	g := NewGossipDriver(m, store.New())
	g.interval = 5 * time.Millisecond
	g.Start()
	time.Sleep(20 * time.Millisecond)
	g.Stop()
}
