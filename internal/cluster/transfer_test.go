package cluster

import (
	"testing"

	"causalkv/internal/causal"
	"causalkv/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestAcceptKey_UpsertsRegardlessOfExisting(t *testing.T) {
	s := store.New()
	s.Upsert("x", causal.Entry{Value: "old", Version: causal.Version{Timestamp: 100, Node: 1}})

	// Even an "older" version wins — the sender is authoritative, no
	// arbitration happens here (spec.md §4.9).
	AcceptKey(s, "x", "new", causal.Version{Timestamp: 1, Node: 1}, causal.Deps{})

	got, ok := s.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, "new", got.Value)
}
