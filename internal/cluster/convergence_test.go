package cluster

import (
	"testing"

	"causalkv/internal/causal"
	"causalkv/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestConverge_AdoptsAbsentKeyWithClearedDeps(t *testing.T) {
	s := store.New()
	foreign := map[string]causal.Entry{
		"x": {Value: "1", Version: causal.Version{Timestamp: 1, Node: 1}, Deps: causal.Deps{"y": {Timestamp: 1, Node: 1}}},
	}

	Converge(s, foreign)

	got, ok := s.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, "1", got.Value)
	assert.Empty(t, got.Deps)
}

func TestConverge_ReplacesOlderLocal(t *testing.T) {
	s := store.New()
	s.Upsert("x", causal.Entry{Value: "old", Version: causal.Version{Timestamp: 1, Node: 1}})

	foreign := map[string]causal.Entry{
		"x": {Value: "new", Version: causal.Version{Timestamp: 2, Node: 1}},
	}
	Converge(s, foreign)

	got, _ := s.Lookup("x")
	assert.Equal(t, "new", got.Value)
}

func TestConverge_DropsOlderForeign(t *testing.T) {
	s := store.New()
	s.Upsert("x", causal.Entry{Value: "current", Version: causal.Version{Timestamp: 5, Node: 1}})

	foreign := map[string]causal.Entry{
		"x": {Value: "stale", Version: causal.Version{Timestamp: 1, Node: 1}},
	}
	Converge(s, foreign)

	got, _ := s.Lookup("x")
	assert.Equal(t, "current", got.Value)
}

func TestConverge_SameVersionIsNoop(t *testing.T) {
	s := store.New()
	v := causal.Version{Timestamp: 5, Node: 1}
	s.Upsert("x", causal.Entry{Value: "current", Version: v, Deps: causal.Deps{"dep": v}})

	foreign := map[string]causal.Entry{
		"x": {Value: "current", Version: v, Deps: causal.Deps{}},
	}
	Converge(s, foreign)

	got, _ := s.Lookup("x")
	assert.Equal(t, causal.Deps{"dep": v}, got.Deps, "no-op must not touch the stored deps")
}

func TestConverge_ArbitrationTieBreaksByNode(t *testing.T) {
	s := store.New()
	s.Upsert("x", causal.Entry{Value: "node1", Version: causal.Version{Timestamp: 5, Node: 1}})

	foreign := map[string]causal.Entry{
		"x": {Value: "node2", Version: causal.Version{Timestamp: 5, Node: 2}},
	}
	Converge(s, foreign)

	got, _ := s.Lookup("x")
	assert.Equal(t, "node2", got.Value, "higher node id wins at equal timestamp")
}
