package causal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionLess_TimestampDominates(t *testing.T) {
	a := Version{Timestamp: 1.0, Node: 5}
	b := Version{Timestamp: 2.0, Node: 1}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestVersionLess_TieBrokenByNode(t *testing.T) {
	a := Version{Timestamp: 1.0, Node: 1}
	b := Version{Timestamp: 1.0, Node: 2}
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestVersionLess_Equal(t *testing.T) {
	a := Version{Timestamp: 1.0, Node: 1}
	b := Version{Timestamp: 1.0, Node: 1}
	assert.False(t, a.Less(b))
	assert.False(t, b.Less(a))
}
