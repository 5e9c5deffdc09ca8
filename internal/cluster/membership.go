package cluster

import (
	"sync"

	"causalkv/internal/causal"
)

// Membership holds the process-wide view/shard-membership state for this
// node: the full view, the name of the shard this node belongs to, and
// that shard's peer list (including this node). It is written only by the
// view endpoint (ViewManager.Install), so a single RWMutex is sufficient —
// there is exactly one writer, many readers (every request handler).
type Membership struct {
	mu         sync.RWMutex
	selfID     int
	view       causal.View
	shardName  string
	shardNodes []causal.NodeDescriptor
}

// NewMembership creates Membership for a node that starts Offline (no
// view installed yet).
func NewMembership(selfID int) *Membership {
	return &Membership{selfID: selfID}
}

// SelfID returns this node's id.
func (m *Membership) SelfID() int { return m.selfID }

// View returns the current view. An empty view means Offline.
func (m *Membership) View() causal.View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.view
}

// ShardName returns the shard this node currently belongs to, or "" if
// Offline/Evicted.
func (m *Membership) ShardName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shardName
}

// ShardNodes returns this node's current shard peer list, including
// itself.
func (m *Membership) ShardNodes() []causal.NodeDescriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]causal.NodeDescriptor, len(m.shardNodes))
	copy(out, m.shardNodes)
	return out
}

// Online reports whether this node currently belongs to a shard.
func (m *Membership) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.view) > 0 && m.shardName != ""
}

// set installs a new view/shard-name/shard-nodes triple atomically. Used
// only by ViewManager.Install.
func (m *Membership) set(view causal.View, shardName string, shardNodes []causal.NodeDescriptor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.view = view
	m.shardName = shardName
	m.shardNodes = shardNodes
}
