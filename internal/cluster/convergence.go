package cluster

import (
	"causalkv/internal/causal"
	"causalkv/internal/store"
)

// Converge merges a peer's snapshot of its keyspace (foreign) into s,
// one key at a time, under that key's lock. It is idempotent and
// commutative: running it repeatedly, in any order, against any subset of
// peers converges every replica in a shard to the arbitration-maximum
// version of every key.
//
// Rules, per key:
//   - absent locally: adopt foreign, with its Deps cleared.
//   - same version as local: no-op.
//   - foreign strictly newer (by arbitration): replace, Deps cleared.
//   - otherwise: drop foreign, keep local.
//
// Deps are cleared on every accepted entry because they are bookkeeping
// for *future* writes originating at the node that authored them; once an
// entry has propagated here as a settled fact via gossip, its deps are
// not reusable to extend a reader's causal metadata transitively (see
// DESIGN.md open question 3 — this is accepted, not a bug).
func Converge(s *store.Store, foreign map[string]causal.Entry) {
	for key, incoming := range foreign {
		incoming := incoming
		s.WithLock(key, func(current causal.Entry, exists bool) (causal.Entry, bool) {
			if !exists {
				incoming.Deps = causal.Deps{}
				return incoming, true
			}
			if current.Version == incoming.Version {
				return current, false
			}
			if current.Version.Less(incoming.Version) {
				incoming.Deps = causal.Deps{}
				return incoming, true
			}
			return current, false
		})
	}
}
