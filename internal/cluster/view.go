package cluster

import (
	"net/http"

	"causalkv/internal/causal"
	"causalkv/internal/store"
)

// ViewManager installs new views on behalf of the operator (spec.md §4.8).
// It is the sole writer of Membership's view/shard state, which is why
// Membership itself only needs a single RWMutex rather than anything
// fancier.
type ViewManager struct {
	membership *Membership
	router     *Router
	store      *store.Store
	transport  *Transport
	gossip     *GossipDriver
}

// NewViewManager wires a ViewManager for one node.
func NewViewManager(m *Membership, router *Router, s *store.Store, gossip *GossipDriver) *ViewManager {
	return &ViewManager{
		membership: m,
		router:     router,
		store:      s,
		transport:  NewTransport(&http.Client{Timeout: transferTimeout}),
		gossip:     gossip,
	}
}

// Install installs a new view:
//
//  1. Determine this node's new shard by finding the shard whose node list
//     contains this node's id. If none, the node has been evicted: its
//     view/shard state is cleared (becoming Offline) but its store is left
//     untouched (unreachable, not erased — see DESIGN.md open question 4).
//  2. Set shard membership accordingly.
//  3. Redistribute keys: for every key currently stored whose correct
//     shard (under the new view) is not this node's new shard, transfer it
//     (concurrently, via /internal/acceptKey) to every node of the
//     destination shard, then delete it locally. Transfers of the keys
//     bound for one destination shard proceed concurrently; destination
//     shards are handled one after another. A key's local deletion happens
//     only after its own transfer call returns (success or logged failure).
//
// Invariant 1 (every stored key routes to this node's shard) holds once
// Install returns.
func (vm *ViewManager) Install(view causal.View) error {
	selfID := vm.membership.SelfID()

	newShardName, newShardNodes := findOwnShard(view, selfID)

	if newShardName == "" {
		// Evicted (or the view never contained this node at all): go
		// Offline. The store is left in place — see DESIGN.md.
		vm.membership.set(causal.View{}, "", nil)
		return nil
	}

	vm.membership.set(view, newShardName, newShardNodes)

	departing := make(map[string]map[string]causal.Entry) // destination shard -> keys
	for _, key := range vm.store.Keys() {
		correct, err := vm.router.Shard(key, view)
		if err != nil {
			continue
		}
		if correct == newShardName {
			continue
		}
		entry, ok := vm.store.Lookup(key)
		if !ok {
			continue
		}
		if departing[correct] == nil {
			departing[correct] = make(map[string]causal.Entry)
		}
		departing[correct][key] = entry
	}

	for destShard, entries := range departing {
		target := view[destShard]
		transferKeys(vm.transport, entries, target)
		for key := range entries {
			vm.store.Delete(key)
		}
	}

	if vm.gossip != nil {
		go vm.gossip.PushNow()
	}

	return nil
}

// findOwnShard returns the name and node list of the shard in view that
// contains selfID, or ("", nil) if no shard contains it.
func findOwnShard(view causal.View, selfID int) (string, []causal.NodeDescriptor) {
	for name, nodes := range view {
		for _, n := range nodes {
			if n.ID == selfID {
				return name, nodes
			}
		}
	}
	return "", nil
}
