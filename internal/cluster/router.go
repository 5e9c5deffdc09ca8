// Package cluster handles everything that spans more than one node:
//
//   - Router: which shard owns a given key, given the current view.
//   - Convergence: merging a peer's snapshot of its keyspace into ours.
//   - Gossip: the background task that pushes snapshots to shard peers.
//   - View manager: installing a new view and transferring keys that no
//     longer belong to this shard.
//   - Transport: the one place an HTTP call is made to another node.
//
// Big idea — why a router at all?
//
// A deployment has many shards, each owning a disjoint slice of the
// keyspace. Every node needs to answer, deterministically and without
// asking anyone else, "which shard owns this key?" — so that a client
// hitting any node gets routed (by forwarding, not by redirecting the
// client) to the shard that actually holds the data.
//
// Unlike a consistent-hash ring built for *minimal* remapping on
// membership change, this router is intentionally simple: hash the key,
// mod by the number of shards, index into the shards sorted by name. Key
// movement on a view change is handled explicitly (see view.go's key
// transfer), not minimized by the hash function — there is no need for
// virtual nodes here because the unit of rebalancing is "shard", not
// "node", and shards are not expected to change anywhere near as often as
// replicas within a shard.
package cluster

import (
	"crypto/sha1"
	"errors"
	"math/big"
	"sort"

	"causalkv/internal/causal"
)

// ErrNoShards is returned when Shard is asked to route a key against an
// empty view — this is the "node not online" condition from the rest of
// the system's point of view.
var ErrNoShards = errors.New("cluster: view has no shards")

// Router computes, for a key and a view, the one shard name responsible
// for it. Router itself holds no state; the view is passed in explicitly
// so callers always route against a specific, consistent snapshot of
// control-plane state.
type Router struct{}

// NewRouter constructs a Router. There is nothing to configure — the
// routing rule is fixed by spec, not by deployment.
func NewRouter() *Router {
	return &Router{}
}

// Shard returns the name of the shard that owns key under view.
//
// Algorithm: SHA-1 the UTF-8 bytes of key, interpret the 20-byte digest as
// a big-endian unsigned integer, mod it by the number of shards, and index
// into the shard names sorted lexicographically. Sorting first makes the
// mapping reproducible across every node that holds the same view, since
// Go (like most languages) does not guarantee map iteration order.
func (r *Router) Shard(key string, view causal.View) (string, error) {
	names := sortedShardNames(view)
	if len(names) == 0 {
		return "", ErrNoShards
	}

	digest := sha1.Sum([]byte(key))
	n := new(big.Int).SetBytes(digest[:])
	idx := new(big.Int).Mod(n, big.NewInt(int64(len(names))))

	return names[idx.Int64()], nil
}

// sortedShardNames returns the shard names of view in lexicographic order.
func sortedShardNames(view causal.View) []string {
	names := make([]string, 0, len(view))
	for name := range view {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
