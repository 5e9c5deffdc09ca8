// Package causal implements the data model that makes the store
// causally consistent: per-write versions, per-write dependency sets, and
// the arbitration order that every replica uses to agree on a winner
// without talking to each other.
//
// Big idea:
//
//  1. Every write gets a Version: a wall-clock timestamp plus the id of the
//     node that authored it.
//  2. Every write also records a Deps set: the causal metadata the client
//     already had when it wrote, i.e. everything it had already seen.
//  3. Replicas that disagree about a key never negotiate — they apply the
//     same arbitration order (timestamp, then node id) and always agree on
//     which version wins, because the order is total and deterministic.
//
// This is deliberately weaker than a vector clock: it buys a total order
// for free (no coordination, no size proportional to cluster size) at the
// cost of only approximating "happened-before" via wall-clock time. Ties
// (and clock skew) are broken by node id so the order is still total even
// when two nodes write in the same wall-clock instant.
package causal

// Version identifies one write. Versions are totally ordered by
// arbitration: the one with the larger Timestamp wins; ties are broken by
// the larger Node id.
type Version struct {
	Timestamp float64 `json:"timestamp"`
	Node      int     `json:"node"`
}

// Less reports whether v sorts strictly before other under arbitration
// order: v.Timestamp < other.Timestamp, or equal timestamps and
// v.Node < other.Node.
func (v Version) Less(other Version) bool {
	if v.Timestamp != other.Timestamp {
		return v.Timestamp < other.Timestamp
	}
	return v.Node < other.Node
}
