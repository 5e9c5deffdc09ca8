package causal

// Entry is one live record in a replica's store: a value, the Version it
// was written at, and the Deps captured at write time.
type Entry struct {
	Value   string  `json:"value"`
	Version Version `json:"version"`
	Deps    Deps    `json:"deps"`
}

// NodeDescriptor identifies one cluster member: its node id and the
// host:port other nodes dial to reach it.
type NodeDescriptor struct {
	ID      int    `json:"id"`
	Address string `json:"address"`
}

// View is the control-plane mapping of shard name -> member nodes. Shard
// names are sorted lexicographically wherever a stable ordering is needed
// (the router's hash-to-shard mapping depends on this).
type View map[string][]NodeDescriptor
