package causal

import "maps"

// Deps is causal metadata: a key -> Version map recording what has been
// observed. It plays two roles depending on context:
//
//   - as an Entry's Deps, it is the snapshot of a client's metadata at the
//     moment of the write that produced the entry ("this write depends on
//     everything the client had already seen, no more, no less");
//   - as a client's running metadata, it is the evolving record of every
//     version that client has observed, threaded through every request and
//     response.
type Deps map[string]Version

// Copy returns a deep copy. Deps is a reference type (a map); every place
// that stores a client's metadata into an Entry must copy it first so that
// later mutation of the client's copy can't reach back into the store.
func (d Deps) Copy() Deps {
	c := make(Deps, len(d))
	maps.Copy(c, d)
	return c
}

// DepCheck reports whether every key in deps is already present in
// clientMD. This checks presence only, not version dominance — the final
// revision of the reference design deliberately does not compare versions
// here, which makes causal waits weaker than a strict reading of causal
// consistency would require. That's intentional; preserved as observed.
func DepCheck(deps, clientMD Deps) bool {
	for depKey := range deps {
		if _, ok := clientMD[depKey]; !ok {
			return false
		}
	}
	return true
}

// MergeInto tightens clientMD's existing entries using deps: for every
// (key, version) in deps, if clientMD already has that key and its version
// is older (by arbitration) than the dep's version, clientMD is advanced to
// the dep's version. Keys absent from clientMD are never added — merging
// only tightens what the client already knows about, it does not grow the
// set of keys the client has opinions on.
func MergeInto(clientMD, deps Deps) {
	for depKey, depVersion := range deps {
		if current, ok := clientMD[depKey]; ok && current.Less(depVersion) {
			clientMD[depKey] = depVersion
		}
	}
}
