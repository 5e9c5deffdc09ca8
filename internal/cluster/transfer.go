package cluster

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"causalkv/internal/causal"
	"causalkv/internal/store"
)

const transferTimeout = 5 * time.Second

// acceptKeyRequest is the wire body for POST /internal/acceptKey.
type acceptKeyRequest struct {
	Key     string         `json:"key"`
	Value   string         `json:"value"`
	Version causal.Version `json:"version"`
	Deps    causal.Deps    `json:"deps"`
}

// AcceptKey idempotently upserts a transferred entry, under its key's
// lock, with no arbitration: the sender has already ceased to own this
// key, so whatever it sends is authoritative. If two transfers for the
// same key race (e.g. a retried view install), the later arrival simply
// wins — acceptable because the sender had already committed that version
// locally before sending it (spec.md §4.9).
func AcceptKey(s *store.Store, key string, value string, version causal.Version, deps causal.Deps) {
	s.Upsert(key, causal.Entry{Value: value, Version: version, Deps: deps})
}

// transferKeys sends every (key, entry) in departing to every node in
// target, concurrently, via each target's /internal/acceptKey endpoint.
// Transfers for different keys race freely; per spec.md §4.8 step 3,
// local deletion of a key only happens after its own accept-key call
// returns (or errors, which is logged and proceeds anyway — the view
// change does not block on an unreachable destination).
func transferKeys(transport *Transport, departing map[string]causal.Entry, target []causal.NodeDescriptor) {
	var wg sync.WaitGroup
	for key, entry := range departing {
		key, entry := key, entry
		wg.Add(1)
		go func() {
			defer wg.Done()
			sendKeyToShard(transport, key, entry, target)
		}()
	}
	wg.Wait()
}

// sendKeyToShard posts one key to every node of target concurrently.
func sendKeyToShard(transport *Transport, key string, entry causal.Entry, target []causal.NodeDescriptor) {
	var wg sync.WaitGroup
	for _, node := range target {
		node := node
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), transferTimeout)
			defer cancel()

			url := fmt.Sprintf("http://%s/internal/acceptKey", node.Address)
			body := acceptKeyRequest{Key: key, Value: entry.Value, Version: entry.Version, Deps: entry.Deps}
			if _, err := transport.PostJSON(ctx, url, body, nil); err != nil {
				log.Printf("transfer: sending key %q to %s failed: %v", key, node.Address, err)
			}
		}()
	}
	wg.Wait()
}
