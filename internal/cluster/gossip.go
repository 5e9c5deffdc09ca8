package cluster

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"causalkv/internal/causal"
	"causalkv/internal/store"
)

// defaultGossipInterval and defaultGossipFanout match the reference
// design: every ~2 seconds, push the full local store to up to 2 randomly
// chosen peers within the shard.
const (
	defaultGossipInterval = 2 * time.Second
	defaultGossipFanout   = 2
	gossipPushTimeout     = 10 * time.Second
)

// convergeRequest is the wire body for POST /internal/converge.
type convergeRequest struct {
	KVs map[string]causal.Entry `json:"kvs"`
}

// GossipDriver periodically (and eagerly, on demand) pushes this node's
// entire local store to a handful of random peers within its shard. Send
// failures are logged and ignored — delivery is eventual, guaranteed by
// repetition, never by retry.
//
// The loop is a ticker goroutine started at boot, with an explicit stop
// channel so it can be torn down on shutdown instead of leaking until
// process exit.
type GossipDriver struct {
	membership *Membership
	store      *store.Store
	transport  *Transport
	interval   time.Duration
	fanout     int

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewGossipDriver builds a driver with the reference interval/fanout.
func NewGossipDriver(m *Membership, s *store.Store) *GossipDriver {
	return &GossipDriver{
		membership: m,
		store:      s,
		transport:  NewTransport(&http.Client{Timeout: gossipPushTimeout}),
		interval:   defaultGossipInterval,
		fanout:     defaultGossipFanout,
		stop:       make(chan struct{}),
	}
}

// Start launches the periodic gossip loop in a background goroutine. Call
// Stop to terminate it.
func (g *GossipDriver) Start() {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if g.membership.Online() {
					g.PushNow()
				}
			case <-g.stop:
				return
			}
		}
	}()
}

// Stop cancels the background loop and waits for it to exit.
func (g *GossipDriver) Stop() {
	close(g.stop)
	g.wg.Wait()
}

// PushNow pushes the current local store to up to fanout random peers in
// this node's shard, right now. Called both from the ticker and eagerly
// after every successful local write and after every view install.
func (g *GossipDriver) PushNow() {
	peers := g.choosePeers()
	if len(peers) == 0 {
		return
	}

	snapshot := g.store.Snapshot()
	var wg sync.WaitGroup
	for _, peer := range peers {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			if err := g.pushTo(addr, snapshot); err != nil {
				log.Printf("gossip: push to %s failed: %v", addr, err)
			}
		}(peer.Address)
	}
	wg.Wait()
}

// pushTo sends the local snapshot to one peer's /internal/converge
// endpoint. Errors are returned to the caller, which logs and drops them —
// there is no retry here; the next gossip tick (or the next eager push)
// tries again.
func (g *GossipDriver) pushTo(addr string, snapshot map[string]causal.Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), gossipPushTimeout)
	defer cancel()

	url := fmt.Sprintf("http://%s/internal/converge", addr)
	_, err := g.transport.PostJSON(ctx, url, convergeRequest{KVs: snapshot}, nil)
	return err
}

// choosePeers returns up to fanout distinct shard peers, excluding self.
func (g *GossipDriver) choosePeers() []causal.NodeDescriptor {
	self := g.membership.SelfID()
	nodes := g.membership.ShardNodes()

	candidates := make([]causal.NodeDescriptor, 0, len(nodes))
	for _, n := range nodes {
		if n.ID != self {
			candidates = append(candidates, n)
		}
	}

	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	if len(candidates) > g.fanout {
		candidates = candidates[:g.fanout]
	}
	return candidates
}
