// Package api wires up the Gin HTTP router and implements the causal
// read/write protocol: the write path, the read path's causal wait loop,
// list-all, view installation, and the two internal peer endpoints.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"causalkv/internal/causal"
	"causalkv/internal/cluster"
	"causalkv/internal/store"

	"github.com/gin-gonic/gin"
)

// causalWaitInterval is how long the read path sleeps between polls of
// the local store while waiting for a dependency or a newer version to
// arrive via gossip.
const causalWaitInterval = 200 * time.Millisecond

// forwardTimeout bounds a cross-shard forward; spec.md §5 calls for a
// short transport-level timeout here (no retries — a timeout or any other
// transport failure surfaces as 503 to the caller).
const forwardTimeout = 2 * time.Second

// Handler holds every dependency a request needs: the local store, the
// router, this node's view/shard membership, the gossip driver (for the
// eager post-write push), and the Transport used to forward a write or
// read to the shard that actually owns the key.
type Handler struct {
	store      *store.Store
	router     *cluster.Router
	membership *cluster.Membership
	gossip     *cluster.GossipDriver
	viewMgr    *cluster.ViewManager
	selfID     int

	transport *cluster.Transport
}

// NewHandler builds a Handler.
func NewHandler(s *store.Store, router *cluster.Router, m *cluster.Membership, gossip *cluster.GossipDriver, viewMgr *cluster.ViewManager) *Handler {
	return &Handler{
		store:      s,
		router:     router,
		membership: m,
		gossip:     gossip,
		viewMgr:    viewMgr,
		selfID:     m.SelfID(),
		transport:  cluster.NewTransport(&http.Client{Timeout: forwardTimeout}),
	}
}

// Register mounts every route from spec.md §6.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.Hello)
	r.GET("/ping", h.Ping)

	r.GET("/data/:key", h.GetData)
	r.PUT("/data/:key", h.PutData)
	r.GET("/data", h.ListData)

	r.PUT("/view", h.PutView)

	internal := r.Group("/internal")
	internal.POST("/converge", h.InternalConverge)
	internal.POST("/acceptKey", h.InternalAcceptKey)
}

// ─── Liveness ─────────────────────────────────────────────────────────────────

// Hello handles GET / — a fixed liveness greeting, served even Offline.
func (h *Handler) Hello(c *gin.Context) {
	c.String(http.StatusOK, "causal key-value store node")
}

// Ping handles GET /ping — served even Offline, per the node state
// machine in spec.md §4.10.
func (h *Handler) Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "node ready", "node_id": h.selfID})
}

// ─── Write path (spec.md §4.3) ────────────────────────────────────────────────

type putBody struct {
	Value          *string      `json:"value"`
	CausalMetadata *causal.Deps `json:"causal-metadata"`
}

// PutData handles PUT /data/:key.
func (h *Handler) PutData(c *gin.Context) {
	key := c.Param("key")

	view := h.membership.View()
	if len(view) == 0 {
		notOnline(c)
		return
	}

	var body putBody
	if err := c.ShouldBindJSON(&body); err != nil || body.Value == nil || body.CausalMetadata == nil {
		badRequest(c, "request body must include 'value' (string) and 'causal-metadata' (object)")
		return
	}

	correct, err := h.router.Shard(key, view)
	if err != nil {
		notOnline(c)
		return
	}

	if correct != h.membership.ShardName() {
		h.forwardPut(c, correct, view, key, body)
		return
	}

	clientMD := (*body.CausalMetadata).Copy()
	version := causal.Version{Timestamp: nowSeconds(), Node: h.selfID}

	h.store.Upsert(key, causal.Entry{
		Value:   *body.Value,
		Version: version,
		Deps:    clientMD.Copy(),
	})

	clientMD[key] = version

	if h.gossip != nil {
		go h.gossip.PushNow()
	}

	c.JSON(http.StatusOK, gin.H{"causal-metadata": clientMD})
}

// forwardPut forwards an identical PUT to a node of the correct shard and
// relays its response (status + decoded JSON body) back to the caller.
func (h *Handler) forwardPut(c *gin.Context, correct string, view causal.View, key string, body putBody) {
	nodes := view[correct]
	if len(nodes) == 0 {
		notOnline(c)
		return
	}
	target := nodes[rand.Intn(len(nodes))]
	url := fmt.Sprintf("http://%s/data/%s", target.Address, key)

	ctx, cancel := context.WithTimeout(c.Request.Context(), forwardTimeout)
	defer cancel()

	var respBody map[string]any
	resp, err := h.transport.PutJSON(ctx, url, body, &respBody)
	if err != nil {
		serviceUnavailable(c, "forwarding failed")
		return
	}

	c.JSON(resp.StatusCode, respBody)
}

// ─── Read path (spec.md §4.4) ─────────────────────────────────────────────────

// GetData handles GET /data/:key.
func (h *Handler) GetData(c *gin.Context) {
	key := c.Param("key")

	view := h.membership.View()
	if len(view) == 0 {
		notOnline(c)
		return
	}

	clientMD, ok := h.readRequestMetadata(c)
	if !ok {
		return
	}

	correct, err := h.router.Shard(key, view)
	if err != nil {
		notOnline(c)
		return
	}

	if correct != h.membership.ShardName() {
		h.forwardGet(c, correct, view, key, clientMD)
		return
	}

	entry, _, err := h.waitForRead(c.Request.Context(), key, clientMD)
	if err != nil {
		notFound(c)
		return
	}

	clientMD[key] = entry.Version
	c.JSON(http.StatusOK, gin.H{"value": entry.Value, "causal-metadata": clientMD})
}

// forwardGet forwards a GET to a node of the correct shard, passing
// metadata through the X-Causal-Metadata header, and relays its response
// (status + decoded JSON body) back to the caller.
func (h *Handler) forwardGet(c *gin.Context, correct string, view causal.View, key string, clientMD causal.Deps) {
	nodes := view[correct]
	if len(nodes) == 0 {
		notOnline(c)
		return
	}
	target := nodes[rand.Intn(len(nodes))]
	url := fmt.Sprintf("http://%s/data/%s", target.Address, key)
	mdBytes, _ := json.Marshal(clientMD)

	ctx, cancel := context.WithTimeout(c.Request.Context(), forwardTimeout)
	defer cancel()

	var respBody map[string]any
	resp, err := h.transport.GetJSON(ctx, url, map[string]string{"X-Causal-Metadata": string(mdBytes)}, &respBody)
	if err != nil {
		serviceUnavailable(c, "forwarding failed")
		return
	}

	c.JSON(resp.StatusCode, respBody)
}

// waitForRead implements the causal wait loop from spec.md §4.4: block
// (polling every ~200ms, unbounded) until key can be served to a client
// bearing clientMD, or until it's clear the key has never existed anywhere
// (empty clientMD + absent locally => 404).
//
// clientMD is mutated in place: on success it is advanced by merging the
// returned entry's deps (tighten-only) — the key's own version is set by
// the caller, after waitForRead returns, since both the single-key read
// and list-all share this loop but update client_md slightly differently
// around it.
func (h *Handler) waitForRead(ctx context.Context, key string, clientMD causal.Deps) (causal.Entry, bool, error) {
	for {
		entry, exists := h.store.Lookup(key)

		if len(clientMD) == 0 {
			if exists {
				return entry, true, nil
			}
			return causal.Entry{}, false, errNotFound
		}

		if exists && causal.DepCheck(entry.Deps, clientMD) {
			seenVersion, seenBefore := clientMD[key]
			// Serve as soon as the stored version is at least as new as
			// whatever the client already observed for this key; otherwise
			// this replica is still behind and we wait for gossip.
			if !seenBefore || entry.Version == seenVersion || seenVersion.Less(entry.Version) {
				causal.MergeInto(clientMD, entry.Deps)
				return entry, true, nil
			}
		}

		select {
		case <-ctx.Done():
			return causal.Entry{}, false, ctx.Err()
		case <-time.After(causalWaitInterval):
		}
	}
}

// ─── List-all (spec.md §4.5) ───────────────────────────────────────────────────

type causalMDBody struct {
	CausalMetadata *causal.Deps `json:"causal-metadata"`
}

// ListData handles GET /data.
func (h *Handler) ListData(c *gin.Context) {
	view := h.membership.View()
	if len(view) == 0 {
		notOnline(c)
		return
	}

	var body causalMDBody
	if err := c.ShouldBindJSON(&body); err != nil || body.CausalMetadata == nil {
		badRequest(c, "request body must include 'causal-metadata' (object)")
		return
	}

	clientMD := (*body.CausalMetadata).Copy()
	originalMD := clientMD.Copy()

	keySet := make(map[string]struct{})
	for _, k := range h.store.Keys() {
		keySet[k] = struct{}{}
	}
	for k := range originalMD {
		keySet[k] = struct{}{}
	}

	items := make(map[string]string, len(keySet))
	for key := range keySet {
		entry, _, err := h.waitForRead(c.Request.Context(), key, originalMD.Copy())
		if err != nil {
			notFound(c)
			return
		}
		items[key] = entry.Value
		clientMD[key] = entry.Version
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "causal-metadata": clientMD})
}

// ─── View installation (spec.md §4.8) ─────────────────────────────────────────

type putViewBody struct {
	View *causal.View `json:"view"`
}

// PutView handles PUT /view. Always served, even Offline (this IS how a
// node leaves Offline).
func (h *Handler) PutView(c *gin.Context) {
	var body putViewBody
	if err := c.ShouldBindJSON(&body); err != nil || body.View == nil {
		badRequest(c, "request body must include 'view'")
		return
	}

	if err := h.viewMgr.Install(*body.View); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "new view accepted"})
}

// ─── Internal peer endpoints (spec.md §4.6, §4.9) ─────────────────────────────

// InternalConverge handles POST /internal/converge.
func (h *Handler) InternalConverge(c *gin.Context) {
	var req struct {
		KVs map[string]causal.Entry `json:"kvs"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed converge payload")
		return
	}
	cluster.Converge(h.store, req.KVs)
	c.Status(http.StatusOK)
}

// InternalAcceptKey handles POST /internal/acceptKey.
func (h *Handler) InternalAcceptKey(c *gin.Context) {
	var req struct {
		Key     string         `json:"key"`
		Value   string         `json:"value"`
		Version causal.Version `json:"version"`
		Deps    causal.Deps    `json:"deps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "malformed acceptKey payload")
		return
	}
	cluster.AcceptKey(h.store, req.Key, req.Value, req.Version, req.Deps)
	c.Status(http.StatusOK)
}

var errNotFound = fmt.Errorf("key not found")

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
