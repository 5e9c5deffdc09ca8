// cmd/server is the main entrypoint for a causalkv node.
//
// A node's identity comes from the NODE_IDENTIFIER environment variable
// (matching the node id it will be given in any view installed later);
// everything else is a flag. A node starts Offline — with no view, its
// data endpoints answer 503 — until PUT /view brings it online,
// optionally bootstrapped at startup via --view-file.
//
// Example — single node, started offline, brought online by a view push:
//
//	NODE_IDENTIFIER=1 ./server --addr :8080
//
// Example — bootstrapped directly into a view at startup:
//
//	NODE_IDENTIFIER=1 ./server --addr :8080 --view-file view.json
package main

import (
	"causalkv/internal/api"
	"causalkv/internal/causal"
	"causalkv/internal/cluster"
	"causalkv/internal/store"
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// ── Flags / environment ────────────────────────────────────────────────
	addr := flag.String("addr", ":8080", "Listen address (host:port)")
	viewFile := flag.String("view-file", "", "Optional path to a JSON view document to install at startup")
	flag.Parse()

	nodeIDRaw := os.Getenv("NODE_IDENTIFIER")
	if nodeIDRaw == "" {
		log.Fatal("FATAL: NODE_IDENTIFIER environment variable is required")
	}
	nodeID, err := strconv.Atoi(nodeIDRaw)
	if err != nil {
		log.Fatalf("FATAL: NODE_IDENTIFIER must be an integer, got %q", nodeIDRaw)
	}

	// ── Storage and cluster-plane components ──────────────────────────────
	s := store.New()
	router := cluster.NewRouter()
	membership := cluster.NewMembership(nodeID)
	gossip := cluster.NewGossipDriver(membership, s)
	viewMgr := cluster.NewViewManager(membership, router, s, gossip)

	if *viewFile != "" {
		raw, err := os.ReadFile(*viewFile)
		if err != nil {
			log.Fatalf("read view file: %v", err)
		}
		var view causal.View
		if err := json.Unmarshal(raw, &view); err != nil {
			log.Fatalf("parse view file: %v", err)
		}
		if err := viewMgr.Install(view); err != nil {
			log.Fatalf("install startup view: %v", err)
		}
	}

	gossip.Start()
	defer gossip.Stop()

	// ── HTTP server ────────────────────────────────────────────────────────
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(api.Logger(), api.Recovery())

	handler := api.NewHandler(s, router, membership, gossip, viewMgr)
	handler.Register(engine)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      engine,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// ── Graceful shutdown ──────────────────────────────────────────────────
	// Listen for SIGINT/SIGTERM and give in-flight requests 15s to complete.
	go func() {
		log.Printf("node %d listening on %s", nodeID, *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("shutting down node %d", nodeID)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
}
