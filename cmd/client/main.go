// cmd/client is the CLI entry-point built with Cobra.
//
// Usage:
//
//	kvctl put mykey "hello world"                  --server http://localhost:8080
//	kvctl get mykey                                --server http://localhost:8080
//	kvctl list                                     --server http://localhost:8080
//	kvctl view view.json                           --server http://localhost:8080
//	kvctl ping                                      --server http://localhost:8080
//	kvctl hello                                     --server http://localhost:8080
//
// Every command that reads or writes data accepts --causal-metadata, a
// JSON object of the client's previously-observed metadata; every such
// command prints the updated metadata it got back so a caller can thread
// it into the next invocation.
package main

import (
	"causalkv/internal/causal"
	"causalkv/internal/client"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverAddr  string
	timeout     time.Duration
	causalMDRaw string
)

func main() {
	root := &cobra.Command{
		Use:   "kvctl",
		Short: "CLI client for a causalkv node",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:8080", "causalkv node address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")
	root.PersistentFlags().StringVar(&causalMDRaw, "causal-metadata", "{}",
		"JSON object of previously observed causal metadata")

	root.AddCommand(putCmd(), getCmd(), listCmd(), viewCmd(), pingCmd(), helloCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseMetadata() (causal.Deps, error) {
	md := causal.Deps{}
	if err := json.Unmarshal([]byte(causalMDRaw), &md); err != nil {
		return nil, fmt.Errorf("--causal-metadata is not valid JSON: %w", err)
	}
	return md, nil
}

// ─── put ──────────────────────────────────────────────────────────────────────

func putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := parseMetadata()
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			resp, err := c.Put(context.Background(), args[0], args[1], md)
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
}

// ─── get ──────────────────────────────────────────────────────────────────────

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := parseMetadata()
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			resp, err := c.Get(context.Background(), args[0], md)
			if err == client.ErrNotFound {
				fmt.Printf("key %q not found\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
}

// ─── list ─────────────────────────────────────────────────────────────────────

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every known key-value pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := parseMetadata()
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			resp, err := c.ListAll(context.Background(), md)
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
}

// ─── view ─────────────────────────────────────────────────────────────────────

func viewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "view <view.json>",
		Short: "Install a new cluster view by pushing it to this node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var view causal.View
			if err := json.Unmarshal(raw, &view); err != nil {
				return fmt.Errorf("%s is not a valid view document: %w", args[0], err)
			}
			c := client.New(serverAddr, timeout)
			if err := c.InstallView(context.Background(), view); err != nil {
				return err
			}
			fmt.Println("view installed")
			return nil
		},
	}
}

// ─── ping ─────────────────────────────────────────────────────────────────────

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that a node is alive",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			if err := c.Ping(context.Background()); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

// ─── hello ────────────────────────────────────────────────────────────────────

func helloCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hello",
		Short: "Print a node's liveness greeting",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			greeting, err := c.GetRaw(context.Background(), "/")
			if err != nil {
				return err
			}
			fmt.Println(greeting)
			return nil
		},
	}
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func prettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}
