// Package main is the ragcore composition root: it wires every collaborator
// from internal/* into an orchestrator.Orchestrator and exposes it through a
// small cobra CLI, following the teacher's single-binary, flag-driven
// composition style (cmd/superagent/main.go) but split across ask/serve
// subcommands the way Yates-Labs-thunk structures its cobra tree.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ragcore",
	Short: "ragcore - enterprise retrieval-augmented generation pipeline",
	Long: `ragcore runs a single RAG request through a fixed twelve-stage pipeline:
input safety, routing, dispatch, query expansion, retrieval, dedup/fusion,
rerank, compression, generation, grounding, output validation and finalize.

It can be driven as a one-shot CLI query (ask) or as a long-running HTTP
server exposing /ask and /metrics (serve).`,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional; defaults apply when absent)")
}

// Execute runs the root command.
func Execute() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
