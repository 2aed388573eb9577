package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ragcore/internal/ragtype"
)

var (
	askUserID    string
	askSessionID string
	askTenantID  string
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Run a single question through the pipeline and print the response",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVar(&askUserID, "user", "cli-user", "user ID attached to the query")
	askCmd.Flags().StringVar(&askSessionID, "session", "cli-session", "session ID attached to the query")
	askCmd.Flags().StringVar(&askTenantID, "tenant", "default", "tenant ID attached to the query")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full Response as JSON instead of a formatted summary")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := buildApp(ctx)
	if err != nil {
		return fmt.Errorf("building app: %w", err)
	}
	defer a.Close()

	resp := a.orch.Handle(ctx, ragtype.Query{
		Text:      args[0],
		UserID:    askUserID,
		TenantID:  askTenantID,
		SessionID: askSessionID,
	})

	if askJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printResponse(cmd, resp)
	return nil
}

func printResponse(cmd *cobra.Command, resp ragtype.Response) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "trace: %s\n", resp.TraceID)
	if resp.Blocked {
		fmt.Fprintf(out, "blocked: %s\n", resp.BlockReason)
		return
	}
	if resp.Answer != nil {
		fmt.Fprintf(out, "answer: %s\n", *resp.Answer)
	}
	if resp.Fallback {
		fmt.Fprintln(out, "(fallback response)")
	}
	fmt.Fprintf(out, "route: %s\n", resp.Metadata.RouteUsed)
	if resp.Metadata.FaithfulnessScore != nil {
		fmt.Fprintf(out, "faithfulness: %.2f\n", *resp.Metadata.FaithfulnessScore)
	}
	for i, s := range resp.Sources {
		fmt.Fprintf(out, "source[%d]: %s/%s (score %.3f)\n", i, s.DocID, s.ChunkID, s.RelevanceScore)
	}
}
