package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claimtrust/claimtrust/internal/cli"
)

func analyzeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <claim-id>",
		Short: "Run a full ensemble analysis for one claim",
		Long: `Runs the full analysis pipeline synchronously: scores the claim through
the ensemble, applies the workflow decision, records the audit trail and
recomputes the organization's trust score.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := newAnalyzer(store).Analyze(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			claim, err := store.GetClaim(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to reload claim: %w", err)
			}
			fmt.Println(cli.RenderClaimReport(claim))
			return nil
		},
	}
}
