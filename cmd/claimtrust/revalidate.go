package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/claimtrust/claimtrust/internal/cli"
	"github.com/claimtrust/claimtrust/internal/revalidate"
)

func revalidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revalidate <claim-id>",
		Short: "Re-score a claim from its current documents",
		Long: `Runs the upload revalidation pipeline for one claim: extracts facts from
the attached documents, rebuilds the feature vector, scores it through the
ensemble and applies the resulting workflow decision. A follow-up full
analysis is scheduled automatically.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID, _ := cmd.Flags().GetString("document")

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			scheduler := revalidate.NewInProcessScheduler(newAnalyzer(store), viper.GetInt("analysis.max_concurrent"))
			orchestrator := newOrchestrator(store, scheduler)

			outcome, err := orchestrator.Revalidate(cmd.Context(), args[0], documentID)
			if err != nil {
				return fmt.Errorf("revalidation failed: %w", err)
			}

			// Let the scheduled follow-up analysis finish before exiting.
			scheduler.Wait()

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Revalidated %s: trust %.2f, %s",
				args[0], outcome.TrustScore, outcome.Recommendation)))

			claim, err := store.GetClaim(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to reload claim: %w", err)
			}
			fmt.Println(cli.RenderClaimReport(claim))
			return nil
		},
	}
	cmd.Flags().String("document", "", "document ID that triggered the revalidation")
	return cmd
}
