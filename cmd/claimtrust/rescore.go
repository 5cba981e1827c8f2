package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/claimtrust/claimtrust/internal/cli"
	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

func rescoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rescore",
		Short: "Re-run the full analysis over a batch of claims",
		Long: `Re-scores every claim matching the filter through the current ensemble.
Useful after deploying new model artifacts. Each claim gets a fresh
analysis run appended to its history; the live scores are overwritten.`,
		RunE: runRescore,
	}
	cmd.Flags().String("org", "", "only rescore claims for this organization")
	cmd.Flags().String("status", "", "only rescore claims in this status")
	cmd.Flags().Int("concurrency", 4, "number of claims analyzed in parallel")
	cmd.Flags().Int("limit", 0, "maximum number of claims to rescore (0 = all)")
	return cmd
}

func runRescore(cmd *cobra.Command, _ []string) error {
	orgID, _ := cmd.Flags().GetString("org")
	status, _ := cmd.Flags().GetString("status")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	limit, _ := cmd.Flags().GetInt("limit")
	if concurrency < 1 {
		concurrency = 1
	}

	store, err := openStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	filter := service.ClaimFilter{OrgID: orgID, Limit: limit}
	if status != "" {
		filter.Statuses = []model.ClaimStatus{model.ClaimStatus(status)}
	}

	claims, err := store.ListClaims(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list claims: %w", err)
	}
	if len(claims) == 0 {
		fmt.Println(cli.FormatInfo("No claims matched the filter"))
		return nil
	}

	analyzer := newAnalyzer(store)
	bar := progressbar.NewOptions(len(claims),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Rescoring claims...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)
	var mu sync.Mutex
	failed := 0

	for _, claim := range claims {
		wg.Add(1)
		go func(claimID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if analyzeErr := analyzer.Analyze(cmd.Context(), claimID); analyzeErr != nil {
				slog.Error("Rescore failed for claim", "claim_id", claimID, "error", analyzeErr)
				mu.Lock()
				failed++
				mu.Unlock()
			}
			_ = bar.Add(1)
		}(claim.ID)
	}
	wg.Wait()

	if failed > 0 {
		fmt.Println(cli.FormatWarning(fmt.Sprintf("Rescored %d claim(s), %d failed", len(claims)-failed, failed)))
		return nil
	}
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Rescored %d claim(s)", len(claims))))
	return nil
}
