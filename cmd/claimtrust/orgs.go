package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/claimtrust/claimtrust/internal/cli"
	"github.com/claimtrust/claimtrust/internal/orgtrust"
	"github.com/claimtrust/claimtrust/internal/revalidate"
)

func orgsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "Organization trust maintenance",
	}

	cmd.AddCommand(orgsRecomputeCmd())
	cmd.AddCommand(orgsSLASweepCmd())
	cmd.AddCommand(orgsHistoryCmd())

	return cmd
}

func orgsRecomputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recompute <org-id>",
		Short: "Recompute an organization's trust score from recent claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := orgtrust.NewRecomputer(store).Recompute(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("trust recomputation failed: %w", err)
			}

			org, err := store.GetOrganization(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to reload organization: %w", err)
			}
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s trust score: %.2f", org.Name, org.TrustScore)))
			return nil
		},
	}
}

func orgsSLASweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sla-sweep",
		Short: "Flag open claims past their SLA deadline",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			marked, err := orgtrust.NewSLASweeper(store, revalidate.LogNotifier{}).Sweep(cmd.Context())
			if err != nil {
				return fmt.Errorf("SLA sweep failed: %w", err)
			}

			if marked == 0 {
				fmt.Println(cli.FormatSuccess("No SLA breaches detected"))
				return nil
			}
			fmt.Println(cli.FormatWarning(fmt.Sprintf("Marked %d claim(s) as SLA-breached", marked)))
			return nil
		},
	}
}

func orgsHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <org-id>",
		Short: "Show an organization's trust score history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			entries, err := store.GetTrustHistory(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load trust history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Println(cli.FormatInfo("No trust recomputations recorded"))
				return nil
			}

			for _, entry := range entries {
				fmt.Printf("%s  %6.2f (was %6.2f)  claims=%d\n",
					entry.CreatedAt.Format("2006-01-02 15:04"),
					entry.Score,
					entry.PreviousScore,
					int(entry.Factors["claim_sample_size"]))
			}
			return nil
		},
	}
}
