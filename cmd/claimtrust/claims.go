package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/claimtrust/claimtrust/internal/cli"
	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

func claimsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "claims",
		Short: "Import and inspect claims",
	}

	cmd.AddCommand(claimsImportCmd())
	cmd.AddCommand(claimsShowCmd())
	cmd.AddCommand(claimsListCmd())

	return cmd
}

// claimImport is the wire format of one claim in an import file.
type claimImport struct {
	ID             string   `json:"id"`
	ClaimNumber    string   `json:"claim_number"`
	OrganizationID string   `json:"organization_id"`
	PatientID      string   `json:"patient_id"`
	Status         string   `json:"status"`
	ClaimedAmount  float64  `json:"claimed_amount"`
	AdmissionDate  string   `json:"admission_date"`
	DischargeDate  string   `json:"discharge_date"`
	DiagnosisCodes []string `json:"diagnosis_codes"`
	ProcedureCodes []string `json:"procedure_codes"`
	PatientAge     int      `json:"patient_age"`
	SLADeadline    string   `json:"sla_deadline"`
}

type documentImport struct {
	ID            string            `json:"id"`
	ClaimID       string            `json:"claim_id"`
	FileName      string            `json:"file_name"`
	MimeType      string            `json:"mime_type"`
	OCRText       string            `json:"ocr_text"`
	OCRData       map[string]string `json:"ocr_data"`
	OCRConfidence float64           `json:"ocr_confidence"`
}

type orgImport struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	TrustScore float64 `json:"trust_score"`
}

type importFile struct {
	Organizations []orgImport      `json:"organizations"`
	Claims        []claimImport    `json:"claims"`
	Documents     []documentImport `json:"documents"`
}

// parseDate accepts dates with or without a time component.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func claimsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import organizations, claims and documents from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read import file: %w", err)
			}

			var file importFile
			if err := json.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("failed to parse import file: %w", err)
			}

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			ctx := cmd.Context()
			for _, org := range file.Organizations {
				if err := store.SaveOrganization(ctx, &model.Organization{
					ID:         org.ID,
					Name:       org.Name,
					TrustScore: org.TrustScore,
				}); err != nil {
					return fmt.Errorf("failed to import organization %s: %w", org.ID, err)
				}
			}

			for _, in := range file.Claims {
				claim, convErr := toClaim(in)
				if convErr != nil {
					return fmt.Errorf("invalid claim %s: %w", in.ClaimNumber, convErr)
				}
				if err := store.SaveClaim(ctx, claim); err != nil {
					return fmt.Errorf("failed to import claim %s: %w", claim.ClaimNumber, err)
				}
			}

			for _, in := range file.Documents {
				doc := toDocument(in)
				if err := store.SaveDocument(ctx, doc); err != nil {
					return fmt.Errorf("failed to import document %s: %w", doc.ID, err)
				}
			}

			slog.Info("Import completed",
				"organizations", len(file.Organizations),
				"claims", len(file.Claims),
				"documents", len(file.Documents))
			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d claim(s) with %d document(s)",
				len(file.Claims), len(file.Documents))))
			return nil
		},
	}
}

func toClaim(in claimImport) (*model.Claim, error) {
	admission, err := parseDate(in.AdmissionDate)
	if err != nil {
		return nil, fmt.Errorf("bad admission_date: %w", err)
	}
	discharge, err := parseDate(in.DischargeDate)
	if err != nil {
		return nil, fmt.Errorf("bad discharge_date: %w", err)
	}
	deadline, err := parseDate(in.SLADeadline)
	if err != nil {
		return nil, fmt.Errorf("bad sla_deadline: %w", err)
	}

	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	status := model.ClaimStatus(in.Status)
	if in.Status == "" {
		status = model.StatusSubmitted
	}

	return &model.Claim{
		ID:             id,
		ClaimNumber:    in.ClaimNumber,
		OrganizationID: in.OrganizationID,
		PatientID:      in.PatientID,
		Status:         status,
		ClaimedAmount:  in.ClaimedAmount,
		AdmissionDate:  admission,
		DischargeDate:  discharge,
		DiagnosisCodes: in.DiagnosisCodes,
		ProcedureCodes: in.ProcedureCodes,
		PatientAge:     in.PatientAge,
		SLADeadline:    deadline,
	}, nil
}

func toDocument(in documentImport) *model.Document {
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}
	return &model.Document{
		ID:            id,
		ClaimID:       in.ClaimID,
		FileName:      in.FileName,
		MimeType:      in.MimeType,
		OCRText:       in.OCRText,
		OCRData:       in.OCRData,
		OCRConfidence: in.OCRConfidence,
		OCRExtracted:  in.OCRText != "",
	}
}

func claimsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <claim-id>",
		Short: "Show a claim's scores, risk factors and analysis history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, _ := cmd.Flags().GetBool("history")

			store, err := openStorage()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			claim, err := store.GetClaim(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to load claim %s: %w", args[0], err)
			}

			fmt.Println(cli.RenderClaimReport(claim))

			if history {
				results, histErr := store.GetResultsByClaim(cmd.Context(), claim.ID)
				if histErr != nil {
					return fmt.Errorf("failed to load analysis history: %w", histErr)
				}
				fmt.Println(cli.RenderResultHistory(results))
			}
			return nil
		},
	}
	cmd.Flags().Bool("history", false, "also show the analysis run history")
	return cmd
}

func claimsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List claims, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			orgID, _ := cmd.Flags().GetString("org")
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")

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
				fmt.Println(cli.FormatInfo("No claims found"))
				return nil
			}

			for _, claim := range claims {
				line := fmt.Sprintf("%-38s %-16s %-18s $%10.2f", claim.ID, claim.ClaimNumber, claim.Status, claim.ClaimedAmount)
				if claim.Analyzed {
					line += fmt.Sprintf("  trust %6.2f  %s", claim.TrustScore, claim.Recommendation)
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().String("org", "", "filter by organization ID")
	cmd.Flags().String("status", "", "filter by claim status")
	cmd.Flags().Int("limit", 50, "maximum number of claims to show")
	return cmd
}
