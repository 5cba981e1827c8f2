package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claimtrust/claimtrust/internal/model"
)

// fraudFlagThreshold marks a historical claim as fraud-flagged for the
// organization fraud rate.
const fraudFlagThreshold = 0.7

// GetOrgStats computes the 30-day statistical snapshot for an organization.
// Unknown organizations and empty windows yield the documented defaults.
func (s *SQLiteStorage) GetOrgStats(ctx context.Context, orgID string) (model.OrgStats, error) {
	if err := validateContext(ctx); err != nil {
		return model.DefaultOrgStats(), err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return model.DefaultOrgStats(), err
	}

	stats := model.DefaultOrgStats()

	var trustScore float64
	err := s.db.QueryRowContext(ctx, `SELECT trust_score FROM organizations WHERE id = ?`, orgID).Scan(&trustScore)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// keep the default of 50.0
	case err != nil:
		return stats, fmt.Errorf("failed to fetch organization trust: %w", err)
	default:
		stats.TrustScore = trustScore
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -30)
	var (
		volume     int
		avgAmount  sql.NullFloat64
		fraudFlags int
	)
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       AVG(CASE WHEN claimed_amount > 0 THEN claimed_amount END),
		       COALESCE(SUM(CASE WHEN fraud_probability > ? THEN 1 ELSE 0 END), 0)
		FROM claims
		WHERE org_id = ? AND created_at >= ?
	`, fraudFlagThreshold, orgID, cutoff).Scan(&volume, &avgAmount, &fraudFlags)
	if err != nil {
		return stats, fmt.Errorf("failed to compute organization stats: %w", err)
	}

	stats.ClaimVolume30d = volume
	if avgAmount.Valid {
		stats.AvgClaimAmount = avgAmount.Float64
	}
	if volume > 0 {
		stats.HistoricalFraudRate = float64(fraudFlags) / float64(volume)
	}

	return stats, nil
}

// ProcedureAverageAmount returns the platform-wide average claimed amount for
// recent claims containing any of the given procedure codes, or 0 when no
// matching claims exist.
func (s *SQLiteStorage) ProcedureAverageAmount(ctx context.Context, codes []string) (float64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if len(codes) == 0 {
		return 0, nil
	}

	// Procedure codes are stored as a JSON array; match on the quoted code.
	conditions := make([]string, len(codes))
	args := make([]any, 0, len(codes))
	for i, code := range codes {
		conditions[i] = "procedure_codes LIKE ?"
		args = append(args, `%"`+code+`"%`)
	}

	query := fmt.Sprintf(`
		SELECT AVG(claimed_amount) FROM (
			SELECT claimed_amount FROM claims
			WHERE claimed_amount > 0 AND (%s)
			ORDER BY created_at DESC
			LIMIT 100
		)
	`, strings.Join(conditions, " OR "))

	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&avg); err != nil {
		return 0, fmt.Errorf("failed to compute procedure average: %w", err)
	}
	if !avg.Valid {
		return 0, nil
	}

	return avg.Float64, nil
}

// HasDuplicateClaim reports whether another claim for the same patient with
// overlapping procedure codes exists since the given cutoff.
func (s *SQLiteStorage) HasDuplicateClaim(ctx context.Context, claimID, patientID string, codes []string, since time.Time) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if patientID == "" || len(codes) == 0 {
		return false, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT procedure_codes FROM claims
		WHERE patient_id = ? AND id != ? AND created_at >= ?
	`, patientID, claimID, since)
	if err != nil {
		return false, fmt.Errorf("failed to query candidate duplicates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	wanted := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		wanted[code] = struct{}{}
	}

	for rows.Next() {
		var codesJSON string
		if scanErr := rows.Scan(&codesJSON); scanErr != nil {
			return false, fmt.Errorf("failed to scan candidate duplicate: %w", scanErr)
		}
		for _, code := range unmarshalStrings(codesJSON) {
			if _, ok := wanted[code]; ok {
				return true, nil
			}
		}
	}

	return false, rows.Err()
}

// HasDischargeWithin reports whether a prior claim for the patient has a
// discharge date in [from, to).
func (s *SQLiteStorage) HasDischargeWithin(ctx context.Context, claimID, patientID string, from, to time.Time) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if patientID == "" {
		return false, nil
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM claims
			WHERE patient_id = ? AND id != ?
			  AND discharge_date IS NOT NULL
			  AND discharge_date >= ? AND discharge_date < ?
		)
	`, patientID, claimID, from, to).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check prior discharges: %w", err)
	}

	return exists == 1, nil
}
