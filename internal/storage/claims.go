package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/claimtrust/claimtrust/internal/common"
	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

// nullTime converts a zero time to NULL for storage.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// SaveClaim inserts a claim or updates its intake fields if it already exists.
// Scoring fields are only written through UpdateClaimScores.
func (s *SQLiteStorage) SaveClaim(ctx context.Context, claim *model.Claim) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClaim(claim); err != nil {
		return err
	}

	diagJSON, err := marshalJSON(emptyIfNil(claim.DiagnosisCodes))
	if err != nil {
		return err
	}
	procJSON, err := marshalJSON(emptyIfNil(claim.ProcedureCodes))
	if err != nil {
		return err
	}

	status := claim.Status
	if status == "" {
		status = model.StatusDraft
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO claims (
			id, claim_number, org_id, patient_id, status, claimed_amount,
			approved_amount, admission_date, discharge_date, diagnosis_codes,
			procedure_codes, patient_age, sla_deadline
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			claim_number = excluded.claim_number,
			patient_id = excluded.patient_id,
			status = excluded.status,
			claimed_amount = excluded.claimed_amount,
			approved_amount = excluded.approved_amount,
			admission_date = excluded.admission_date,
			discharge_date = excluded.discharge_date,
			diagnosis_codes = excluded.diagnosis_codes,
			procedure_codes = excluded.procedure_codes,
			patient_age = excluded.patient_age,
			sla_deadline = excluded.sla_deadline
	`,
		claim.ID,
		claim.ClaimNumber,
		claim.OrganizationID,
		claim.PatientID,
		string(status),
		claim.ClaimedAmount,
		claim.ApprovedAmount,
		nullTime(claim.AdmissionDate),
		nullTime(claim.DischargeDate),
		diagJSON,
		procJSON,
		claim.PatientAge,
		nullTime(claim.SLADeadline),
	)
	if err != nil {
		return fmt.Errorf("failed to save claim: %w", err)
	}

	return nil
}

const claimColumns = `
	id, claim_number, org_id, patient_id, status, claimed_amount,
	approved_amount, admission_date, discharge_date, diagnosis_codes,
	procedure_codes, patient_age, trust_score, fraud_probability,
	anomaly_score, approval_likelihood, recommendation, confidence,
	analyzed_at, explanation, matched_policies, detected_risks,
	violation_flags, reviewer_suggestion, workflow_stage,
	auto_approval_eligible, sla_deadline, sla_breached, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*model.Claim, error) {
	var claim model.Claim
	var (
		admission, discharge, analyzedAt, slaDeadline, createdAt sql.NullTime
		trust, fraud, anomaly, approval, confidence              sql.NullFloat64
		recommendation, explanation                              sql.NullString
		diagJSON, procJSON, policiesJSON, risksJSON, flagsJSON   string
		status, stage                                            string
		autoApproval, slaBreached                                int
	)

	err := row.Scan(
		&claim.ID, &claim.ClaimNumber, &claim.OrganizationID, &claim.PatientID,
		&status, &claim.ClaimedAmount, &claim.ApprovedAmount,
		&admission, &discharge, &diagJSON, &procJSON, &claim.PatientAge,
		&trust, &fraud, &anomaly, &approval, &recommendation, &confidence,
		&analyzedAt, &explanation, &policiesJSON, &risksJSON, &flagsJSON,
		&claim.ReviewerSuggestion, &stage, &autoApproval, &slaDeadline,
		&slaBreached, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan claim: %w", err)
	}

	claim.Status = model.ClaimStatus(status)
	claim.WorkflowStage = model.WorkflowStage(stage)
	claim.DiagnosisCodes = unmarshalStrings(diagJSON)
	claim.ProcedureCodes = unmarshalStrings(procJSON)
	claim.MatchedPolicies = unmarshalStrings(policiesJSON)
	claim.DetectedRisks = unmarshalStrings(risksJSON)
	claim.ViolationFlags = unmarshalStrings(flagsJSON)
	claim.AutoApprovalEligible = autoApproval == 1
	claim.SLABreached = slaBreached == 1

	if admission.Valid {
		claim.AdmissionDate = admission.Time
	}
	if discharge.Valid {
		claim.DischargeDate = discharge.Time
	}
	if analyzedAt.Valid {
		claim.AnalyzedAt = analyzedAt.Time
		claim.Analyzed = true
	}
	if slaDeadline.Valid {
		claim.SLADeadline = slaDeadline.Time
	}
	if createdAt.Valid {
		claim.CreatedAt = createdAt.Time
	}
	if trust.Valid {
		claim.TrustScore = trust.Float64
	}
	if fraud.Valid {
		claim.FraudProbability = fraud.Float64
	}
	if anomaly.Valid {
		claim.AnomalyScore = anomaly.Float64
	}
	if approval.Valid {
		claim.ApprovalLikelihood = approval.Float64
	}
	if confidence.Valid {
		claim.Confidence = confidence.Float64
	}
	if recommendation.Valid {
		claim.Recommendation = model.Recommendation(recommendation.String)
	}
	if explanation.Valid && explanation.String != "" {
		var payload model.Explanation
		if jsonErr := json.Unmarshal([]byte(explanation.String), &payload); jsonErr == nil {
			claim.Explanation = &payload
		}
	}

	return &claim, nil
}

// GetClaim fetches a single claim by ID.
func (s *SQLiteStorage) GetClaim(ctx context.Context, id string) (*model.Claim, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT`+claimColumns+` FROM claims WHERE id = ?`, id)
	return scanClaim(row)
}

// ListClaims returns claims matching the filter, newest first.
func (s *SQLiteStorage) ListClaims(ctx context.Context, filter service.ClaimFilter) ([]model.Claim, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT` + claimColumns + ` FROM claims`
	var conditions []string
	var args []any

	if filter.OrgID != "" {
		conditions = append(conditions, "org_id = ?")
		args = append(args, filter.OrgID)
	}
	if filter.Since != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *filter.Since)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var claims []model.Claim
	for rows.Next() {
		claim, scanErr := scanClaim(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		claims = append(claims, *claim)
	}

	return claims, rows.Err()
}

// UpdateClaimScores performs the latest-wins update of a claim's scoring and
// workflow decision fields after an analysis run.
func (s *SQLiteStorage) UpdateClaimScores(ctx context.Context, claim *model.Claim) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateClaim(claim); err != nil {
		return err
	}

	diagJSON, err := marshalJSON(emptyIfNil(claim.DiagnosisCodes))
	if err != nil {
		return err
	}
	procJSON, err := marshalJSON(emptyIfNil(claim.ProcedureCodes))
	if err != nil {
		return err
	}
	policiesJSON, err := marshalJSON(emptyIfNil(claim.MatchedPolicies))
	if err != nil {
		return err
	}
	risksJSON, err := marshalJSON(emptyIfNil(claim.DetectedRisks))
	if err != nil {
		return err
	}
	flagsJSON, err := marshalJSON(emptyIfNil(claim.ViolationFlags))
	if err != nil {
		return err
	}

	var explanationJSON any
	if claim.Explanation != nil {
		data, marshalErr := marshalJSON(claim.Explanation)
		if marshalErr != nil {
			return marshalErr
		}
		explanationJSON = data
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE claims SET
			status = ?,
			diagnosis_codes = ?,
			procedure_codes = ?,
			trust_score = ?,
			fraud_probability = ?,
			anomaly_score = ?,
			approval_likelihood = ?,
			recommendation = ?,
			confidence = ?,
			analyzed_at = ?,
			explanation = ?,
			matched_policies = ?,
			detected_risks = ?,
			violation_flags = ?,
			reviewer_suggestion = ?,
			workflow_stage = ?,
			auto_approval_eligible = ?
		WHERE id = ?
	`,
		string(claim.Status),
		diagJSON,
		procJSON,
		claim.TrustScore,
		claim.FraudProbability,
		claim.AnomalyScore,
		claim.ApprovalLikelihood,
		string(claim.Recommendation),
		claim.Confidence,
		nullTime(claim.AnalyzedAt),
		explanationJSON,
		policiesJSON,
		risksJSON,
		flagsJSON,
		claim.ReviewerSuggestion,
		string(claim.WorkflowStage),
		boolToInt(claim.AutoApprovalEligible),
		claim.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update claim scores: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// SetClaimStatus changes only the workflow status of a claim.
func (s *SQLiteStorage) SetClaimStatus(ctx context.Context, id string, status model.ClaimStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE claims SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set claim status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

// ListOverdueClaims returns claims past their SLA deadline that are still in
// a non-terminal status and not yet marked breached.
func (s *SQLiteStorage) ListOverdueClaims(ctx context.Context, asOf time.Time) ([]model.Claim, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT`+claimColumns+` FROM claims
		WHERE sla_deadline IS NOT NULL
		  AND sla_deadline < ?
		  AND sla_breached = 0
		  AND status IN (?, ?, ?, ?, ?)
		ORDER BY sla_deadline ASC
	`, asOf,
		string(model.StatusSubmitted),
		string(model.StatusOCRProcessing),
		string(model.StatusAnalyzing),
		string(model.StatusPendingReview),
		string(model.StatusComplianceReview),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var claims []model.Claim
	for rows.Next() {
		claim, scanErr := scanClaim(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		claims = append(claims, *claim)
	}

	return claims, rows.Err()
}

// MarkSLABreached flags a claim as past its SLA deadline.
func (s *SQLiteStorage) MarkSLABreached(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE claims SET sla_breached = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to mark SLA breach: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
