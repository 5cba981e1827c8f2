package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claimtrust/claimtrust/internal/model"
)

// AppendResult adds one scoring result to the claim's append-only history.
// Results are never updated in place.
func (s *SQLiteStorage) AppendResult(ctx context.Context, result *model.EnsembleResult) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateResult(result); err != nil {
		return err
	}

	if result.ID == "" {
		result.ID = uuid.NewString()
	}
	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now().UTC()
	}

	entities := result.Entities
	if entities == nil {
		entities = map[string][]string{}
	}
	entitiesJSON, err := marshalJSON(entities)
	if err != nil {
		return err
	}
	importances := result.FeatureImportances
	if importances == nil {
		importances = map[string]float64{}
	}
	importancesJSON, err := marshalJSON(importances)
	if err != nil {
		return err
	}
	factorsJSON, err := marshalJSON(result.RiskFactors)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scoring_results (
			id, claim_id, model_version, fraud_score, approval_score,
			stat_anomaly_score, deep_anomaly_score, text_consistency_score,
			entities, trust_score, fraud_probability, anomaly_score,
			approval_likelihood, recommendation, confidence,
			feature_importances, risk_factors, explanation_text, pipeline,
			processing_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.ID,
		result.ClaimID,
		result.ModelVersion,
		result.FraudScore,
		result.ApprovalScore,
		result.StatAnomalyScore,
		result.DeepAnomalyScore,
		result.TextConsistencyScore,
		entitiesJSON,
		result.TrustScore,
		result.FraudProbability,
		result.AnomalyScore,
		result.ApprovalLikelihood,
		string(result.Recommendation),
		result.Confidence,
		importancesJSON,
		factorsJSON,
		result.ExplanationText,
		result.Pipeline,
		result.ProcessingTime.Milliseconds(),
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append scoring result: %w", err)
	}

	return nil
}

// GetResultsByClaim returns the scoring history for a claim, oldest first.
func (s *SQLiteStorage) GetResultsByClaim(ctx context.Context, claimID string) ([]model.EnsembleResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(claimID, "claimID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, claim_id, model_version, fraud_score, approval_score,
		       stat_anomaly_score, deep_anomaly_score, text_consistency_score,
		       entities, trust_score, fraud_probability, anomaly_score,
		       approval_likelihood, recommendation, confidence,
		       feature_importances, risk_factors, explanation_text, pipeline,
		       processing_ms, created_at
		FROM scoring_results
		WHERE claim_id = ?
		ORDER BY created_at ASC, id ASC
	`, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoring results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []model.EnsembleResult
	for rows.Next() {
		var result model.EnsembleResult
		var recommendation string
		var entitiesJSON, importancesJSON, factorsJSON string
		var processingMS int64

		if scanErr := rows.Scan(
			&result.ID, &result.ClaimID, &result.ModelVersion,
			&result.FraudScore, &result.ApprovalScore, &result.StatAnomalyScore,
			&result.DeepAnomalyScore, &result.TextConsistencyScore,
			&entitiesJSON, &result.TrustScore, &result.FraudProbability,
			&result.AnomalyScore, &result.ApprovalLikelihood, &recommendation,
			&result.Confidence, &importancesJSON, &factorsJSON,
			&result.ExplanationText, &result.Pipeline, &processingMS,
			&result.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan scoring result: %w", scanErr)
		}

		result.Recommendation = model.Recommendation(recommendation)
		result.ProcessingTime = time.Duration(processingMS) * time.Millisecond
		result.Entities = map[string][]string{}
		result.FeatureImportances = map[string]float64{}
		_ = json.Unmarshal([]byte(entitiesJSON), &result.Entities)
		_ = json.Unmarshal([]byte(importancesJSON), &result.FeatureImportances)
		_ = json.Unmarshal([]byte(factorsJSON), &result.RiskFactors)

		results = append(results, result)
	}

	return results, rows.Err()
}
