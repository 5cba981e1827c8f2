package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/claimtrust/claimtrust/internal/common"
	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

// SaveOrganization inserts or updates an organization.
func (s *SQLiteStorage) SaveOrganization(ctx context.Context, org *model.Organization) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateOrganization(org); err != nil {
		return err
	}

	trustScore := org.TrustScore
	if trustScore == 0 {
		trustScore = 50.0
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, trust_score)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			trust_score = excluded.trust_score
	`, org.ID, org.Name, trustScore)
	if err != nil {
		return fmt.Errorf("failed to save organization: %w", err)
	}

	return nil
}

// GetOrganization fetches an organization by ID.
func (s *SQLiteStorage) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var org model.Organization
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, trust_score, created_at
		FROM organizations WHERE id = ?
	`, id).Scan(&org.ID, &org.Name, &org.TrustScore, &org.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

// UpdateOrganizationTrust sets an organization's live trust score.
func (s *SQLiteStorage) UpdateOrganizationTrust(ctx context.Context, id string, score float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE organizations SET trust_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("failed to update organization trust: %w", err)
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

// AppendTrustHistory records one trust score recomputation.
func (s *SQLiteStorage) AppendTrustHistory(ctx context.Context, entry *model.TrustHistoryEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHistoryEntry(entry); err != nil {
		return err
	}

	factors := entry.Factors
	if factors == nil {
		factors = map[string]float64{}
	}
	factorsJSON, err := marshalJSON(factors)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO org_trust_history (org_id, score, previous_score, factors)
		VALUES (?, ?, ?, ?)
	`, entry.OrganizationID, entry.Score, entry.PreviousScore, factorsJSON)
	if err != nil {
		return fmt.Errorf("failed to append trust history: %w", err)
	}

	return nil
}

// GetTrustHistory returns recorded trust recomputations for an organization,
// newest first.
func (s *SQLiteStorage) GetTrustHistory(ctx context.Context, orgID string) ([]model.TrustHistoryEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(orgID, "orgID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT org_id, score, previous_score, factors, created_at
		FROM org_trust_history
		WHERE org_id = ?
		ORDER BY created_at DESC, id DESC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trust history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.TrustHistoryEntry
	for rows.Next() {
		var entry model.TrustHistoryEntry
		var factorsJSON string
		if scanErr := rows.Scan(&entry.OrganizationID, &entry.Score, &entry.PreviousScore, &factorsJSON, &entry.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan trust history: %w", scanErr)
		}
		entry.Factors = map[string]float64{}
		_ = json.Unmarshal([]byte(factorsJSON), &entry.Factors)
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// LogEvent appends one audit trail record.
func (s *SQLiteStorage) LogEvent(ctx context.Context, event *service.AuditEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateEvent(event); err != nil {
		return err
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	data := event.Data
	if data == nil {
		data = map[string]any{}
	}
	dataJSON, err := marshalJSON(data)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (event_type, resource_type, resource_id, event_data, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, event.EventType, event.ResourceType, event.ResourceID, dataJSON, event.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// GetEventsByResource returns audit events for one resource, oldest first.
func (s *SQLiteStorage) GetEventsByResource(ctx context.Context, resourceType, resourceID string) ([]service.AuditEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(resourceID, "resourceID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT event_type, resource_type, resource_id, event_data, created_at
		FROM audit_events
		WHERE resource_type = ? AND resource_id = ?
		ORDER BY created_at ASC, id ASC
	`, resourceType, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []service.AuditEvent
	for rows.Next() {
		var event service.AuditEvent
		var dataJSON string
		if scanErr := rows.Scan(&event.EventType, &event.ResourceType, &event.ResourceID, &dataJSON, &event.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", scanErr)
		}
		event.Data = map[string]any{}
		_ = json.Unmarshal([]byte(dataJSON), &event.Data)
		events = append(events, event)
	}

	return events, rows.Err()
}
