// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/claimtrust/claimtrust/internal/model"
)

// ClaimFilter defines filtering options for claim queries.
type ClaimFilter struct {
	Since    *time.Time
	OrgID    string
	Statuses []model.ClaimStatus
	Limit    int
}

// StatsSource provides the aggregate lookups consumed by feature construction.
// Implementations must degrade to documented neutral defaults instead of
// failing the pipeline.
type StatsSource interface {
	// GetOrgStats returns the organization snapshot, or defaults when unknown.
	GetOrgStats(ctx context.Context, orgID string) (model.OrgStats, error)
	// ProcedureAverageAmount returns the platform-wide average claimed amount
	// for claims containing any of the given procedure codes.
	ProcedureAverageAmount(ctx context.Context, codes []string) (float64, error)
	// HasDuplicateClaim reports whether another claim for the same patient with
	// overlapping procedure codes exists within the trailing window.
	HasDuplicateClaim(ctx context.Context, claimID, patientID string, codes []string, since time.Time) (bool, error)
	// HasDischargeWithin reports whether a prior claim for the patient has a
	// discharge date inside [from, to).
	HasDischargeWithin(ctx context.Context, claimID, patientID string, from, to time.Time) (bool, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	StatsSource

	// Claim operations
	SaveClaim(ctx context.Context, claim *model.Claim) error
	GetClaim(ctx context.Context, id string) (*model.Claim, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]model.Claim, error)
	UpdateClaimScores(ctx context.Context, claim *model.Claim) error
	SetClaimStatus(ctx context.Context, id string, status model.ClaimStatus) error
	ListOverdueClaims(ctx context.Context, asOf time.Time) ([]model.Claim, error)
	MarkSLABreached(ctx context.Context, id string) error

	// Document operations
	SaveDocument(ctx context.Context, doc *model.Document) error
	GetDocumentsByClaim(ctx context.Context, claimID string) ([]model.Document, error)

	// Scoring result history (append-only)
	AppendResult(ctx context.Context, result *model.EnsembleResult) error
	GetResultsByClaim(ctx context.Context, claimID string) ([]model.EnsembleResult, error)

	// Organization operations
	SaveOrganization(ctx context.Context, org *model.Organization) error
	GetOrganization(ctx context.Context, id string) (*model.Organization, error)
	UpdateOrganizationTrust(ctx context.Context, id string, score float64) error
	AppendTrustHistory(ctx context.Context, entry *model.TrustHistoryEntry) error

	// Audit trail
	LogEvent(ctx context.Context, event *AuditEvent) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// AuditEvent is one append-only audit trail record.
type AuditEvent struct {
	CreatedAt    time.Time      `json:"created_at"`
	EventType    string         `json:"event_type"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	Data         map[string]any `json:"data"`
}

// Notifier delivers administrator alerts raised by the pipeline.
type Notifier interface {
	NotifyHighRisk(ctx context.Context, claimID string, trustScore float64) error
	NotifySLABreach(ctx context.Context, claimID string) error
}

// Scheduler requests a follow-up full analysis of a claim after a delay hint.
// Delivery is at-least-once; the analysis itself must tolerate replays.
type Scheduler interface {
	ScheduleAnalysis(ctx context.Context, claimID string, delay time.Duration) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
