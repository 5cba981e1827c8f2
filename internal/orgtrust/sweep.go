package orgtrust

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claimtrust/claimtrust/internal/service"
)

// SLASweeper periodically marks claims past their SLA deadline and raises
// breach notifications. Deadlines are consumed, never computed here.
type SLASweeper struct {
	store    service.Storage
	notifier service.Notifier
	now      func() time.Time
}

// NewSLASweeper creates an SLA sweep runner. notifier may be nil.
func NewSLASweeper(store service.Storage, notifier service.Notifier) *SLASweeper {
	return &SLASweeper{store: store, notifier: notifier, now: time.Now}
}

// Sweep flags every overdue, still-open claim as breached and returns how
// many were marked. Individual claim failures are logged and skipped so one
// bad record cannot stall the sweep.
func (s *SLASweeper) Sweep(ctx context.Context) (int, error) {
	overdue, err := s.store.ListOverdueClaims(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue claims: %w", err)
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	marked := 0
	for _, claim := range overdue {
		if err := s.store.MarkSLABreached(ctx, claim.ID); err != nil {
			slog.Error("Could not mark SLA breach", "claim_id", claim.ID, "error", err)
			continue
		}
		marked++

		if s.notifier != nil {
			if notifyErr := s.notifier.NotifySLABreach(ctx, claim.ID); notifyErr != nil {
				slog.Warn("SLA breach notification failed", "claim_id", claim.ID, "error", notifyErr)
			}
		}

		if auditErr := s.store.LogEvent(ctx, &service.AuditEvent{
			EventType:    "sla_breach_detected",
			ResourceType: "claim",
			ResourceID:   claim.ID,
			Data:         map[string]any{"claim_number": claim.ClaimNumber},
		}); auditErr != nil {
			slog.Warn("Audit event not recorded", "claim_id", claim.ID, "error", auditErr)
		}
	}

	slog.Warn("SLA breaches detected and marked", "count", marked)
	return marked, nil
}
