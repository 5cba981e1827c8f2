package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtrust/claimtrust/internal/common"
	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

func TestSaveOrganizationDefaultsTrust(t *testing.T) {
	store := newTestStorage(t)
	require.NoError(t, store.SaveOrganization(context.Background(), &model.Organization{
		ID:   "org-1",
		Name: "General Hospital",
	}))

	org, err := store.GetOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	assert.InDelta(t, 50.0, org.TrustScore, 1e-9)
	assert.False(t, org.CreatedAt.IsZero())
}

func TestGetOrganizationNotFound(t *testing.T) {
	store := newTestStorage(t)

	_, err := store.GetOrganization(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpdateOrganizationTrust(t *testing.T) {
	store := newTestStorage(t)
	mustSaveOrg(t, store, "org-1")

	require.NoError(t, store.UpdateOrganizationTrust(context.Background(), "org-1", 81.25))

	org, err := store.GetOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	assert.InDelta(t, 81.25, org.TrustScore, 1e-9)

	assert.ErrorIs(t, store.UpdateOrganizationTrust(context.Background(), "missing", 10), common.ErrNotFound)
}

func TestTrustHistoryNewestFirst(t *testing.T) {
	store := newTestStorage(t)
	mustSaveOrg(t, store, "org-1")

	for _, score := range []float64{55, 62, 71} {
		require.NoError(t, store.AppendTrustHistory(context.Background(), &model.TrustHistoryEntry{
			OrganizationID: "org-1",
			Score:          score,
			PreviousScore:  50,
			Factors:        map[string]float64{"approval_rate": 0.8},
		}))
	}

	entries, err := store.GetTrustHistory(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.InDelta(t, 71.0, entries[0].Score, 1e-9)
	assert.InDelta(t, 55.0, entries[2].Score, 1e-9)
	assert.InDelta(t, 0.8, entries[0].Factors["approval_rate"], 1e-9)
}

func TestAppendTrustHistoryValidation(t *testing.T) {
	store := newTestStorage(t)

	assert.Error(t, store.AppendTrustHistory(context.Background(), nil))
	assert.Error(t, store.AppendTrustHistory(context.Background(), &model.TrustHistoryEntry{Score: 50}))
}

func TestAuditEventsOldestFirst(t *testing.T) {
	store := newTestStorage(t)

	for _, eventType := range []string{"ai_analysis_completed", "sla_breach_detected"} {
		require.NoError(t, store.LogEvent(context.Background(), &service.AuditEvent{
			EventType:    eventType,
			ResourceType: "claim",
			ResourceID:   "claim-1",
			Data:         map[string]any{"claim_number": "CLM-1"},
		}))
	}

	events, err := store.GetEventsByResource(context.Background(), "claim", "claim-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ai_analysis_completed", events[0].EventType)
	assert.Equal(t, "sla_breach_detected", events[1].EventType)
	assert.Equal(t, "CLM-1", events[0].Data["claim_number"])
}

func TestLogEventValidation(t *testing.T) {
	store := newTestStorage(t)

	assert.Error(t, store.LogEvent(context.Background(), nil))
	assert.Error(t, store.LogEvent(context.Background(), &service.AuditEvent{ResourceID: "claim-1"}))
	assert.Error(t, store.LogEvent(context.Background(), &service.AuditEvent{EventType: "x"}))
}
