package orgtrust

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/storage"
)

func newTestStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func seedOrg(t *testing.T, store *storage.SQLiteStorage, trust float64) {
	t.Helper()
	require.NoError(t, store.SaveOrganization(context.Background(), &model.Organization{
		ID:         "org-1",
		Name:       "General Hospital",
		TrustScore: trust,
	}))
}

func seedScoredClaim(t *testing.T, store *storage.SQLiteStorage, id string, status model.ClaimStatus, trust, fraud float64, breached bool) {
	t.Helper()
	ctx := context.Background()

	claim := &model.Claim{
		ID:             id,
		ClaimNumber:    "CLM-" + id,
		OrganizationID: "org-1",
		PatientID:      "patient-1",
		Status:         status,
		ClaimedAmount:  1000,
	}
	require.NoError(t, store.SaveClaim(ctx, claim))

	claim.TrustScore = trust
	claim.FraudProbability = fraud
	claim.Recommendation = model.RecommendApproveWithReview
	claim.AnalyzedAt = time.Now().UTC()
	require.NoError(t, store.UpdateClaimScores(ctx, claim))

	if breached {
		require.NoError(t, store.MarkSLABreached(ctx, id))
	}
}

func TestRecomputeFormula(t *testing.T) {
	store := newTestStore(t)
	seedOrg(t, store, 60)

	// 4 claims: 2 approved, 1 fraud-flagged, 1 SLA-breached, avg trust 80.
	seedScoredClaim(t, store, "c1", model.StatusApproved, 90, 0.1, false)
	seedScoredClaim(t, store, "c2", model.StatusPartiallyApproved, 85, 0.2, false)
	seedScoredClaim(t, store, "c3", model.StatusRejected, 75, 0.8, false)
	seedScoredClaim(t, store, "c4", model.StatusComplianceReview, 70, 0.3, true)

	require.NoError(t, NewRecomputer(store).Recompute(context.Background(), "org-1"))

	org, err := store.GetOrganization(context.Background(), "org-1")
	require.NoError(t, err)

	// approval .5*40 + (1-.25)*30 + .75*20 + .8*10 = 20+22.5+15+8 = 65.5
	assert.InDelta(t, 65.5, org.TrustScore, 1e-9)

	history, err := store.GetTrustHistory(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, 65.5, history[0].Score, 1e-9)
	assert.InDelta(t, 60.0, history[0].PreviousScore, 1e-9)
	assert.InDelta(t, 0.5, history[0].Factors["approval_rate"], 1e-9)
	assert.InDelta(t, 0.25, history[0].Factors["fraud_rate"], 1e-9)
	assert.InDelta(t, 4.0, history[0].Factors["claim_sample_size"], 1e-9)
}

func TestRecomputeNoClaimsLeavesScore(t *testing.T) {
	store := newTestStore(t)
	seedOrg(t, store, 72)

	require.NoError(t, NewRecomputer(store).Recompute(context.Background(), "org-1"))

	org, err := store.GetOrganization(context.Background(), "org-1")
	require.NoError(t, err)
	assert.InDelta(t, 72.0, org.TrustScore, 1e-9)

	history, err := store.GetTrustHistory(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRecomputeUnscoredClaimsCountAsNeutral(t *testing.T) {
	store := newTestStore(t)
	seedOrg(t, store, 50)

	claim := &model.Claim{
		ID:             "c1",
		ClaimNumber:    "CLM-c1",
		OrganizationID: "org-1",
		PatientID:      "patient-1",
		Status:         model.StatusSubmitted,
		ClaimedAmount:  1000,
	}
	require.NoError(t, store.SaveClaim(context.Background(), claim))

	require.NoError(t, NewRecomputer(store).Recompute(context.Background(), "org-1"))

	history, err := store.GetTrustHistory(context.Background(), "org-1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.InDelta(t, 0.5, history[0].Factors["doc_quality"], 1e-9)
}

func TestRecomputeIgnoresClaimsOutsideWindow(t *testing.T) {
	store := newTestStore(t)
	seedOrg(t, store, 50)
	seedScoredClaim(t, store, "c1", model.StatusApproved, 90, 0.1, false)

	recomputer := NewRecomputer(store)
	// Pretend it is far in the future so every claim falls out of the window.
	recomputer.now = func() time.Time { return time.Now().UTC().AddDate(2, 0, 0) }

	require.NoError(t, recomputer.Recompute(context.Background(), "org-1"))

	history, err := store.GetTrustHistory(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

type recordingNotifier struct {
	mu       sync.Mutex
	breaches []string
}

func (r *recordingNotifier) NotifyHighRisk(_ context.Context, _ string, _ float64) error {
	return nil
}

func (r *recordingNotifier) NotifySLABreach(_ context.Context, claimID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breaches = append(r.breaches, claimID)
	return nil
}

func seedDeadlineClaim(t *testing.T, store *storage.SQLiteStorage, id string, status model.ClaimStatus, deadline time.Time) {
	t.Helper()
	require.NoError(t, store.SaveClaim(context.Background(), &model.Claim{
		ID:             id,
		ClaimNumber:    "CLM-" + id,
		OrganizationID: "org-1",
		PatientID:      "patient-1",
		Status:         status,
		ClaimedAmount:  1000,
		SLADeadline:    deadline,
	}))
}

func TestSweepMarksOverdueClaims(t *testing.T) {
	store := newTestStore(t)
	seedOrg(t, store, 50)

	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)
	seedDeadlineClaim(t, store, "late", model.StatusPendingReview, past)
	seedDeadlineClaim(t, store, "on-time", model.StatusPendingReview, future)
	seedDeadlineClaim(t, store, "late-terminal", model.StatusApproved, past)

	notifier := &recordingNotifier{}
	marked, err := NewSLASweeper(store, notifier).Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)
	assert.Equal(t, []string{"late"}, notifier.breaches)

	claim, err := store.GetClaim(context.Background(), "late")
	require.NoError(t, err)
	assert.True(t, claim.SLABreached)

	claim, err = store.GetClaim(context.Background(), "on-time")
	require.NoError(t, err)
	assert.False(t, claim.SLABreached)

	events, err := store.GetEventsByResource(context.Background(), "claim", "late")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "sla_breach_detected", events[0].EventType)
}

func TestSweepIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	seedOrg(t, store, 50)
	seedDeadlineClaim(t, store, "late", model.StatusPendingReview, time.Now().UTC().Add(-time.Hour))

	sweeper := NewSLASweeper(store, nil)
	marked, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	// Already-marked claims are not re-flagged.
	marked, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, marked)
}
