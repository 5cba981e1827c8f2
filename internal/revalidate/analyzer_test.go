package revalidate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtrust/claimtrust/internal/common"
	"github.com/claimtrust/claimtrust/internal/ensemble"
	"github.com/claimtrust/claimtrust/internal/feature"
	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

type fakeRecomputer struct {
	mu   sync.Mutex
	orgs []string
}

func (f *fakeRecomputer) Recompute(_ context.Context, orgID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orgs = append(f.orgs, orgID)
	return nil
}

func newAnalyzer(store service.Storage, notifier service.Notifier, recomputer TrustRecomputer) *Analyzer {
	builder := feature.NewBuilder(feature.NewCachedStats(store))
	scorer := ensemble.NewScorer("", nil)
	return NewAnalyzer(store, builder, scorer, notifier, recomputer)
}

func TestAnalyzeFullPipeline(t *testing.T) {
	store := newTestStore(t)
	seedClaim(t, store, model.StatusSubmitted)
	seedDocument(t, store, "doc-1", cleanNote)
	recomputer := &fakeRecomputer{}

	err := newAnalyzer(store, &fakeNotifier{}, recomputer).Analyze(context.Background(), "claim-1")
	require.NoError(t, err)

	claim, err := store.GetClaim(context.Background(), "claim-1")
	require.NoError(t, err)
	assert.True(t, claim.Analyzed)
	assert.NotEqual(t, model.StatusAnalyzing, claim.Status)
	assert.Contains(t, []model.ClaimStatus{model.StatusPendingReview, model.StatusComplianceReview}, claim.Status)
	require.NotNil(t, claim.Explanation)
	assert.NotEmpty(t, claim.Explanation.ExplanationText)

	results, err := store.GetResultsByClaim(context.Background(), "claim-1")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, PipelineFullAnalysis, results[0].Pipeline)

	assert.Equal(t, []string{"org-1"}, recomputer.orgs)

	events, err := store.GetEventsByResource(context.Background(), "claim", "claim-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ai_analysis_completed", events[0].EventType)
}

func TestAnalyzeDraftStaysDraft(t *testing.T) {
	store := newTestStore(t)
	seedClaim(t, store, model.StatusDraft)
	seedDocument(t, store, "doc-1", cleanNote)

	err := newAnalyzer(store, nil, nil).Analyze(context.Background(), "claim-1")
	require.NoError(t, err)

	claim, err := store.GetClaim(context.Background(), "claim-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, claim.Status)
	assert.Equal(t, model.StagePreSubmission, claim.WorkflowStage)
}

func TestAnalyzeClaimNotFound(t *testing.T) {
	store := newTestStore(t)

	err := newAnalyzer(store, nil, nil).Analyze(context.Background(), "missing")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestAnalyzeWithoutDocumentsStillScores(t *testing.T) {
	// A claim with no OCR output is scored on claim metadata alone; the text
	// signal contributes zero.
	store := newTestStore(t)
	seedClaim(t, store, model.StatusSubmitted)

	err := newAnalyzer(store, nil, nil).Analyze(context.Background(), "claim-1")
	require.NoError(t, err)

	claim, err := store.GetClaim(context.Background(), "claim-1")
	require.NoError(t, err)
	assert.True(t, claim.Analyzed)
}

func TestAnalyzeReplaySafe(t *testing.T) {
	store := newTestStore(t)
	seedClaim(t, store, model.StatusSubmitted)
	seedDocument(t, store, "doc-1", cleanNote)
	analyzer := newAnalyzer(store, nil, nil)

	require.NoError(t, analyzer.Analyze(context.Background(), "claim-1"))
	require.NoError(t, analyzer.Analyze(context.Background(), "claim-1"))

	results, err := store.GetResultsByClaim(context.Background(), "claim-1")
	require.NoError(t, err)
	assert.Len(t, results, 2)

	claim, err := store.GetClaim(context.Background(), "claim-1")
	require.NoError(t, err)
	assert.True(t, claim.Analyzed)
}

func TestAnalyzeParksClaimOnPersistentFailure(t *testing.T) {
	store := newTestStore(t)
	seedClaim(t, store, model.StatusSubmitted)
	seedDocument(t, store, "doc-1", cleanNote)

	analyzer := newAnalyzer(&failingStore{Storage: store}, nil, nil)
	analyzer.retryOpts = service.RetryOptions{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}

	err := analyzer.Analyze(context.Background(), "claim-1")
	require.ErrorIs(t, err, common.ErrMaxRetries)

	claim, getErr := store.GetClaim(context.Background(), "claim-1")
	require.NoError(t, getErr)
	assert.Equal(t, model.StatusPendingReview, claim.Status)
}

func TestInProcessSchedulerRunsAnalysis(t *testing.T) {
	store := newTestStore(t)
	seedClaim(t, store, model.StatusSubmitted)
	seedDocument(t, store, "doc-1", cleanNote)

	scheduler := NewInProcessScheduler(newAnalyzer(store, nil, nil), 2)
	require.NoError(t, scheduler.ScheduleAnalysis(context.Background(), "claim-1", 0))
	scheduler.Wait()

	results, err := store.GetResultsByClaim(context.Background(), "claim-1")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
