package ensemble

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimtrust/claimtrust/internal/model"
)

func writeLogisticArtifact(t *testing.T, dir, file string, bias float64) {
	t.Helper()

	weights := map[string]float64{}
	for _, name := range model.FeatureNames() {
		weights[name] = 0.01
	}
	raw, err := json.Marshal(logisticArtifact{Bias: bias, Weights: weights})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), raw, 0o644))
}

func writeReconstructionArtifact(t *testing.T, dir string) {
	t.Helper()

	means := map[string]float64{}
	stds := map[string]float64{}
	for _, name := range model.FeatureNames() {
		means[name] = 10
		stds[name] = 5
	}
	raw, err := json.Marshal(reconstructionArtifact{Means: means, Stds: stds})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, deepAnomalyArtifact), raw, 0o644))
}

func writeAllArtifacts(t *testing.T, dir string) {
	t.Helper()
	writeLogisticArtifact(t, dir, fraudArtifact, -1)
	writeLogisticArtifact(t, dir, approvalArtifact, 0.5)
	writeLogisticArtifact(t, dir, statAnomalyArtifact, -2)
	writeReconstructionArtifact(t, dir)
}

func TestLoaderSelectsLearnedSet(t *testing.T) {
	dir := t.TempDir()
	writeAllArtifacts(t, dir)

	set := newLoader(dir).adapters()

	assert.True(t, set.learned)
	assert.IsType(t, &logisticAdapter{}, set.fraud)
	assert.IsType(t, &reconstructionAdapter{}, set.deepAnomaly)
}

func TestLoaderFallsBackWhenAnyArtifactMissing(t *testing.T) {
	dir := t.TempDir()
	writeLogisticArtifact(t, dir, fraudArtifact, 0)
	// approval, stat anomaly and deep anomaly artifacts absent

	set := newLoader(dir).adapters()

	assert.False(t, set.learned)
	assert.IsType(t, ruleFraudAdapter{}, set.fraud)
}

func TestLoaderFallsBackOnMalformedArtifact(t *testing.T) {
	dir := t.TempDir()
	writeAllArtifacts(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, fraudArtifact), []byte("not json"), 0o644))

	set := newLoader(dir).adapters()
	assert.False(t, set.learned)
}

func TestLoaderEmptyDirMeansRules(t *testing.T) {
	set := newLoader("").adapters()
	assert.False(t, set.learned)
}

func TestLoaderLoadsExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	writeAllArtifacts(t, dir)
	l := newLoader(dir)

	var wg sync.WaitGroup
	sets := make([]adapterSet, 8)
	for i := range sets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sets[i] = l.adapters()
		}(i)
	}
	wg.Wait()

	for _, set := range sets {
		assert.Same(t, sets[0].fraud, set.fraud)
	}
}

func TestLoaderDeletedArtifactsDoNotRetry(t *testing.T) {
	dir := t.TempDir()
	writeAllArtifacts(t, dir)
	l := newLoader(dir)
	first := l.adapters()
	require.True(t, first.learned)

	// Removing the directory after the first load must not change anything.
	require.NoError(t, os.RemoveAll(dir))
	second := l.adapters()
	assert.True(t, second.learned)
}

func TestLogisticAdapterScoreRange(t *testing.T) {
	dir := t.TempDir()
	writeLogisticArtifact(t, dir, fraudArtifact, -3)

	adapter, err := loadLogisticAdapter(AdapterFraud, filepath.Join(dir, fraudArtifact))
	require.NoError(t, err)

	f := model.DefaultFeatures()
	f.ClaimedAmount = 100000
	score := adapter.Score(f)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
}

func TestReconstructionAdapterCountsDeviations(t *testing.T) {
	dir := t.TempDir()
	writeReconstructionArtifact(t, dir)

	adapter, err := loadReconstructionAdapter(filepath.Join(dir, deepAnomalyArtifact))
	require.NoError(t, err)

	// All features at the training mean: no deviation.
	f := model.ClaimFeatures{}
	vectorAt := func(value float64) model.ClaimFeatures {
		return model.ClaimFeatures{
			ClaimedAmount: value, PatientAge: value, LengthOfStay: value,
			ProcedureCount: value, DiagnosisCount: value, OrgTrustScore: value,
			OrgHistoricalFraudRate: value, OrgClaimVolume30d: value,
			AmountVsOrgAvg: value, AmountVsProcedureAvg: value,
			WeekendAdmission: value, HolidayAdmission: value,
			HighValueProcedures: value, DuplicateClaim: value,
			RapidReadmission: value, UnusualProviderCombo: value,
			TextInconsistency: value, TextUrgency: value,
			OCRCompleteness: value, MissingFields: value,
		}
	}

	f = vectorAt(10)
	assert.InDelta(t, 0.0, adapter.Score(f), 1e-9)

	// Every feature three standard deviations out: all 20 deviate.
	f = vectorAt(25)
	assert.InDelta(t, 1.0, adapter.Score(f), 1e-9)
}
