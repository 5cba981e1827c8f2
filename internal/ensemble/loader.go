package ensemble

import (
	"log/slog"
	"path/filepath"
	"sync"
)

// Artifact file names under the configured model directory.
const (
	fraudArtifact       = "fraud_model.json"
	approvalArtifact    = "approval_model.json"
	statAnomalyArtifact = "stat_anomaly_model.json"
	deepAnomalyArtifact = "deep_anomaly_profile.json"
)

// adapterSet holds the four numeric scoring adapters in use for this process.
type adapterSet struct {
	fraud       Adapter
	approval    Adapter
	statAnomaly Adapter
	deepAnomaly Adapter
	learned     bool
}

func ruleAdapterSet() adapterSet {
	return adapterSet{
		fraud:       ruleFraudAdapter{},
		approval:    ruleApprovalAdapter{},
		statAnomaly: ruleStatAnomalyAdapter{},
		deepAnomaly: ruleDeepAnomalyAdapter{},
	}
}

// loader performs the one-time model artifact load. All artifacts are loaded
// together; any failure selects the rule-based set permanently for this
// process so absent models are not re-probed on every scoring call.
type loader struct {
	modelDir string
	once     sync.Once
	set      adapterSet
}

func newLoader(modelDir string) *loader {
	return &loader{modelDir: modelDir}
}

// adapters returns the resolved adapter set, loading artifacts on first use.
// Safe for concurrent callers.
func (l *loader) adapters() adapterSet {
	l.once.Do(func() {
		l.set = l.load()
	})
	return l.set
}

func (l *loader) load() adapterSet {
	if l.modelDir == "" {
		slog.Info("No model directory configured, using rule-based scoring")
		return ruleAdapterSet()
	}

	fraud, err := loadLogisticAdapter(AdapterFraud, filepath.Join(l.modelDir, fraudArtifact))
	if err != nil {
		return l.fallback(err)
	}
	approval, err := loadLogisticAdapter(AdapterApproval, filepath.Join(l.modelDir, approvalArtifact))
	if err != nil {
		return l.fallback(err)
	}
	statAnomaly, err := loadLogisticAdapter(AdapterStatAnomaly, filepath.Join(l.modelDir, statAnomalyArtifact))
	if err != nil {
		return l.fallback(err)
	}
	deepAnomaly, err := loadReconstructionAdapter(filepath.Join(l.modelDir, deepAnomalyArtifact))
	if err != nil {
		return l.fallback(err)
	}

	slog.Info("Scoring model artifacts loaded", "model_dir", l.modelDir)
	return adapterSet{
		fraud:       fraud,
		approval:    approval,
		statAnomaly: statAnomaly,
		deepAnomaly: deepAnomaly,
		learned:     true,
	}
}

func (l *loader) fallback(err error) adapterSet {
	slog.Warn("Could not load model artifacts, using rule-based scoring",
		"model_dir", l.modelDir,
		"error", err)
	return ruleAdapterSet()
}
