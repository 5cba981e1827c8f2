package ensemble

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/claimtrust/claimtrust/internal/model"
)

// logisticArtifact is the on-disk format for a trained logistic scorer:
// a bias plus one weight per named feature.
type logisticArtifact struct {
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// logisticAdapter scores with a trained logistic model over the named
// feature vector.
type logisticAdapter struct {
	name    string
	bias    float64
	weights [model.FeatureCount]float64
}

func loadLogisticAdapter(name, path string) (*logisticAdapter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s artifact: %w", name, err)
	}

	var artifact logisticArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode %s artifact: %w", name, err)
	}
	if len(artifact.Weights) == 0 {
		return nil, fmt.Errorf("%s artifact has no weights", name)
	}

	adapter := &logisticAdapter{name: name, bias: artifact.Bias}
	names := model.FeatureNames()
	for i, featureName := range names {
		weight, ok := artifact.Weights[featureName]
		if !ok {
			return nil, fmt.Errorf("%s artifact missing weight for %s", name, featureName)
		}
		adapter.weights[i] = weight
	}

	return adapter, nil
}

func (a *logisticAdapter) Name() string { return a.name }

func (a *logisticAdapter) Score(f model.ClaimFeatures) float64 {
	vector := f.Vector()
	logit := a.bias
	for i, v := range vector {
		logit += a.weights[i] * v
	}
	return clip01(1.0 / (1.0 + math.Exp(-logit)))
}

// reconstructionArtifact holds the per-feature training distribution used by
// the deep-anomaly scorer: features far from their training mean indicate a
// pattern the model has not seen.
type reconstructionArtifact struct {
	Means map[string]float64 `json:"means"`
	Stds  map[string]float64 `json:"stds"`
}

type reconstructionAdapter struct {
	means [model.FeatureCount]float64
	stds  [model.FeatureCount]float64
}

func loadReconstructionAdapter(path string) (*reconstructionAdapter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s artifact: %w", AdapterDeepAnomaly, err)
	}

	var artifact reconstructionArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode %s artifact: %w", AdapterDeepAnomaly, err)
	}

	adapter := &reconstructionAdapter{}
	names := model.FeatureNames()
	for i, featureName := range names {
		mean, okMean := artifact.Means[featureName]
		std, okStd := artifact.Stds[featureName]
		if !okMean || !okStd {
			return nil, fmt.Errorf("%s artifact missing distribution for %s", AdapterDeepAnomaly, featureName)
		}
		adapter.means[i] = mean
		adapter.stds[i] = std
	}

	return adapter, nil
}

func (a *reconstructionAdapter) Name() string { return AdapterDeepAnomaly }

func (a *reconstructionAdapter) Score(f model.ClaimFeatures) float64 {
	vector := f.Vector()
	outliers := 0
	for i, v := range vector {
		if a.stds[i] <= 0 {
			continue
		}
		if math.Abs(v-a.means[i]) > 2*a.stds[i] {
			outliers++
		}
	}
	return clip01(float64(outliers) / model.FeatureCount)
}
