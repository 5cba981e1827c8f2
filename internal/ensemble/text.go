package ensemble

import (
	"context"
	"log/slog"

	"github.com/claimtrust/claimtrust/internal/nlp"
)

// textAnalysisCap limits how much document text is fed to the entity pass.
const textAnalysisCap = 5000

// inconsistentDateThreshold is the number of distinct date mentions above
// which a document is flagged as internally inconsistent.
const inconsistentDateThreshold = 5

// textAnalyzer runs the document-consistency signal: an entity pass over the
// combined document text plus a date-contradiction heuristic.
type textAnalyzer struct {
	primary  nlp.EntityExtractor
	fallback nlp.EntityExtractor
}

func newTextAnalyzer(extractor nlp.EntityExtractor) *textAnalyzer {
	if extractor == nil {
		extractor = nlp.NewRegexExtractor()
	}
	return &textAnalyzer{
		primary:  extractor,
		fallback: nlp.NewRegexExtractor(),
	}
}

// analyze returns the inconsistency score in [0,1] and the entities grouped
// by category. Empty text scores 0 with no entities; extractor failures fall
// back to the regex pass rather than aborting the pipeline.
func (a *textAnalyzer) analyze(ctx context.Context, text string) (float64, map[string][]string) {
	if text == "" {
		return 0, map[string][]string{}
	}
	if len(text) > textAnalysisCap {
		text = text[:textAnalysisCap]
	}

	entities, err := a.primary.Entities(ctx, text)
	if err != nil {
		slog.Warn("Entity extraction failed, falling back to pattern pass", "error", err)
		entities, err = a.fallback.Entities(ctx, text)
		if err != nil {
			return 0, map[string][]string{}
		}
	}
	if entities == nil {
		entities = map[string][]string{}
	}

	score := 0.0
	if nlp.DistinctDates(entities) > inconsistentDateThreshold {
		score += 0.1
	}
	return clip01(score), entities
}
