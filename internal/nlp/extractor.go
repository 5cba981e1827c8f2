// Package nlp provides named-entity extraction over claim document text. The
// default extractor is regex-based and always available; a model-backed
// extractor can be substituted when an API key is configured.
package nlp

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

// Entity categories reported in the explainability payload.
const (
	CategoryDate     = "DATE"
	CategoryMoney    = "MONEY"
	CategoryProvider = "PROVIDER"
	CategoryCode     = "CODE"
)

// EntityExtractor returns text spans grouped by category. Implementations
// must be safe for concurrent use.
type EntityExtractor interface {
	Entities(ctx context.Context, text string) (map[string][]string, error)
}

var (
	numericDatePattern = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)
	writtenDatePattern = regexp.MustCompile(`\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`)
	isoDatePattern     = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	moneyPattern       = regexp.MustCompile(`\$\s?[\d,]+(?:\.\d{2})?`)
	providerPattern    = regexp.MustCompile(`\b(?:Dr\.?|Physician)\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)?\b`)
	codePattern        = regexp.MustCompile(`\b(?:[A-TV-Z][0-9][0-9A-Z](?:\.[0-9A-Z]{1,4})?|\d{5})\b`)
)

// RegexExtractor finds entities with fixed patterns. It never fails and
// requires no external service.
type RegexExtractor struct{}

// NewRegexExtractor creates the default extractor.
func NewRegexExtractor() *RegexExtractor {
	return &RegexExtractor{}
}

// Entities scans the text for dates, monetary amounts, provider mentions and
// billing codes.
func (e *RegexExtractor) Entities(_ context.Context, text string) (map[string][]string, error) {
	entities := map[string][]string{}

	dates := numericDatePattern.FindAllString(text, -1)
	dates = append(dates, writtenDatePattern.FindAllString(text, -1)...)
	dates = append(dates, isoDatePattern.FindAllString(text, -1)...)
	if spans := dedup(dates); len(spans) > 0 {
		entities[CategoryDate] = spans
	}
	if spans := dedup(moneyPattern.FindAllString(text, -1)); len(spans) > 0 {
		entities[CategoryMoney] = spans
	}
	if spans := dedup(providerPattern.FindAllString(text, -1)); len(spans) > 0 {
		entities[CategoryProvider] = spans
	}
	if spans := dedup(codePattern.FindAllString(text, -1)); len(spans) > 0 {
		entities[CategoryCode] = spans
	}

	return entities, nil
}

// NullExtractor reports no entities. Used when entity extraction is disabled
// or the configured backend cannot be constructed.
type NullExtractor struct{}

// Entities always returns an empty map.
func (NullExtractor) Entities(_ context.Context, _ string) (map[string][]string, error) {
	return map[string][]string{}, nil
}

// DistinctDates counts the unique date mentions in an entity map.
func DistinctDates(entities map[string][]string) int {
	seen := map[string]struct{}{}
	for _, span := range entities[CategoryDate] {
		seen[strings.TrimSpace(span)] = struct{}{}
	}
	return len(seen)
}

func dedup(spans []string) []string {
	seen := make(map[string]struct{}, len(spans))
	var unique []string
	for _, span := range spans {
		if _, ok := seen[span]; ok {
			continue
		}
		seen[span] = struct{}{}
		unique = append(unique, span)
	}
	sort.Strings(unique)
	return unique
}
