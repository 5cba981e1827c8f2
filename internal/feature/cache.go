package feature

import (
	"context"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/claimtrust/claimtrust/internal/model"
	"github.com/claimtrust/claimtrust/internal/service"
)

const (
	statsCacheTTL     = 5 * time.Minute
	statsCacheCleanup = 10 * time.Minute
)

// CachedStats wraps a StatsSource with a short-lived in-memory cache for the
// aggregate lookups. Per-claim checks (duplicates, readmissions) always hit
// the underlying source because they depend on the claim being scored.
type CachedStats struct {
	source service.StatsSource
	cache  *gocache.Cache
}

// NewCachedStats creates a caching decorator with the default TTL.
func NewCachedStats(source service.StatsSource) *CachedStats {
	return &CachedStats{
		source: source,
		cache:  gocache.New(statsCacheTTL, statsCacheCleanup),
	}
}

// GetOrgStats returns the cached snapshot when fresh, otherwise fetches and
// caches it. Errors are never cached.
func (c *CachedStats) GetOrgStats(ctx context.Context, orgID string) (model.OrgStats, error) {
	key := "org:" + orgID
	if cached, ok := c.cache.Get(key); ok {
		return cached.(model.OrgStats), nil
	}

	stats, err := c.source.GetOrgStats(ctx, orgID)
	if err != nil {
		return stats, err
	}

	c.cache.Set(key, stats, gocache.DefaultExpiration)
	return stats, nil
}

// ProcedureAverageAmount caches averages keyed by the sorted code set.
func (c *CachedStats) ProcedureAverageAmount(ctx context.Context, codes []string) (float64, error) {
	sorted := make([]string, len(codes))
	copy(sorted, codes)
	sort.Strings(sorted)
	key := "proc:" + strings.Join(sorted, ",")

	if cached, ok := c.cache.Get(key); ok {
		return cached.(float64), nil
	}

	avg, err := c.source.ProcedureAverageAmount(ctx, codes)
	if err != nil {
		return 0, err
	}

	c.cache.Set(key, avg, gocache.DefaultExpiration)
	return avg, nil
}

// HasDuplicateClaim passes through to the underlying source.
func (c *CachedStats) HasDuplicateClaim(ctx context.Context, claimID, patientID string, codes []string, since time.Time) (bool, error) {
	return c.source.HasDuplicateClaim(ctx, claimID, patientID, codes, since)
}

// HasDischargeWithin passes through to the underlying source.
func (c *CachedStats) HasDischargeWithin(ctx context.Context, claimID, patientID string, from, to time.Time) (bool, error) {
	return c.source.HasDischargeWithin(ctx, claimID, patientID, from, to)
}

// Invalidate drops cached aggregates for one organization. Call after claim
// writes that change the organization's statistics.
func (c *CachedStats) Invalidate(orgID string) {
	c.cache.Delete("org:" + orgID)
}
