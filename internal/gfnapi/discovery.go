package gfnapi

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DiscoveryError means record type discovery failed completely: both the
// /types metadata endpoint and the bulk probe came back empty-handed.
// Extraction cannot proceed without knowing the schema of facts to
// expect, so this is fatal for the run.
type DiscoveryError struct {
	MetaErr  error
	ProbeErr error
}

func (e *DiscoveryError) Error() string {
	return "record type discovery failed: metadata and probe both unavailable"
}

func (e *DiscoveryError) Unwrap() error {
	if e.ProbeErr != nil {
		return e.ProbeErr
	}
	return e.MetaErr
}

// TypeCache holds discovered record types for the lifetime of one
// extraction run. It is owned by the runner and passed in explicitly so
// staleness never leaks across runs. Safe for concurrent use.
type TypeCache struct {
	mu    sync.Mutex
	types map[string]string
}

// NewTypeCache returns an empty cache valid for a single run.
func NewTypeCache() *TypeCache {
	return &TypeCache{}
}

// Types returns the cached mapping, or nil if discovery has not run yet.
func (c *TypeCache) Types() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.types
}

func (c *TypeCache) set(types map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = types
}

// DiscoverTypes determines the set of record types currently published,
// as a mapping of type code to human-readable description. It combines
// two sources, queried concurrently:
//
//   - the /types metadata endpoint, matching on its "record" field
//   - a probe of the bulk endpoint for probeYear, collecting the distinct
//     record codes actually present in real data
//
// Probe-observed types win; metadata supplies descriptions, falling back
// to the raw code. If the probe yields nothing but metadata succeeded,
// descriptions are built from metadata alone. Results are cached in
// cache, so repeated calls within one run hit the upstream only once.
func DiscoverTypes(ctx context.Context, api API, cache *TypeCache, probeYear int) (map[string]string, error) {
	if cached := cache.Types(); cached != nil {
		return cached, nil
	}

	var (
		meta     []RawType
		probe    []RawFact
		metaErr  error
		probeErr error
	)

	// Both sources may fail independently; only the combination of both
	// failing is fatal, so errors are captured rather than propagated
	// through the group.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		meta, metaErr = api.Types(gctx)
		return nil
	})
	g.Go(func() error {
		probe, probeErr = api.YearData(gctx, probeYear)
		return nil
	})
	_ = g.Wait()

	if metaErr != nil {
		zap.L().Warn("type discovery: metadata endpoint unavailable", zap.Error(metaErr))
	}
	if probeErr != nil {
		zap.L().Warn("type discovery: bulk probe failed",
			zap.Int("probe_year", probeYear),
			zap.Error(probeErr),
		)
	}

	descByRecord := make(map[string]string, len(meta))
	for _, t := range meta {
		if t.Record == "" {
			continue
		}
		if t.Name != "" {
			descByRecord[t.Record] = t.Name
		} else {
			descByRecord[t.Record] = t.Record
		}
	}

	types := make(map[string]string)
	for _, f := range probe {
		if f.Record == "" {
			continue
		}
		if desc, ok := descByRecord[f.Record]; ok {
			types[f.Record] = desc
		} else {
			types[f.Record] = f.Record
		}
	}

	// Probe came back empty: fall back to metadata alone.
	if len(types) == 0 && metaErr == nil {
		for record, desc := range descByRecord {
			types[record] = desc
		}
	}

	if len(types) == 0 {
		return nil, eris.Wrap(&DiscoveryError{MetaErr: metaErr, ProbeErr: probeErr}, "gfnapi")
	}

	zap.L().Info("type discovery complete",
		zap.Int("types", len(types)),
		zap.Int("probe_year", probeYear),
	)
	cache.set(types)
	return types, nil
}
