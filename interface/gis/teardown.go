package gis

import (
	"context"
	"sync"

	"github.com/airbusgeo/eoarchive-ingester/service/log"
)

// Teardown is the registry of temporary spatial objects created during a run.
// It is passed explicitly through the pipeline and released exactly once on
// every exit path (normal return, fatal error, interruption).
type Teardown struct {
	cleaner Cleaner

	mu       sync.Mutex
	rasters  []string
	vectors  []string
	funcs    []func(context.Context) error
	released bool
}

func NewTeardown(cleaner Cleaner) *Teardown {
	return &Teardown{cleaner: cleaner}
}

// Rasters registers temporary rasters for removal
func (t *Teardown) Rasters(names ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rasters = append(t.rasters, names...)
}

// Vectors registers temporary vectors for removal
func (t *Teardown) Vectors(names ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vectors = append(t.vectors, names...)
}

// Func registers a release function (e.g. a workspace Close)
func (t *Teardown) Func(f func(context.Context) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.funcs = append(t.funcs, f)
}

// Release removes every registered object. Errors are logged, never returned:
// teardown runs on failure paths and must not mask the original error.
func (t *Teardown) Release(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.released {
		return
	}
	t.released = true

	if len(t.vectors) > 0 {
		if err := t.cleaner.RemoveVectors(ctx, t.vectors); err != nil {
			log.Logger(ctx).Sugar().Warnf("teardown: remove vectors: %v", err)
		}
	}
	if len(t.rasters) > 0 {
		if err := t.cleaner.RemoveRasters(ctx, t.rasters); err != nil {
			log.Logger(ctx).Sugar().Warnf("teardown: remove rasters: %v", err)
		}
	}
	for _, f := range t.funcs {
		if err := f(ctx); err != nil {
			log.Logger(ctx).Sugar().Warnf("teardown: %v", err)
		}
	}
}
