// Package models implements the ModelRegistry: lazy, at-most-once
// loading of the three offline-trained artifacts, published read-only to
// all callers once loaded.
//
// This is the one legitimate piece of mutable global state in the
// service — see DESIGN.md. It is implemented with a mutex-guarded map of
// in-flight loads rather than a reload-capable cache; there is no reload
// API by design.
package models

import (
	"context"
	"fmt"
	"sync"

	"github.com/autofi/ai-engine/apierr"
	"github.com/rs/zerolog"
)

const (
	NameCollaborative     = "collaborative"
	NameVehicleSimilarity = "vehicle_similarity"
	NameUserSimilarity    = "user_similarity"
)

// Loader produces one named artifact, typically by deserializing a file
// under trained_models/.
type Loader func(ctx context.Context) (any, error)

// Registry holds the three named artifacts and the single-flight state
// needed to load them at most once each.
type Registry struct {
	mu       sync.Mutex
	loaders  map[string]Loader
	loaded   map[string]any
	inflight map[string]bool
	logger   zerolog.Logger
}

// New builds a registry with the given loader functions, keyed by
// artifact name. Unknown names passed to Load fail immediately.
func New(logger zerolog.Logger, loaders map[string]Loader) *Registry {
	return &Registry{
		loaders:  loaders,
		loaded:   make(map[string]any),
		inflight: make(map[string]bool),
		logger:   logger.With().Str("component", "model_registry").Logger(),
	}
}

// NewPreloaded builds a registry whose artifacts are already published —
// useful for tests and for any deployment that wants to embed artifacts
// built into the binary rather than read from trained_models/. This is
// construction-time seeding, not a reload API: once built, the same
// at-most-once Load semantics apply to any name not already present.
func NewPreloaded(logger zerolog.Logger, loaders map[string]Loader, artifacts map[string]any) *Registry {
	r := New(logger, loaders)
	for name, artifact := range artifacts {
		r.loaded[name] = artifact
	}
	return r
}

// Load returns the artifact if already loaded. If a load is in flight it
// returns (nil, false, nil) — "not yet ready", not an error. If no load is
// in flight, it starts one in the background and also returns not-ready.
// Unknown names fail with an invalid-argument error.
func (r *Registry) Load(name string) (artifact any, ready bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.loaded[name]; ok {
		return a, true, nil
	}

	if _, ok := r.loaders[name]; !ok {
		return nil, false, apierr.Validation(fmt.Sprintf("unknown model: %s", name))
	}

	if r.inflight[name] {
		return nil, false, nil
	}

	r.inflight[name] = true
	loader := r.loaders[name]
	go r.runLoad(name, loader)

	return nil, false, nil
}

// IsLoaded reports whether an artifact is already published, without
// triggering a load — used by the /health endpoint's models_loaded field.
func (r *Registry) IsLoaded(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.loaded[name]
	return ok
}

// runLoad executes a loader in the background. It deliberately uses a
// fresh, uncancellable context: background training/loading is
// fire-and-forget and must not be abandoned just because the request that
// triggered it was cancelled.
//
// On failure the inflight entry is removed so the next caller retries;
// a dead in-flight marker would otherwise wedge the model forever.
func (r *Registry) runLoad(name string, loader Loader) {
	artifact, err := loader(context.Background())

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inflight, name)

	if err != nil {
		r.logger.Error().Err(err).Str("model", name).Msg("model load failed, will retry on next request")
		return
	}
	r.loaded[name] = artifact
	r.logger.Info().Str("model", name).Msg("model loaded")
}
