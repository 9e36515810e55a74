package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"modelrouter/internal/core"
	"modelrouter/internal/ratings"
)

// OverrideSource supplies the rating overrides merged on top of each build.
type OverrideSource interface {
	Overrides() map[string]ratings.Override
}

// Snapshot is one immutable catalog build.
type Snapshot struct {
	Models   []core.ModelDescriptor
	LoadedAt time.Time

	byID map[string]int
}

// Model returns the descriptor for id.
func (s *Snapshot) Model(id string) (*core.ModelDescriptor, bool) {
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.Models[i], true
}

// NewSnapshot indexes models. Later duplicates of an id are dropped.
func NewSnapshot(models []core.ModelDescriptor, loadedAt time.Time) *Snapshot {
	s := &Snapshot{LoadedAt: loadedAt, byID: make(map[string]int, len(models))}
	s.Models = make([]core.ModelDescriptor, 0, len(models))
	for _, m := range models {
		if _, dup := s.byID[m.ID]; dup {
			continue
		}
		s.byID[m.ID] = len(s.Models)
		s.Models = append(s.Models, m)
	}
	return s
}

// Store serves the current catalog snapshot and rebuilds it when it is older than the
// reload interval. Readers never see a partially built catalog.
type Store struct {
	source    Source
	overrides OverrideSource
	interval  time.Duration
	now       func() time.Time

	current atomic.Pointer[Snapshot]
	stale   atomic.Bool
	mu      sync.Mutex // serializes rebuilds
}

// NewStore creates a store. overrides may be nil. A non-positive interval rebuilds on every read.
func NewStore(source Source, overrides OverrideSource, interval time.Duration) *Store {
	return &Store{
		source:    source,
		overrides: overrides,
		interval:  interval,
		now:       time.Now,
	}
}

func (s *Store) fresh(snap *Snapshot) bool {
	return snap != nil && !s.stale.Load() && s.now().Sub(snap.LoadedAt) < s.interval
}

// Snapshot returns the current catalog, rebuilding it first when stale. A failed rebuild
// keeps serving the previous snapshot; it is only an error when there is none.
func (s *Store) Snapshot(ctx context.Context) (*Snapshot, error) {
	if snap := s.current.Load(); s.fresh(snap) {
		return snap, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	if s.fresh(prev) {
		return prev, nil
	}

	snap, err := s.build(ctx)
	if err != nil {
		if prev != nil {
			slog.Warn("catalog reload failed, serving previous snapshot", "error", err, "loaded_at", prev.LoadedAt)
			return prev, nil
		}
		return nil, err
	}
	s.current.Store(snap)
	slog.Info("catalog loaded", "models", len(snap.Models))
	return snap, nil
}

// Invalidate forces the next Snapshot call to rebuild.
func (s *Store) Invalidate() {
	s.stale.Store(true)
}

func (s *Store) build(ctx context.Context) (*Snapshot, error) {
	// cleared before loading so an Invalidate during the build is not lost
	s.stale.Store(false)

	reg, err := s.source.Load(ctx)
	if err != nil {
		s.stale.Store(true)
		return nil, fmt.Errorf("failed to load registry: %w", err)
	}

	models := Build(reg)
	if s.overrides != nil {
		overrides := s.overrides.Overrides()
		for i := range models {
			if o, ok := overrides[models[i].ID]; ok {
				o.ApplyTo(&models[i])
			}
		}
	}
	return NewSnapshot(models, s.now()), nil
}
