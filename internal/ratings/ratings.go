// Package ratings keeps user-edited rating overrides for catalog models.
// Overrides are read from a durable Store at startup and written through on every update.
package ratings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"modelrouter/internal/core"
)

// Override is a persisted patch on a model's ratings and notes.
type Override struct {
	core.ModelRatings `bson:",inline"`

	ModelID   string    `json:"model_id" bson:"_id"`
	Notes     *string   `json:"notes,omitempty" bson:"notes,omitempty"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// ApplyTo merges the override onto a descriptor. Unset fields leave the descriptor untouched.
func (o Override) ApplyTo(d *core.ModelDescriptor) {
	for _, c := range core.AllCapabilities {
		if v, ok := o.Get(c); ok {
			*d.Ratings.Field(c) = &v
		}
	}
	if o.Notes != nil {
		d.Notes = *o.Notes
	}
}

// merge returns o with every set field of patch applied.
func (o Override) merge(patch Override) Override {
	for _, c := range core.AllCapabilities {
		if v, ok := patch.Get(c); ok {
			*o.Field(c) = &v
		}
	}
	if patch.Notes != nil {
		notes := *patch.Notes
		o.Notes = &notes
	}
	return o
}

// Store persists overrides. Implementations must be safe for concurrent use.
type Store interface {
	// Load returns every stored override keyed by model id.
	Load(ctx context.Context) (map[string]Override, error)
	// Save inserts or replaces one override.
	Save(ctx context.Context, o Override) error
	Close() error
}

// Service owns the in-memory override map and writes changes through to the Store.
type Service struct {
	store Store
	now   func() time.Time

	mu        sync.RWMutex
	overrides map[string]Override
}

// NewService loads all overrides from store.
func NewService(ctx context.Context, store Store) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ratings store is required")
	}
	overrides, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating overrides: %w", err)
	}
	if overrides == nil {
		overrides = make(map[string]Override)
	}
	return &Service{store: store, now: time.Now, overrides: overrides}, nil
}

// Overrides returns a copy of the current override map.
func (s *Service) Overrides() map[string]Override {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Override, len(s.overrides))
	for id, o := range s.overrides {
		out[id] = o
	}
	return out
}

// Get returns the override for modelID.
func (s *Service) Get(modelID string) (Override, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.overrides[modelID]
	return o, ok
}

// Update validates patch, merges it with the existing override and persists the result.
// The in-memory map only changes after the store accepted the write.
func (s *Service) Update(ctx context.Context, modelID string, patch Override) (Override, error) {
	if modelID == "" {
		return Override{}, core.NewValidationError("model_id", modelID, "model_id is required")
	}
	if err := core.ValidateStruct(patch.ModelRatings); err != nil {
		return Override{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	updated := s.overrides[modelID].merge(patch)
	updated.ModelID = modelID
	updated.UpdatedAt = s.now().UTC()

	if err := s.store.Save(ctx, updated); err != nil {
		return Override{}, fmt.Errorf("failed to save rating override for %s: %w", modelID, err)
	}
	s.overrides[modelID] = updated
	return updated, nil
}

// Close releases the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}
