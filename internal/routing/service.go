// Package routing implements the router's operations on top of the catalog, the
// selector, the provider router and the quota and health state.
package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"modelrouter/internal/catalog"
	"modelrouter/internal/core"
	"modelrouter/internal/exhaustion"
	"modelrouter/internal/health"
	"modelrouter/internal/providers"
	"modelrouter/internal/ratelimit"
	"modelrouter/internal/ratings"
	"modelrouter/internal/selector"
)

// Catalog serves catalog snapshots.
type Catalog interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
	Invalidate()
}

// Caller executes provider calls.
type Caller interface {
	Supports(model *core.ModelDescriptor) bool
	Call(ctx context.Context, model *core.ModelDescriptor, input *core.CallInput) (*core.CallResult, error)
}

// RatingUpdater persists rating overrides.
type RatingUpdater interface {
	Update(ctx context.Context, modelID string, patch ratings.Override) (ratings.Override, error)
}

// Dependencies are the collaborators of a Service. All are required.
type Dependencies struct {
	Catalog   Catalog
	Caller    Caller
	Ratings   RatingUpdater
	Limits    *ratelimit.Cache
	Health    *health.Tracker
	Evaluator *exhaustion.Evaluator
}

// Service implements the router operations. It is safe for concurrent use.
type Service struct {
	catalog   Catalog
	caller    Caller
	ratings   RatingUpdater
	limits    *ratelimit.Cache
	health    *health.Tracker
	evaluator *exhaustion.Evaluator
}

// New creates a Service. Returns an error if any dependency is missing.
func New(deps Dependencies) (*Service, error) {
	switch {
	case deps.Catalog == nil:
		return nil, fmt.Errorf("catalog is required")
	case deps.Caller == nil:
		return nil, fmt.Errorf("caller is required")
	case deps.Ratings == nil:
		return nil, fmt.Errorf("ratings is required")
	case deps.Limits == nil:
		return nil, fmt.Errorf("rate-limit cache is required")
	case deps.Health == nil:
		return nil, fmt.Errorf("health tracker is required")
	case deps.Evaluator == nil:
		return nil, fmt.Errorf("exhaustion evaluator is required")
	}
	return &Service{
		catalog:   deps.Catalog,
		caller:    deps.Caller,
		ratings:   deps.Ratings,
		limits:    deps.Limits,
		health:    deps.Health,
		evaluator: deps.Evaluator,
	}, nil
}

func (s *Service) models(ctx context.Context) (*catalog.Snapshot, error) {
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, core.NewConfigurationError("", fmt.Sprintf("model catalog unavailable: %v", err))
	}
	return snap, nil
}

// Catalog lists the descriptors matching the provider, cost tier and capability filters.
func (s *Service) Catalog(ctx context.Context, filter Constraints) ([]core.ModelDescriptor, error) {
	c, err := filter.selector()
	if err != nil {
		return nil, err
	}
	snap, err := s.models(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]core.ModelDescriptor, 0, len(snap.Models))
	for _, m := range selector.Filter(snap.Models, c) {
		out = append(out, *m)
	}
	return out, nil
}

// Model returns the descriptor with the given id.
func (s *Service) Model(ctx context.Context, id string) (*core.ModelDescriptor, error) {
	snap, err := s.models(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := snap.Model(id)
	if !ok {
		return nil, core.NewNotFoundError("model not found: " + id)
	}
	return m, nil
}

// Suggest ranks the descriptors matching the request. Limit caps the result when positive.
func (s *Service) Suggest(ctx context.Context, req SuggestRequest) (*SuggestResponse, error) {
	if req.Limit < 0 {
		return nil, core.NewValidationError("limit", req.Limit, "limit must be zero or positive")
	}
	c, err := req.Constraints.selector()
	if err != nil {
		return nil, err
	}
	snap, err := s.models(ctx)
	if err != nil {
		return nil, err
	}

	ranked := selector.Suggest(snap.Models, c)
	if req.Limit > 0 && len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}
	return &SuggestResponse{Models: ranked, Count: len(ranked)}, nil
}

// Run selects a model, calls it and normalizes the output. Provider failures come back
// as *RunError; selection and validation failures as *core.GatewayError.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	// An explicit model id bypasses selection, so its constraints are not validated.
	var c selector.Constraints
	if req.ModelID == "" {
		var err error
		if c, err = req.Constraints.selector(); err != nil {
			return nil, err
		}
	}
	if _, err := providers.NormalizeInput(&req.CallInput); err != nil {
		return nil, err
	}
	snap, err := s.models(ctx)
	if err != nil {
		return nil, err
	}

	picked, ok := selector.Pick(snap.Models, selector.Request{ModelID: req.ModelID, Constraints: c})
	if !ok {
		if req.ModelID != "" {
			return nil, core.NewNotFoundError("model not found: " + req.ModelID)
		}
		return nil, core.NewNotFoundError("no model matches the requested constraints")
	}
	model := picked.Model

	start := time.Now()
	result, callErr := s.caller.Call(ctx, model, &req.CallInput)
	elapsed := time.Since(start)

	if callErr != nil {
		s.record(model, elapsed, nil, callErr)
		return nil, s.runError(ctx, snap, model, c, callErr)
	}
	s.record(model, elapsed, result, nil)

	out := &RunResult{
		Model:    model,
		Provider: model.Provider,
		Output:   providers.ExtractContent(result.Data),
		Raw:      result.Data,
	}
	if limit, ok := s.limits.Get(model.Provider, model.ID); ok {
		out.RateLimit = &limit
	}
	if tier, ok := boostTierOf(model.CostTier); ok {
		status := s.evaluator.CheckTierExhaustion(ctx, snap.Models, tier)
		out.Exhaustion = &status
	}
	return out, nil
}

// record feeds a completed call into the health tracker and the rate-limit cache.
func (s *Service) record(model *core.ModelDescriptor, elapsed time.Duration, result *core.CallResult, err error) {
	if err == nil {
		s.health.RecordCall(model.Provider, model.ID, true, elapsed, "")
		if result != nil {
			s.limits.Update(model.Provider, model.ID, result.Headers)
		}
		return
	}

	s.health.RecordCall(model.Provider, model.ID, false, elapsed, err.Error())
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) && gwErr.Headers != nil {
		s.limits.Update(model.Provider, model.ID, gwErr.Headers)
	}
}

func (s *Service) runError(ctx context.Context, snap *catalog.Snapshot, model *core.ModelDescriptor, c selector.Constraints, err error) *RunError {
	runErr := &RunError{
		Err:         err,
		Model:       model.ID,
		Provider:    model.Provider,
		RateLimited: core.IsRateLimit(err),
	}
	if runErr.RateLimited {
		runErr.RetryAfterSeconds = s.limits.WaitSeconds(model.Provider, model.ID)
	}
	if alt, ok := s.alternative(ctx, snap, model, c.Capability); ok {
		runErr.Alternative = &alt
	}
	slog.Info("run failed",
		"model", model.ID,
		"provider", model.Provider,
		"rate_limited", runErr.RateLimited,
		"alternative", runErr.Alternative != nil,
	)
	return runErr
}

// alternative returns the best-ranked usable model with the same capability on a
// different provider. Without a requested capability the failed model's primary one is used.
func (s *Service) alternative(ctx context.Context, snap *catalog.Snapshot, failed *core.ModelDescriptor, capability core.Capability) (selector.Scored, bool) {
	if capability == "" {
		primary, ok := failed.Capabilities.Primary()
		if !ok {
			return selector.Scored{}, false
		}
		capability = primary
	}
	check := s.evaluator.Begin(ctx)
	for _, cand := range selector.Suggest(snap.Models, selector.Constraints{Capability: capability}) {
		if strings.EqualFold(cand.Model.Provider, failed.Provider) || !s.caller.Supports(cand.Model) {
			continue
		}
		if check.ModelUsable(cand.Model).Usable {
			return cand, true
		}
	}
	return selector.Scored{}, false
}

// AccountStatus probes the credit balance and evaluates both boost tiers.
func (s *Service) AccountStatus(ctx context.Context) (*exhaustion.AccountStatus, error) {
	snap, err := s.models(ctx)
	if err != nil {
		return nil, err
	}
	status := s.evaluator.AccountStatus(ctx, snap.Models)
	if status.Exhausted {
		slog.Warn("all boost tiers exhausted")
	}
	return &status, nil
}

// ProviderHealth reports every provider that has been called, plus catalog providers
// never called, which are unknown.
func (s *Service) ProviderHealth(ctx context.Context) ([]health.Report, error) {
	reports := s.health.Snapshot()
	seen := make(map[string]bool, len(reports))
	for _, r := range reports {
		seen[r.Provider] = true
	}

	snap, err := s.models(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range snap.Models {
		if !seen[m.Provider] {
			seen[m.Provider] = true
			reports = append(reports, health.Report{Provider: m.Provider, Status: health.StatusUnknown})
		}
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Provider < reports[j].Provider })
	return reports, nil
}

// UpdateRating patches the rating override of a catalog model and invalidates the catalog.
func (s *Service) UpdateRating(ctx context.Context, modelID string, patch ratings.Override) (*ratings.Override, error) {
	if _, err := s.Model(ctx, modelID); err != nil {
		return nil, err
	}
	updated, err := s.ratings.Update(ctx, modelID, patch)
	if err != nil {
		return nil, err
	}
	s.catalog.Invalidate()
	slog.Info("rating updated", "model", modelID)
	return &updated, nil
}

func boostTierOf(t core.CostTier) (core.BoostTier, bool) {
	for _, b := range core.BoostTiers {
		if ct, _ := b.CostTier(); ct == t {
			return b, true
		}
	}
	return "", false
}
