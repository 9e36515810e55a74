// Package exhaustion decides whether individual models, whole boost tiers, and the
// account as a whole are currently unusable.
//
// Credit-backed models are usable only when the credit lookup confirms a positive
// balance; a failed or unavailable lookup makes them unusable. Every other model is
// usable unless the rate-limit cache holds an exhausted snapshot for it.
package exhaustion

import (
	"context"
	"fmt"
	"log/slog"

	"modelrouter/internal/core"
)

// Reason strings surfaced to callers.
const (
	ReasonCreditUnverifiable = "cannot verify credit balance"
	ReasonNoCredits          = "credit balance exhausted"
	ReasonRateLimited        = "rate limit exhausted"
	ReasonEmptyTier          = "no models in tier"
	ReasonAllUnusable        = "all models in tier are unusable"
)

// RateLimits is the read side of the rate-limit cache.
type RateLimits interface {
	IsExhausted(provider, model string) bool
	WaitSeconds(provider, model string) int
}

// TierObserver is notified of every tier evaluation.
type TierObserver interface {
	ObserveTier(tier core.BoostTier, exhausted bool)
}

// Usability is the verdict for one model.
type Usability struct {
	ModelID     string   `json:"model_id"`
	Usable      bool     `json:"usable"`
	Reason      string   `json:"reason,omitempty"`
	WaitSeconds int      `json:"wait_seconds,omitempty"`
	Balance     *float64 `json:"balance,omitempty"`
}

// TierStatus is the verdict for one boost tier.
type TierStatus struct {
	BoostTier   core.BoostTier    `json:"boost_tier"`
	CostTier    core.CostTier     `json:"cost_tier"`
	Exhausted   bool              `json:"exhausted"`
	Reason      string            `json:"reason,omitempty"`
	TotalModels int               `json:"total_models"`
	Usable      []string          `json:"usable_models"`
	Unusable    []string          `json:"unusable_models"`
	Reasons     map[string]string `json:"unusable_reasons"`
}

// AccountStatus combines the credit lookup with every tier's status.
type AccountStatus struct {
	Credits   core.CreditBalance `json:"credits"`
	Tiers     []TierStatus       `json:"tiers"`
	Exhausted bool               `json:"account_exhausted"`
}

// Evaluator combines the rate-limit cache and the credit lookup.
type Evaluator struct {
	limits   RateLimits
	credits  core.CreditChecker
	observer TierObserver
}

// New creates an evaluator. credits and observer may be nil; with no credit checker every
// credit-backed model is unusable.
func New(limits RateLimits, credits core.CreditChecker, observer TierObserver) *Evaluator {
	return &Evaluator{limits: limits, credits: credits, observer: observer}
}

// Check memoizes the credit lookup so one evaluation pass queries it at most once.
type Check struct {
	e       *Evaluator
	ctx     context.Context
	fetched bool
	balance core.CreditBalance
}

// Begin starts an evaluation pass.
func (e *Evaluator) Begin(ctx context.Context) *Check {
	return &Check{e: e, ctx: ctx}
}

// Credits returns the credit lookup result. A failed lookup reports unavailable.
func (c *Check) Credits() core.CreditBalance {
	if c.fetched {
		return c.balance
	}
	c.fetched = true

	if c.e.credits == nil {
		c.balance = core.CreditBalance{Available: false, Reason: "no credit provider configured"}
		return c.balance
	}
	b, err := c.e.credits.CreditBalance(c.ctx)
	if err != nil {
		slog.Warn("credit balance lookup failed", "error", err)
		b = core.CreditBalance{Available: false, Reason: err.Error()}
	}
	c.balance = b
	return c.balance
}

// ModelUsable reports whether a single model can be called right now.
func (c *Check) ModelUsable(m *core.ModelDescriptor) Usability {
	u := Usability{ModelID: m.ID, Usable: true}

	if m.CreditBacked() {
		b := c.Credits()
		switch {
		case !b.Available:
			u.Usable = false
			u.Reason = ReasonCreditUnverifiable
			if b.Reason != "" {
				u.Reason = fmt.Sprintf("%s: %s", ReasonCreditUnverifiable, b.Reason)
			}
		case b.Balance <= 0:
			u.Usable = false
			u.Reason = ReasonNoCredits
			u.Balance = &b.Balance
		default:
			u.Balance = &b.Balance
		}
		return u
	}

	if c.e.limits != nil && c.e.limits.IsExhausted(m.Provider, m.ID) {
		u.Usable = false
		u.Reason = ReasonRateLimited
		u.WaitSeconds = c.e.limits.WaitSeconds(m.Provider, m.ID)
	}
	return u
}

// Tier evaluates every model of the catalog whose cost tier matches the boost tier.
func (c *Check) Tier(models []core.ModelDescriptor, tier core.BoostTier) TierStatus {
	status := TierStatus{
		BoostTier: tier,
		Usable:    []string{},
		Unusable:  []string{},
		Reasons:   map[string]string{},
	}
	costTier, ok := tier.CostTier()
	if !ok {
		status.Exhausted = true
		status.Reason = fmt.Sprintf("unknown boost tier %q", tier)
		return status
	}
	status.CostTier = costTier

	for i := range models {
		m := &models[i]
		if m.CostTier != costTier {
			continue
		}
		status.TotalModels++
		u := c.ModelUsable(m)
		if u.Usable {
			status.Usable = append(status.Usable, m.ID)
			continue
		}
		status.Unusable = append(status.Unusable, m.ID)
		status.Reasons[m.ID] = u.Reason
	}

	switch {
	case status.TotalModels == 0:
		status.Exhausted = true
		status.Reason = ReasonEmptyTier
	case len(status.Usable) == 0:
		status.Exhausted = true
		status.Reason = ReasonAllUnusable
	}

	if c.e.observer != nil {
		c.e.observer.ObserveTier(tier, status.Exhausted)
	}
	return status
}

// Account evaluates every boost tier. The account is exhausted only when all are.
func (c *Check) Account(models []core.ModelDescriptor) AccountStatus {
	status := AccountStatus{Credits: c.Credits(), Exhausted: true}
	for _, tier := range core.BoostTiers {
		ts := c.Tier(models, tier)
		status.Tiers = append(status.Tiers, ts)
		if !ts.Exhausted {
			status.Exhausted = false
		}
	}
	return status
}

// IsModelUsable is a single-model evaluation pass.
func (e *Evaluator) IsModelUsable(ctx context.Context, m *core.ModelDescriptor) Usability {
	return e.Begin(ctx).ModelUsable(m)
}

// CheckTierExhaustion is a single-tier evaluation pass.
func (e *Evaluator) CheckTierExhaustion(ctx context.Context, models []core.ModelDescriptor, tier core.BoostTier) TierStatus {
	return e.Begin(ctx).Tier(models, tier)
}

// AccountStatus is a full evaluation pass over both boost tiers.
func (e *Evaluator) AccountStatus(ctx context.Context, models []core.ModelDescriptor) AccountStatus {
	return e.Begin(ctx).Account(models)
}
