package routing

import (
	"encoding/json"
	"strings"

	"modelrouter/internal/core"
	"modelrouter/internal/exhaustion"
	"modelrouter/internal/ratelimit"
	"modelrouter/internal/selector"
)

// Constraints are the caller-facing selection filters. Values are case-insensitive.
type Constraints struct {
	Provider    string `json:"provider,omitempty" query:"provider"`
	CostTier    string `json:"cost_tier,omitempty" query:"cost_tier" validate:"omitempty,oneof=local remote_free credit_backed paid"`
	Capability  string `json:"capability,omitempty" query:"capability" validate:"omitempty,oneof=chat reasoning speed coding images audio_speech audio_music vision video"`
	MaxCostTier string `json:"max_cost_tier,omitempty" query:"max_cost_tier" validate:"omitempty,oneof=local remote_free credit_backed paid"`
	BoostTier   string `json:"boost_tier,omitempty" query:"boost_tier" validate:"omitempty,oneof=turbo ultra"`
}

func (c Constraints) normalized() Constraints {
	return Constraints{
		Provider:    strings.ToLower(strings.TrimSpace(c.Provider)),
		CostTier:    strings.ToLower(strings.TrimSpace(c.CostTier)),
		Capability:  strings.ToLower(strings.TrimSpace(c.Capability)),
		MaxCostTier: strings.ToLower(strings.TrimSpace(c.MaxCostTier)),
		BoostTier:   strings.ToLower(strings.TrimSpace(c.BoostTier)),
	}
}

// selector validates the constraints and converts them. A boost tier supplies the cost
// tier when none is given.
func (c Constraints) selector() (selector.Constraints, error) {
	n := c.normalized()
	if err := core.ValidateStruct(n); err != nil {
		return selector.Constraints{}, err
	}
	out := selector.Constraints{
		Provider:    n.Provider,
		CostTier:    core.CostTier(n.CostTier),
		Capability:  core.Capability(n.Capability),
		MaxCostTier: core.CostTier(n.MaxCostTier),
	}
	if out.CostTier == "" && n.BoostTier != "" {
		out.CostTier, _ = core.BoostTier(n.BoostTier).CostTier()
	}
	return out, nil
}

// SuggestRequest asks for a ranked candidate list.
type SuggestRequest struct {
	Constraints
	Limit int `json:"limit,omitempty"`
}

// SuggestResponse is the ranked candidate list.
type SuggestResponse struct {
	Models []selector.Scored `json:"models"`
	Count  int               `json:"count"`
}

// RunRequest names a model explicitly or by constraints, plus the call payload.
type RunRequest struct {
	ModelID string `json:"model_id,omitempty"`
	Constraints
	core.CallInput
}

// RunResult is the outcome of a successful call.
type RunResult struct {
	Model      *core.ModelDescriptor  `json:"model"`
	Provider   string                 `json:"provider"`
	Output     string                 `json:"output"`
	Raw        json.RawMessage        `json:"raw"`
	RateLimit  *ratelimit.Limit       `json:"rate_limit,omitempty"`
	Exhaustion *exhaustion.TierStatus `json:"exhaustion,omitempty"`
}

// RunError is returned when the provider call fails. It wraps the call error with a
// retry hint and, when one exists, a usable alternative on a different provider.
type RunError struct {
	Err               error            `json:"-"`
	Model             string           `json:"model"`
	Provider          string           `json:"provider"`
	RateLimited       bool             `json:"rate_limited"`
	RetryAfterSeconds int              `json:"retry_after_seconds,omitempty"`
	Alternative       *selector.Scored `json:"alternative,omitempty"`
}

func (e *RunError) Error() string { return e.Err.Error() }

func (e *RunError) Unwrap() error { return e.Err }

// Task is one unit of preflight planning.
type Task struct {
	ID      string `json:"id,omitempty"`
	ModelID string `json:"model_id,omitempty"`
	Constraints
}

// PreflightResult is the advisory verdict for one task.
type PreflightResult struct {
	TaskID      string                `json:"task_id,omitempty"`
	CanRun      bool                  `json:"can_run"`
	Model       *core.ModelDescriptor `json:"model,omitempty"`
	Score       int                   `json:"score,omitempty"`
	Reason      string                `json:"reason,omitempty"`
	WaitSeconds int                   `json:"wait_seconds,omitempty"`
	Candidates  int                   `json:"candidates"`
}

// BatchResult holds the verdicts of a preflight batch in request order.
type BatchResult struct {
	Results  []PreflightResult `json:"results"`
	Total    int               `json:"total"`
	Runnable int               `json:"runnable"`
}
