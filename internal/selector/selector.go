// Package selector filters and ranks catalog descriptors against a request's constraints.
package selector

import (
	"sort"
	"strings"

	"modelrouter/internal/core"
)

// Constraints narrow the candidate set. Zero values mean "no constraint".
type Constraints struct {
	Provider   string
	CostTier   core.CostTier
	Capability core.Capability
	// MaxCostTier is an inclusive ceiling on cost-tier rank.
	MaxCostTier core.CostTier
}

// capability returns the capability used for scoring, chat by default.
func (c Constraints) capability() core.Capability {
	if c.Capability == "" {
		return core.CapabilityChat
	}
	return c.Capability
}

// Request is a pick request: an explicit model id bypasses every constraint.
type Request struct {
	ModelID string
	Constraints
}

// Scored is a candidate with its score for the requested capability.
type Scored struct {
	Model *core.ModelDescriptor `json:"model"`
	Score int                   `json:"score"`
}

// Matches reports whether a descriptor satisfies every supplied constraint.
func Matches(m *core.ModelDescriptor, c Constraints) bool {
	if c.Provider != "" && !strings.EqualFold(m.Provider, c.Provider) {
		return false
	}
	if c.CostTier != "" && m.CostTier != c.CostTier {
		return false
	}
	if c.Capability != "" && !m.Capabilities.Has(c.Capability) {
		return false
	}
	if c.MaxCostTier != "" && m.CostTier.Rank() > c.MaxCostTier.Rank() {
		return false
	}
	return true
}

// Filter returns the descriptors matching c, in catalog order.
func Filter(models []core.ModelDescriptor, c Constraints) []*core.ModelDescriptor {
	out := make([]*core.ModelDescriptor, 0, len(models))
	for i := range models {
		if Matches(&models[i], c) {
			out = append(out, &models[i])
		}
	}
	return out
}

// Suggest filters and ranks. Ordering: cheaper cost tier first, then higher score for
// the requested capability, then higher speed rating. Remaining ties keep catalog order.
func Suggest(models []core.ModelDescriptor, c Constraints) []Scored {
	capability := c.capability()
	candidates := Filter(models, c)

	scored := make([]Scored, len(candidates))
	for i, m := range candidates {
		score, _ := m.Ratings.Get(capability)
		scored[i] = Scored{Model: m, Score: score}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if ra, rb := a.Model.CostTier.Rank(), b.Model.CostTier.Rank(); ra != rb {
			return ra < rb
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		sa, _ := a.Model.Ratings.Get(core.CapabilitySpeed)
		sb, _ := b.Model.Ratings.Get(core.CapabilitySpeed)
		return sa > sb
	})
	return scored
}

// Pick returns the explicit model verbatim when ModelID is set, otherwise the top suggestion.
func Pick(models []core.ModelDescriptor, req Request) (Scored, bool) {
	if req.ModelID != "" {
		for i := range models {
			if models[i].ID == req.ModelID {
				score, _ := models[i].Ratings.Get(req.capability())
				return Scored{Model: &models[i], Score: score}, true
			}
		}
		return Scored{}, false
	}
	ranked := Suggest(models, req.Constraints)
	if len(ranked) == 0 {
		return Scored{}, false
	}
	return ranked[0], true
}
