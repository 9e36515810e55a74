package catalog

import (
	"log/slog"
	"sort"
	"strings"

	"modelrouter/internal/core"
)

// RoutePuter is the brokered provider's route.
const RoutePuter = "puter"

// bucketAliases maps alternate bucket spellings to their route.
var bucketAliases = map[string]string{
	"workers_ai": "cloudflare",
	"workers-ai": "cloudflare",
	"hf":         "huggingface",
	"google":     "gemini",
	"local":      "ollama",
}

// ResolveRoute returns the provider and route for a registry bucket. Unknown buckets
// pass through as their own provider and route. The direct bucket takes its provider
// from the company's direct integration, or the lower-cased company name.
func ResolveRoute(company, bucket string) (provider, route string) {
	b := strings.ToLower(strings.TrimSpace(bucket))
	if alias, ok := bucketAliases[b]; ok {
		b = alias
	}
	if b != core.RouteDirect {
		return b, b
	}
	if p, ok := core.DirectIntegration(company); ok {
		return p, core.RouteDirect
	}
	return strings.ToLower(strings.TrimSpace(company)), core.RouteDirect
}

// Build flattens the registry into descriptors. Companies and buckets are visited in
// sorted order and ids in list order; a repeated id keeps its first descriptor.
func Build(reg *Registry) []core.ModelDescriptor {
	if reg == nil {
		return nil
	}

	free := make(map[string]bool, len(reg.FreeModels))
	for _, id := range reg.FreeModels {
		free[id] = true
	}

	companies := make([]string, 0, len(reg.Models))
	for company := range reg.Models {
		companies = append(companies, company)
	}
	sort.Strings(companies)

	seen := make(map[string]bool)
	var models []core.ModelDescriptor
	for _, company := range companies {
		buckets := make([]string, 0, len(reg.Models[company]))
		for bucket := range reg.Models[company] {
			buckets = append(buckets, bucket)
		}
		sort.Strings(buckets)

		for _, bucket := range buckets {
			provider, route := ResolveRoute(company, bucket)
			for _, id := range reg.Models[company][bucket] {
				if seen[id] {
					slog.Debug("catalog: duplicate model id skipped", "model", id, "company", company, "bucket", bucket)
					continue
				}
				seen[id] = true

				detail, hasDetail := reg.Details[id]
				models = append(models, describe(id, company, provider, route, detail, hasDetail, free[id]))
			}
		}
	}
	return models
}

func describe(id, company, provider, route string, detail ModelDetail, hasDetail, free bool) core.ModelDescriptor {
	d := core.ModelDescriptor{
		ID:       id,
		Provider: provider,
		Company:  company,
		Route:    route,
	}

	if hasDetail && detail.Capabilities != nil {
		d.Capabilities = *detail.Capabilities
	} else {
		d.Capabilities = InferCapabilities(id)
	}

	if hasDetail && detail.Ratings != nil {
		d.Ratings = *detail.Ratings
	} else {
		d.Ratings = DefaultRatings(d.Capabilities)
	}

	d.CostTier = costTier(detail, free)

	d.UsesPuterCredits = route == RoutePuter
	if detail.UsesPuterCredits != nil {
		d.UsesPuterCredits = *detail.UsesPuterCredits
	}

	d.Limits = detail.Limits
	d.Notes = detail.Notes
	d.CostNotes = detail.CostNotes
	return d
}

// costTier resolves the tier: explicit cost_tier (anything unknown is paid), then a
// boost_tier alias, then the free list, then paid.
func costTier(detail ModelDetail, free bool) core.CostTier {
	if detail.CostTier != "" {
		return core.NormalizeCostTier(detail.CostTier)
	}
	if detail.BoostTier != "" {
		if t, ok := core.BoostTier(detail.BoostTier).CostTier(); ok {
			return t
		}
	}
	if free {
		return core.CostTierRemoteFree
	}
	return core.CostTierPaid
}
