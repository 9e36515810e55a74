// Package catalog builds the flat model catalog from the declarative registry,
// the per-model detail overlay and the rating overrides, and keeps the current
// snapshot for concurrent readers.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"modelrouter/internal/core"
)

// Registry is the parsed registry file.
type Registry struct {
	// Models maps company -> bucket -> model ids. Bucket order within a company is not significant.
	Models map[string]map[string][]string
	// FreeModels lists ids that default to the remote_free tier.
	FreeModels []string
	// Details is the overlay keyed by model id.
	Details map[string]ModelDetail
}

// ModelDetail is the optional-everything overlay for one model.
type ModelDetail struct {
	Capabilities     *core.ModelCapabilities `yaml:"capabilities"`
	Ratings          *core.ModelRatings      `yaml:"ratings"`
	Limits           *core.ModelLimits       `yaml:"limits"`
	CostTier         string                  `yaml:"cost_tier"`
	BoostTier        string                  `yaml:"boost_tier"`
	UsesPuterCredits *bool                   `yaml:"uses_puter_credits"`
	Notes            string                  `yaml:"notes"`
	CostNotes        string                  `yaml:"cost_notes"`
}

// ParseRegistry decodes registry YAML (or JSON). Only a document that is not a mapping
// at all is an error; malformed companies, buckets, ids and details are skipped.
func ParseRegistry(data []byte) (*Registry, error) {
	var doc struct {
		Models       yaml.Node `yaml:"models"`
		FreeModels   yaml.Node `yaml:"free_models"`
		ModelDetails yaml.Node `yaml:"model_details"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}

	reg := &Registry{
		Models:  make(map[string]map[string][]string),
		Details: make(map[string]ModelDetail),
	}

	eachPair(&doc.Models, func(company string, buckets *yaml.Node) {
		if buckets.Kind != yaml.MappingNode {
			slog.Debug("registry: skipping company without buckets", "company", company)
			return
		}
		eachPair(buckets, func(bucket string, ids *yaml.Node) {
			if ids.Kind != yaml.SequenceNode {
				slog.Debug("registry: skipping non-list bucket", "company", company, "bucket", bucket)
				return
			}
			list := scalars(ids)
			if len(list) == 0 {
				return
			}
			if reg.Models[company] == nil {
				reg.Models[company] = make(map[string][]string)
			}
			reg.Models[company][bucket] = append(reg.Models[company][bucket], list...)
		})
	})

	if doc.FreeModels.Kind == yaml.SequenceNode {
		reg.FreeModels = scalars(&doc.FreeModels)
	}

	eachPair(&doc.ModelDetails, func(id string, node *yaml.Node) {
		var detail ModelDetail
		if err := node.Decode(&detail); err != nil {
			slog.Debug("registry: skipping malformed model detail", "model", id, "error", err)
			return
		}
		reg.Details[id] = detail
	})

	return reg, nil
}

// eachPair walks a mapping node. Non-mapping nodes and non-scalar keys are ignored.
func eachPair(node *yaml.Node, fn func(key string, value *yaml.Node)) {
	if node == nil || node.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			continue
		}
		key := strings.TrimSpace(k.Value)
		if key == "" {
			continue
		}
		fn(key, v)
	}
}

func scalars(seq *yaml.Node) []string {
	out := make([]string, 0, len(seq.Content))
	for _, item := range seq.Content {
		if item.Kind != yaml.ScalarNode {
			continue
		}
		if s := strings.TrimSpace(item.Value); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Source supplies the registry.
type Source interface {
	Load(ctx context.Context) (*Registry, error)
}

// FileSource reads the registry from a local file on every Load.
type FileSource struct {
	Path string
}

// Load reads and parses the file.
func (s FileSource) Load(ctx context.Context) (*Registry, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", s.Path, err)
	}
	return ParseRegistry(data)
}

// StaticSource serves a fixed registry.
type StaticSource struct {
	Registry *Registry
}

// Load returns the fixed registry.
func (s StaticSource) Load(context.Context) (*Registry, error) {
	if s.Registry == nil {
		return &Registry{}, nil
	}
	return s.Registry, nil
}
