package core

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Capability names one of the fixed capability flags a model can carry.
type Capability string

const (
	CapabilityChat        Capability = "chat"
	CapabilityReasoning   Capability = "reasoning"
	CapabilitySpeed       Capability = "speed"
	CapabilityCoding      Capability = "coding"
	CapabilityImages      Capability = "images"
	CapabilityAudioSpeech Capability = "audio_speech"
	CapabilityAudioMusic  Capability = "audio_music"
	CapabilityVision      Capability = "vision"
	CapabilityVideo       Capability = "video"
)

// AllCapabilities lists every capability in canonical order.
var AllCapabilities = []Capability{
	CapabilityChat,
	CapabilityReasoning,
	CapabilitySpeed,
	CapabilityCoding,
	CapabilityImages,
	CapabilityAudioSpeech,
	CapabilityAudioMusic,
	CapabilityVision,
	CapabilityVideo,
}

// ParseCapability normalizes a capability name. The second return is false for unknown names.
func ParseCapability(s string) (Capability, bool) {
	c := Capability(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllCapabilities {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// CostTier classifies how a model is paid for. Tiers are ordered by Rank.
type CostTier string

const (
	CostTierLocal        CostTier = "local"
	CostTierRemoteFree   CostTier = "remote_free"
	CostTierCreditBacked CostTier = "credit_backed"
	CostTierPaid         CostTier = "paid"
)

var costTierRanks = map[CostTier]int{
	CostTierLocal:        0,
	CostTierRemoteFree:   1,
	CostTierCreditBacked: 2,
	CostTierPaid:         3,
}

// Rank returns the ordering position of the tier (local < remote_free < credit_backed < paid).
// Unknown tiers rank as paid.
func (t CostTier) Rank() int {
	if r, ok := costTierRanks[t]; ok {
		return r
	}
	return costTierRanks[CostTierPaid]
}

// Valid reports whether t is one of the four enumerated tiers.
func (t CostTier) Valid() bool {
	_, ok := costTierRanks[t]
	return ok
}

// NormalizeCostTier maps any value outside the enumeration to paid.
func NormalizeCostTier(s string) CostTier {
	t := CostTier(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t
	}
	return CostTierPaid
}

// BoostTier is a caller-facing alias for a cost tier.
type BoostTier string

const (
	BoostTierTurbo BoostTier = "turbo"
	BoostTierUltra BoostTier = "ultra"
)

// BoostTiers lists the boost tiers in evaluation order.
var BoostTiers = []BoostTier{BoostTierTurbo, BoostTierUltra}

// CostTier returns the cost tier the boost tier maps to. The second return is false
// for unknown boost tiers.
func (b BoostTier) CostTier() (CostTier, bool) {
	switch BoostTier(strings.ToLower(string(b))) {
	case BoostTierTurbo:
		return CostTierRemoteFree, true
	case BoostTierUltra:
		return CostTierCreditBacked, true
	default:
		return "", false
	}
}

// ModelCapabilities holds the boolean capability flags of a model.
type ModelCapabilities struct {
	Chat        bool `json:"chat" yaml:"chat"`
	Reasoning   bool `json:"reasoning" yaml:"reasoning"`
	Speed       bool `json:"speed" yaml:"speed"`
	Coding      bool `json:"coding" yaml:"coding"`
	Images      bool `json:"images" yaml:"images"`
	AudioSpeech bool `json:"audio_speech" yaml:"audio_speech"`
	AudioMusic  bool `json:"audio_music" yaml:"audio_music"`
	Vision      bool `json:"vision" yaml:"vision"`
	Video       bool `json:"video" yaml:"video"`
}

// Has reports whether the named capability flag is set.
func (c ModelCapabilities) Has(capability Capability) bool {
	switch capability {
	case CapabilityChat:
		return c.Chat
	case CapabilityReasoning:
		return c.Reasoning
	case CapabilitySpeed:
		return c.Speed
	case CapabilityCoding:
		return c.Coding
	case CapabilityImages:
		return c.Images
	case CapabilityAudioSpeech:
		return c.AudioSpeech
	case CapabilityAudioMusic:
		return c.AudioMusic
	case CapabilityVision:
		return c.Vision
	case CapabilityVideo:
		return c.Video
	default:
		return false
	}
}

// Primary returns the first set flag in AllCapabilities order.
func (c ModelCapabilities) Primary() (Capability, bool) {
	for _, capability := range AllCapabilities {
		if c.Has(capability) {
			return capability, true
		}
	}
	return "", false
}

// ModelRatings holds 0-5 quality scores per capability. A nil field means unrated.
type ModelRatings struct {
	Chat        *int `json:"chat" yaml:"chat" bson:"chat,omitempty" validate:"omitempty,min=0,max=5"`
	Reasoning   *int `json:"reasoning" yaml:"reasoning" bson:"reasoning,omitempty" validate:"omitempty,min=0,max=5"`
	Speed       *int `json:"speed" yaml:"speed" bson:"speed,omitempty" validate:"omitempty,min=0,max=5"`
	Coding      *int `json:"coding" yaml:"coding" bson:"coding,omitempty" validate:"omitempty,min=0,max=5"`
	Images      *int `json:"images" yaml:"images" bson:"images,omitempty" validate:"omitempty,min=0,max=5"`
	AudioSpeech *int `json:"audio_speech" yaml:"audio_speech" bson:"audio_speech,omitempty" validate:"omitempty,min=0,max=5"`
	AudioMusic  *int `json:"audio_music" yaml:"audio_music" bson:"audio_music,omitempty" validate:"omitempty,min=0,max=5"`
	Vision      *int `json:"vision" yaml:"vision" bson:"vision,omitempty" validate:"omitempty,min=0,max=5"`
	Video       *int `json:"video" yaml:"video" bson:"video,omitempty" validate:"omitempty,min=0,max=5"`
}

// Field returns a pointer to the rating slot for a capability, or nil for unknown names.
func (r *ModelRatings) Field(capability Capability) **int {
	switch capability {
	case CapabilityChat:
		return &r.Chat
	case CapabilityReasoning:
		return &r.Reasoning
	case CapabilitySpeed:
		return &r.Speed
	case CapabilityCoding:
		return &r.Coding
	case CapabilityImages:
		return &r.Images
	case CapabilityAudioSpeech:
		return &r.AudioSpeech
	case CapabilityAudioMusic:
		return &r.AudioMusic
	case CapabilityVision:
		return &r.Vision
	case CapabilityVideo:
		return &r.Video
	default:
		return nil
	}
}

// Get returns the rating for a capability and whether it is set.
func (r ModelRatings) Get(capability Capability) (int, bool) {
	slot := r.Field(capability)
	if slot == nil || *slot == nil {
		return 0, false
	}
	return **slot, true
}

// ModelLimits holds published quota figures. Every field is optional.
type ModelLimits struct {
	RequestsPerMinute *int64             `json:"requests_per_minute" yaml:"requests_per_minute"`
	RequestsPerDay    *int64             `json:"requests_per_day" yaml:"requests_per_day"`
	TokensPerMinute   *int64             `json:"tokens_per_minute" yaml:"tokens_per_minute"`
	TokensPerDay      *int64             `json:"tokens_per_day" yaml:"tokens_per_day"`
	TokensPerMonth    *int64             `json:"tokens_per_month" yaml:"tokens_per_month"`
	Units             map[string]float64 `json:"units,omitempty" yaml:"units"`
}

// ModelDescriptor is the unit of selection: one callable model on one route.
type ModelDescriptor struct {
	ID               string            `json:"id"`
	Provider         string            `json:"provider"`
	Company          string            `json:"company"`
	Route            string            `json:"route"`
	Capabilities     ModelCapabilities `json:"capabilities"`
	Ratings          ModelRatings      `json:"ratings"`
	Limits           *ModelLimits      `json:"limits"`
	CostTier         CostTier          `json:"cost_tier"`
	UsesPuterCredits bool              `json:"uses_puter_credits"`
	Notes            string            `json:"notes,omitempty"`
	CostNotes        string            `json:"cost_notes,omitempty"`
}

// CreditBacked reports whether the model draws on a credit balance rather than a rate limit.
func (d *ModelDescriptor) CreditBacked() bool {
	return d.UsesPuterCredits || d.CostTier == CostTierCreditBacked
}

// Message represents a single message in a chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Task values for CallInput.
const (
	TaskChat  = "chat"
	TaskImage = "image"
)

// Defaults applied when a call omits sampling parameters.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1024
)

// CallInput is the provider-neutral payload of a call.
type CallInput struct {
	Prompt      string    `json:"prompt,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
	System      string    `json:"system,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Task        string    `json:"task,omitempty"`
}

// CallResult is what an adapter returns: the raw provider JSON and the response headers.
type CallResult struct {
	Data       json.RawMessage
	Headers    http.Header
	StatusCode int
}

// RouteDirect is the route that dispatches on the descriptor's company.
const RouteDirect = "direct"

var directIntegrations = map[string]string{
	"openai":     "openai",
	"anthropic":  "anthropic",
	"google":     "gemini",
	"gemini":     "gemini",
	"xai":        "xai",
	"x.ai":       "xai",
	"mistral":    "mistral",
	"mistral ai": "mistral",
	"mistralai":  "mistral",
}

// DirectIntegration returns the provider that serves a company's models on the direct route.
// The second return is false for companies without a direct integration.
func DirectIntegration(company string) (string, bool) {
	p, ok := directIntegrations[strings.ToLower(strings.TrimSpace(company))]
	return p, ok
}
