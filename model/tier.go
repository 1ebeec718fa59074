package model

import (
	"fmt"
	"maps"
)

// Tier is an abstract capability class a role is configured with. The
// concrete backend model identifier is resolved through a TierTable.
type Tier string

const (
	TierFast     Tier = "fast"
	TierStandard Tier = "standard"
	TierAdvanced Tier = "advanced"
)

// TierTable maps tiers to backend model identifiers. It is immutable once
// built and passed explicitly to the engine rather than read from globals.
type TierTable struct {
	ids      map[Tier]string
	fallback string
}

// NewTierTable builds a table from ids. Tiers without an entry resolve to
// fallback (which may be empty to let the provider choose its default).
func NewTierTable(ids map[Tier]string, fallback string) TierTable {
	return TierTable{ids: maps.Clone(ids), fallback: fallback}
}

// Resolve returns the backend identifier for tier.
func (t TierTable) Resolve(tier Tier) string {
	if id, ok := t.ids[tier]; ok && id != "" {
		return id
	}
	return t.fallback
}

// Entries returns a copy of the explicit tier mappings.
func (t TierTable) Entries() map[Tier]string { return maps.Clone(t.ids) }

// AnthropicTiers is the default table used with the Anthropic provider.
func AnthropicTiers() TierTable {
	return NewTierTable(map[Tier]string{
		TierFast:     "claude-3-5-haiku-latest",
		TierStandard: "claude-sonnet-4-0",
		TierAdvanced: "claude-opus-4-0",
	}, "claude-sonnet-4-0")
}

// OpenAITiers is the default table used with the OpenAI provider.
func OpenAITiers() TierTable {
	return NewTierTable(map[Tier]string{
		TierFast:     "gpt-4o-mini",
		TierStandard: "gpt-4o",
		TierAdvanced: "gpt-4.1",
	}, "gpt-4o")
}

// ParseTier validates a tier name; the empty string selects TierStandard.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case "":
		return TierStandard, nil
	case TierFast, TierStandard, TierAdvanced:
		return t, nil
	default:
		return "", fmt.Errorf("unknown model tier %q", s)
	}
}
