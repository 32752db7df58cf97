package model

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Asset types understood by the data providers.
const (
	AssetStocks      = "stocks"
	AssetCrypto      = "crypto"
	AssetForex       = "forex"
	AssetIndices     = "indices"
	AssetCommodities = "commodities"
)

// SymbolConfig describes one symbol to analyze.
type SymbolConfig struct {
	Symbol    string `yaml:"symbol" json:"symbol"`
	AssetType string `yaml:"asset_type" json:"asset_type"`
	Timeframe string `yaml:"timeframe" json:"timeframe"`
	Period    string `yaml:"period" json:"period"`
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Strategy  string `yaml:"strategy" json:"strategy,omitempty"`
}

// Key identifies the symbol inside a group result.
func (c SymbolConfig) Key() string {
	return strings.ToUpper(c.Symbol) + "_" + c.Timeframe
}

// Group is a named collection of symbols analyzed together.
type Group struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description" json:"description,omitempty"`
	Enabled     bool           `yaml:"enabled" json:"enabled"`
	Cron        string         `yaml:"cron" json:"cron,omitempty"`
	Tags        []string       `yaml:"tags" json:"tags,omitempty"`
	Symbols     []SymbolConfig `yaml:"symbols" json:"symbols"`
}

// EnabledSymbols returns the symbols that take part in group analysis.
func (g Group) EnabledSymbols() []SymbolConfig {
	out := make([]SymbolConfig, 0, len(g.Symbols))
	for _, s := range g.Symbols {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// UnmarshalYAML treats a missing enabled key as true.
func (c *SymbolConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain SymbolConfig
	p := plain{Enabled: true}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = SymbolConfig(p)
	return nil
}

// UnmarshalYAML treats a missing enabled key as true.
func (g *Group) UnmarshalYAML(value *yaml.Node) error {
	type plain Group
	p := plain{Enabled: true}
	if err := value.Decode(&p); err != nil {
		return err
	}
	*g = Group(p)
	return nil
}
