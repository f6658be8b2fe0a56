// Package models defines data structures for the Fincept terminal server.
package models

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
)

// DataType is an abstract category of financial data that consumers request
// without knowing which concrete provider serves it.
type DataType string

const (
	DataTypeStocks   DataType = "stocks"
	DataTypeForex    DataType = "forex"
	DataTypeCrypto   DataType = "crypto"
	DataTypeNews     DataType = "news"
	DataTypeEconomic DataType = "economic"
)

// AllDataTypes lists every data type in display order.
var AllDataTypes = []DataType{
	DataTypeStocks,
	DataTypeForex,
	DataTypeCrypto,
	DataTypeNews,
	DataTypeEconomic,
}

// ParseDataType validates a data-type string.
func ParseDataType(s string) (DataType, error) {
	dt := DataType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllDataTypes {
		if dt == known {
			return dt, nil
		}
	}
	return "", fmt.Errorf("unknown data type %q", s)
}

// ProviderInfo describes a registered provider. The registry is built once
// at startup and never mutated; credentials are attached separately via
// SourceConfig.
type ProviderInfo struct {
	Name         string     `json:"name"`
	DisplayName  string     `json:"display_name"`
	Transport    string     `json:"type"` // "http", "stub", "generated"
	Supports     []DataType `json:"supports"`
	RequiresAuth bool       `json:"requires_auth"`
	RealTime     bool       `json:"real_time"`
}

// SupportsType reports whether the provider declares support for dt.
func (p ProviderInfo) SupportsType(dt DataType) bool {
	for _, s := range p.Supports {
		if s == dt {
			return true
		}
	}
	return false
}

// SourceConfig holds per-provider credentials and settings. It replaces the
// schema-less settings dict: unknown keys land in Extra, known ones are
// typed and validated when the provider is constructed.
type SourceConfig struct {
	APIKey  string            `json:"api_key,omitempty"`
	BaseURL string            `json:"base_url,omitempty"`
	Extra   map[string]string `json:"extra,omitempty"`
}

// Hash returns a deterministic fingerprint of the config, used to key
// memoized provider instances so a credential change rebuilds the provider.
func (c SourceConfig) Hash() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s", c.APIKey, c.BaseURL)
	keys := make([]string, 0, len(c.Extra))
	for k := range c.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, "|%s=%s", k, c.Extra[k])
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// SourceSettings is the persisted shape of ~/.fincept/data_sources.json.
type SourceSettings struct {
	DataMappings  map[DataType]string     `json:"data_mappings"`
	SourceConfigs map[string]SourceConfig `json:"source_configs"`
}

// NewSourceSettings returns an empty, non-nil settings object.
func NewSourceSettings() *SourceSettings {
	return &SourceSettings{
		DataMappings:  make(map[DataType]string),
		SourceConfigs: make(map[string]SourceConfig),
	}
}

// Clone returns a deep copy so callers can't mutate shared state.
func (s *SourceSettings) Clone() *SourceSettings {
	out := NewSourceSettings()
	for k, v := range s.DataMappings {
		out.DataMappings[k] = v
	}
	for k, v := range s.SourceConfigs {
		cfg := SourceConfig{APIKey: v.APIKey, BaseURL: v.BaseURL}
		if v.Extra != nil {
			cfg.Extra = make(map[string]string, len(v.Extra))
			for ek, ev := range v.Extra {
				cfg.Extra[ek] = ev
			}
		}
		out.SourceConfigs[k] = cfg
	}
	return out
}
