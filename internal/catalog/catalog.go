// Package catalog holds the provider and model registries used to drive
// settings validation and model selection.
//
// A Catalog is immutable once built. The built-in data is returned by Default;
// deployments can replace it with a YAML document via LoadFile.
package catalog

import (
	"fmt"
	"strings"
)

// Well-known provider identifiers.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderAzure     = "azure"
	ProviderAliyun    = "aliyun"
	ProviderCustom    = "custom"
)

// Provider describes an LLM vendor integration.
type Provider struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	DefaultBaseURL string `yaml:"default_base_url" json:"default_base_url"`
	// ModelSet names the model list offered for this provider.
	ModelSet string `yaml:"models" json:"-"`
}

// Model describes a selectable model and its list price.
type Model struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	// Prices are USD per million tokens.
	InputPerMTok  float64 `yaml:"input" json:"input_per_mtok"`
	OutputPerMTok float64 `yaml:"output" json:"output_per_mtok"`
	// UsageBilled marks models billed by the vendor's own usage plan with no list price.
	UsageBilled bool `yaml:"usage_billed" json:"usage_billed"`
}

// PricingLabel renders the price pair the way the dashboard shows it.
func (m Model) PricingLabel() string {
	if m.UsageBilled {
		return "usage-billed"
	}
	return fmt.Sprintf("%s/%s", formatPrice(m.InputPerMTok), formatPrice(m.OutputPerMTok))
}

func formatPrice(p float64) string {
	s := fmt.Sprintf("%.2f", p)
	s = strings.TrimSuffix(s, ".00")
	return "$" + s
}

// Data is the serialisable form of a catalog.
type Data struct {
	Providers []Provider         `yaml:"providers"`
	ModelSets map[string][]Model `yaml:"model_sets"`
	// FallbackSets are concatenated, in order, for providers the catalog does not know.
	FallbackSets []string `yaml:"fallback_model_sets"`
}

// Catalog is an immutable provider/model registry.
type Catalog struct {
	providers []Provider
	byID      map[string]Provider
	sets      map[string][]Model
	fallback  []Model
}

// New builds a catalog from data, rejecting dangling references.
func New(data Data) (*Catalog, error) {
	c := &Catalog{
		providers: make([]Provider, 0, len(data.Providers)),
		byID:      make(map[string]Provider, len(data.Providers)),
		sets:      make(map[string][]Model, len(data.ModelSets)),
	}

	for name, models := range data.ModelSets {
		seen := make(map[string]bool, len(models))
		for _, m := range models {
			if m.ID == "" {
				return nil, fmt.Errorf("model set %q: model with empty id", name)
			}
			if seen[m.ID] {
				return nil, fmt.Errorf("model set %q: duplicate model %q", name, m.ID)
			}
			seen[m.ID] = true
		}
		c.sets[name] = append([]Model(nil), models...)
	}

	for _, p := range data.Providers {
		if p.ID == "" {
			return nil, fmt.Errorf("provider with empty id")
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate provider %q", p.ID)
		}
		if p.ModelSet != "" {
			if _, ok := c.sets[p.ModelSet]; !ok {
				return nil, fmt.Errorf("provider %q: unknown model set %q", p.ID, p.ModelSet)
			}
		}
		c.providers = append(c.providers, p)
		c.byID[p.ID] = p
	}

	for _, name := range data.FallbackSets {
		models, ok := c.sets[name]
		if !ok {
			return nil, fmt.Errorf("fallback: unknown model set %q", name)
		}
		c.fallback = append(c.fallback, models...)
	}

	return c, nil
}

// Lookup returns the provider descriptor for id. A miss is not an error:
// callers treat it as a custom provider.
func (c *Catalog) Lookup(id string) (Provider, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Providers returns the providers in catalog order.
func (c *Catalog) Providers() []Provider {
	return append([]Provider(nil), c.providers...)
}

// DefaultBaseURL returns the provider's default endpoint, or "" when the
// provider is unknown or has none.
func (c *Catalog) DefaultBaseURL(providerID string) string {
	return c.byID[providerID].DefaultBaseURL
}

// ModelsFor returns the ordered model list for a provider. Providers the
// catalog does not recognise get the fallback suggestion set, never an empty
// list.
func (c *Catalog) ModelsFor(providerID string) []Model {
	p, ok := c.byID[providerID]
	if !ok || p.ModelSet == "" {
		return append([]Model(nil), c.fallback...)
	}
	return append([]Model(nil), c.sets[p.ModelSet]...)
}

// FindModel looks up a model within the list offered for providerID.
func (c *Catalog) FindModel(providerID, modelID string) (Model, bool) {
	for _, m := range c.ModelsFor(providerID) {
		if m.ID == modelID {
			return m, true
		}
	}
	return Model{}, false
}

// PriceOf finds a model by id across every model set.
func (c *Catalog) PriceOf(modelID string) (Model, bool) {
	for _, p := range c.providers {
		for _, m := range c.sets[p.ModelSet] {
			if m.ID == modelID {
				return m, true
			}
		}
	}
	for _, m := range c.fallback {
		if m.ID == modelID {
			return m, true
		}
	}
	return Model{}, false
}
