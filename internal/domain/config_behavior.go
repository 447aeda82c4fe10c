package domain

import (
	"fmt"
	"sort"
)

// Rich domain model: chain derivation and rank bookkeeping live on Config itself.

// ProviderByID looks up a provider entry.
func (c *Config) ProviderByID(id string) (Provider, bool) {
	for _, provider := range c.Providers {
		if provider.ID == id {
			return provider, true
		}
	}
	return Provider{}, false
}

// FindModel returns the model entry for ref.
func (c *Config) FindModel(ref ModelRef) (Model, bool) {
	for _, model := range c.Models {
		if model.Key() == ref {
			return model, true
		}
	}
	return Model{}, false
}

// EnabledModels returns the enabled models whose provider is present and enabled,
// sorted by fallback rank. Ties keep declaration order.
func (c *Config) EnabledModels() []Model {
	var models []Model
	for _, model := range c.Models {
		if !model.Enabled {
			continue
		}
		provider, ok := c.ProviderByID(model.Provider)
		if !ok || !provider.Enabled {
			continue
		}
		models = append(models, model)
	}
	sort.SliceStable(models, func(i, j int) bool {
		return models[i].Rank < models[j].Rank
	})
	return models
}

// FallbackChain resolves the ordered failover chain.
func (c *Config) FallbackChain() []Route {
	models := c.EnabledModels()
	chain := make([]Route, 0, len(models))
	for _, model := range models {
		provider, _ := c.ProviderByID(model.Provider)
		chain = append(chain, Route{Provider: provider, Model: model})
	}
	return chain
}

// ApplyModelOrder enables exactly the models in order, assigning contiguous ranks
// starting at 1. Models not listed are disabled with rank 0.
func (c *Config) ApplyModelOrder(order []ModelRef) {
	rank := make(map[ModelRef]int, len(order))
	for i, ref := range order {
		if _, seen := rank[ref]; !seen {
			rank[ref] = i + 1
		}
	}
	for _, ref := range order {
		if _, ok := c.FindModel(ref); !ok {
			c.Models = append(c.Models, Model{Provider: ref.Provider, Name: ref.Name})
		}
	}
	for i := range c.Models {
		r, ok := rank[c.Models[i].Key()]
		c.Models[i].Enabled = ok
		c.Models[i].Rank = r
	}
	c.NormalizeRanks()
}

// NormalizeRanks re-derives contiguous ranks 1..n over the enabled models in their
// current order. Disabled models carry rank 0.
func (c *Config) NormalizeRanks() {
	idx := make([]int, 0, len(c.Models))
	for i, model := range c.Models {
		if model.Enabled {
			idx = append(idx, i)
		} else {
			c.Models[i].Rank = 0
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return c.Models[idx[a]].Rank < c.Models[idx[b]].Rank
	})
	for pos, i := range idx {
		c.Models[i].Rank = pos + 1
	}
}

// UpsertProvider replaces the entry with the same id or appends a new one.
func (c *Config) UpsertProvider(provider Provider) {
	for i := range c.Providers {
		if c.Providers[i].ID == provider.ID {
			c.Providers[i] = provider
			return
		}
	}
	c.Providers = append(c.Providers, provider)
}

// ValidateConsistency checks referential integrity between providers and models.
func (c *Config) ValidateConsistency() error {
	ids := make(map[string]bool, len(c.Providers))
	for _, provider := range c.Providers {
		if provider.ID == "" {
			return fmt.Errorf("provider with empty id")
		}
		if ids[provider.ID] {
			return fmt.Errorf("duplicate provider id %q", provider.ID)
		}
		ids[provider.ID] = true
	}

	seen := make(map[ModelRef]bool, len(c.Models))
	ranks := make(map[int]ModelRef)
	for _, model := range c.Models {
		if !ids[model.Provider] {
			return fmt.Errorf("model %s references unknown provider %q", model.Key(), model.Provider)
		}
		if seen[model.Key()] {
			return fmt.Errorf("duplicate model %s", model.Key())
		}
		seen[model.Key()] = true
		if !model.Enabled {
			continue
		}
		if model.Rank <= 0 {
			return fmt.Errorf("enabled model %s has no fallback rank", model.Key())
		}
		if other, dup := ranks[model.Rank]; dup {
			return fmt.Errorf("models %s and %s share fallback rank %d", other, model.Key(), model.Rank)
		}
		ranks[model.Rank] = model.Key()
	}
	return nil
}
