package plugins

import (
	"fmt"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// Registry is the static plugin list. It is built once and never mutated.
type Registry struct {
	order []ports.Plugin
	byID  map[string]ports.Plugin
}

// NewRegistry registers plugins in the given order. Ids must be unique.
func NewRegistry(plugins ...ports.Plugin) (*Registry, error) {
	r := &Registry{byID: make(map[string]ports.Plugin, len(plugins))}
	for _, p := range plugins {
		id := p.Capability().ID
		if id == "" {
			return nil, fmt.Errorf("plugin without id")
		}
		if _, dup := r.byID[id]; dup {
			return nil, fmt.Errorf("duplicate plugin id %q", id)
		}
		r.byID[id] = p
		r.order = append(r.order, p)
	}
	return r, nil
}

// Default returns the built-in plugin set.
func Default() *Registry {
	r, err := NewRegistry(
		F2{},
		FileOps{},
		FFmpeg{},
		Pandoc{},
		QPDF{},
		OCRmyPDF{},
		YTDLP{},
		JDupes{},
		Vips{},
		Whisper{},
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(id string) (ports.Plugin, bool) {
	p, ok := r.byID[id]
	return p, ok
}

func (r *Registry) Capabilities() []domain.PluginCapability {
	out := make([]domain.PluginCapability, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, p.Capability())
	}
	return out
}

var _ ports.PluginRegistry = (*Registry)(nil)
