package manager

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/san-kum/diffbase/internal/base"
	"github.com/san-kum/diffbase/internal/config"
	"github.com/san-kum/diffbase/internal/odom"
)

// Deps are the outputs shared by every controller a manager loads.
type Deps struct {
	Publisher   odom.Publisher
	Broadcaster odom.Broadcaster
	Logger      *slog.Logger
}

// Factory builds an uninitialized controller for a configured name.
type Factory func(name string, cfg *config.Config, deps Deps) (Controller, error)

// Registry maps controller type names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry returns a registry with the built-in controller types.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.factories["diff_drive"] = newDiffDrive
	return r
}

func (r *Registry) Register(kind string, f Factory) {
	r.factories[kind] = f
}

func (r *Registry) Build(kind, name string, cfg *config.Config, deps Deps) (Controller, error) {
	f, ok := r.factories[kind]
	if !ok {
		return nil, fmt.Errorf("unknown controller type: %s", kind)
	}
	return f(name, cfg, deps)
}

func (r *Registry) Types() []string {
	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

func newDiffDrive(name string, cfg *config.Config, deps Deps) (Controller, error) {
	opts := []base.Option{base.WithLogger(deps.Logger)}
	if deps.Publisher != nil {
		opts = append(opts, base.WithPublisher(deps.Publisher))
	}
	if deps.Broadcaster != nil {
		opts = append(opts, base.WithBroadcaster(deps.Broadcaster))
	}
	return base.New(name, cfg.BaseParams(), opts...), nil
}
