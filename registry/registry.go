// Package registry maps every role of the closed role set to its immutable
// AgentConfig. The registry is loaded once at process start (from the
// embedded default roster or a YAML file) and is read-only thereafter.
package registry

import (
	"fmt"
	"slices"

	"github.com/hupe1980/appforge/action"
	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/model"
)

// AgentConfig is the static configuration of one role.
type AgentConfig struct {
	Role         core.Role
	Name         string
	Instructions string
	Actions      *action.Set
	Tier         model.Tier
	// Delegates restricts the roles this role may delegate to. Empty means
	// any registered role other than the coordinator.
	Delegates []core.Role
	// MaxIterations overrides the engine's iteration bound when > 0.
	MaxIterations int
}

// CanDelegateTo reports whether this role may start a loop for target.
func (c AgentConfig) CanDelegateTo(target core.Role) bool {
	if !target.Valid() || target == c.Role {
		return false
	}
	if len(c.Delegates) == 0 {
		return !target.IsCoordinator()
	}
	return slices.Contains(c.Delegates, target)
}

func (c AgentConfig) clone() AgentConfig {
	c.Delegates = slices.Clone(c.Delegates)
	return c
}

// Registry is the total role → AgentConfig lookup table.
type Registry struct {
	configs map[core.Role]AgentConfig
}

// New builds a Registry. Every role of the closed set must be configured
// exactly once; a missing role is a configuration fault reported here so
// that ConfigFor can stay total.
func New(configs ...AgentConfig) (*Registry, error) {
	m := make(map[core.Role]AgentConfig, len(configs))

	for _, cfg := range configs {
		if !cfg.Role.Valid() {
			return nil, fmt.Errorf("%w: %q", core.ErrUnknownRole, cfg.Role)
		}
		if _, dup := m[cfg.Role]; dup {
			return nil, fmt.Errorf("role %q configured twice", cfg.Role)
		}
		if cfg.Name == "" {
			cfg.Name = string(cfg.Role)
		}
		if cfg.Tier == "" {
			cfg.Tier = model.TierStandard
		}
		if cfg.Actions == nil {
			cfg.Actions, _ = action.NewSet()
		}
		if cfg.MaxIterations < 0 {
			return nil, fmt.Errorf("role %q: negative max_iterations", cfg.Role)
		}
		for _, d := range cfg.Delegates {
			if !d.Valid() {
				return nil, fmt.Errorf("role %q delegates to %w: %q", cfg.Role, core.ErrUnknownRole, d)
			}
			if d == cfg.Role {
				return nil, fmt.Errorf("role %q delegates to itself", cfg.Role)
			}
		}
		m[cfg.Role] = cfg.clone()
	}

	for _, r := range core.Roles() {
		if _, ok := m[r]; !ok {
			return nil, fmt.Errorf("role %q has no configuration", r)
		}
	}

	return &Registry{configs: m}, nil
}

// ConfigFor returns the configuration of role. It is total over the closed
// role set; calling it with a role outside the set is a programming error
// and panics.
func (r *Registry) ConfigFor(role core.Role) AgentConfig {
	cfg, ok := r.configs[role]
	if !ok {
		panic(fmt.Sprintf("registry: no configuration for role %q", role))
	}
	return cfg.clone()
}

// Lookup returns the configuration of role without panicking.
func (r *Registry) Lookup(role core.Role) (AgentConfig, bool) {
	cfg, ok := r.configs[role]
	if !ok {
		return AgentConfig{}, false
	}
	return cfg.clone(), true
}

// Configs returns all configurations in the canonical role order.
func (r *Registry) Configs() []AgentConfig {
	res := make([]AgentConfig, 0, len(r.configs))
	for _, role := range core.Roles() {
		res = append(res, r.configs[role].clone())
	}
	return res
}
