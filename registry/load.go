package registry

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hupe1980/appforge/action"
	"github.com/hupe1980/appforge/core"
	"github.com/hupe1980/appforge/model"
)

//go:embed default.yaml
var defaultRoster []byte

// File is the YAML layout of a roster.
type File struct {
	Phases []string   `yaml:"phases"`
	Roles  []RoleFile `yaml:"roles"`
}

// RoleFile is one role entry of a roster file.
type RoleFile struct {
	Role          string       `yaml:"role"`
	Name          string       `yaml:"name"`
	Tier          string       `yaml:"tier"`
	Delegates     []string     `yaml:"delegates"`
	MaxIterations int          `yaml:"max_iterations"`
	Instructions  string       `yaml:"instructions"`
	Actions       []ActionFile `yaml:"actions"`
}

// ActionFile is one action entry. Built-in actions are referenced by name
// through Builtin; everything else is declared inline.
type ActionFile struct {
	Builtin       string `yaml:"builtin,omitempty"`
	action.Schema `yaml:",inline"`
}

// Default returns the registry built from the embedded default roster.
func Default() *Registry {
	reg, err := Parse(defaultRoster)
	if err != nil {
		panic(fmt.Sprintf("registry: embedded roster is invalid: %v", err))
	}
	return reg
}

// LoadFile reads a roster from a YAML file.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load reads a roster from r.
func Load(r io.Reader) (*Registry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML roster data.
func Parse(data []byte) (*Registry, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}

	configs := make([]AgentConfig, 0, len(file.Roles))
	for _, rf := range file.Roles {
		cfg, err := rf.build(file.Phases)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}

	return New(configs...)
}

func (rf RoleFile) build(phases []string) (AgentConfig, error) {
	role, err := core.ParseRole(rf.Role)
	if err != nil {
		return AgentConfig{}, err
	}

	tier, err := model.ParseTier(rf.Tier)
	if err != nil {
		return AgentConfig{}, fmt.Errorf("role %q: %w", role, err)
	}

	delegates := make([]core.Role, 0, len(rf.Delegates))
	for _, d := range rf.Delegates {
		dr, err := core.ParseRole(d)
		if err != nil {
			return AgentConfig{}, fmt.Errorf("role %q delegates: %w", role, err)
		}
		delegates = append(delegates, dr)
	}

	schemas := make([]action.Schema, 0, len(rf.Actions))
	for _, af := range rf.Actions {
		switch af.Builtin {
		case "":
			schemas = append(schemas, af.Schema)
		case action.DelegateTaskName:
			schemas = append(schemas, action.DelegateTask(delegates...))
		case action.SetPhaseName:
			schemas = append(schemas, action.SetPhase(phases...))
		default:
			return AgentConfig{}, fmt.Errorf("role %q: unknown builtin action %q", role, af.Builtin)
		}
	}

	set, err := action.NewSet(schemas...)
	if err != nil {
		return AgentConfig{}, fmt.Errorf("role %q: %w", role, err)
	}

	return AgentConfig{
		Role:          role,
		Name:          rf.Name,
		Instructions:  rf.Instructions,
		Actions:       set,
		Tier:          tier,
		Delegates:     delegates,
		MaxIterations: rf.MaxIterations,
	}, nil
}
