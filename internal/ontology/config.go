package ontology

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"gopkg.in/yaml.v3"
)

var (
	ErrPolicyNameMissing = errors.New("policy name is required")
	ErrOntologyMissing   = errors.New("state ontology path is required")
	ErrNoActions         = errors.New("policy action space is empty")
	ErrInvalidAction     = errors.New("invalid action in policy action space")
)

// ActionSpec is one entry of a policy's discrete action space: a system
// dialogue act, optionally bound to a slot.
type ActionSpec struct {
	DialogueAct domain.DialogueAct `yaml:"dialogue_act" json:"dialogue_act"`
	Slot        string             `yaml:"slot,omitempty" json:"slot,omitempty"`
}

type StateConfig struct {
	Ontology string `yaml:"ontology" json:"ontology"`
}

// PolicyConfig selects and sizes a policy. StateSize and ActionSize are
// filled in at construction; a non-zero value in the file must agree with the
// sizes derived from the ontology and the action space.
type PolicyConfig struct {
	Name       string         `yaml:"name" json:"name"`
	Action     []ActionSpec   `yaml:"action" json:"action"`
	StateSize  int            `yaml:"state_size,omitempty" json:"state_size,omitempty"`
	ActionSize int            `yaml:"action_size,omitempty" json:"action_size,omitempty"`
	Params     map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

type ManagerConfig struct {
	State  StateConfig  `yaml:"state" json:"state"`
	Policy PolicyConfig `yaml:"policy" json:"policy"`
}

// LoadManagerConfig reads a manager config file. A relative ontology path is
// resolved against the directory of the config file.
func LoadManagerConfig(path string) (*ManagerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manager config %s: %w", path, err)
	}
	cfg, err := ParseManagerConfig(data)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.State.Ontology) {
		cfg.State.Ontology = filepath.Join(filepath.Dir(path), cfg.State.Ontology)
	}
	return cfg, nil
}

func ParseManagerConfig(data []byte) (*ManagerConfig, error) {
	var cfg ManagerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse manager config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ManagerConfig) Validate() error {
	if c.State.Ontology == "" {
		return ErrOntologyMissing
	}
	if c.Policy.Name == "" {
		return ErrPolicyNameMissing
	}
	if len(c.Policy.Action) == 0 {
		return ErrNoActions
	}
	for i, a := range c.Policy.Action {
		if !domain.ValidSystemAct(string(a.DialogueAct)) {
			return fmt.Errorf("%w: #%d %q", ErrInvalidAction, i, a.DialogueAct)
		}
	}
	return nil
}
