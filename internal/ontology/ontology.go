package ontology

import (
	"errors"
	"fmt"
	"os"

	"github.com/Harshitk-cp/imadial/internal/domain"
	"gopkg.in/yaml.v3"
)

var (
	ErrNoSlots          = errors.New("ontology declares no slots")
	ErrEmptySlotName    = errors.New("ontology slot name is empty")
	ErrDuplicateSlot    = errors.New("ontology slot declared twice")
	ErrMissingSlot      = errors.New("ontology is missing a required slot")
	ErrInvalidSlotValue = errors.New("ontology slot value is empty")
)

// RequiredSlots are addressed by name by the manager and the renderer.
var RequiredSlots = []string{domain.SlotObject, domain.SlotObjectMask}

// SlotSpec declares one tracked slot. Values lists the closed value set when
// the slot has one; open slots (object names, masks) leave it empty.
type SlotSpec struct {
	Name    string   `yaml:"name" json:"name"`
	Values  []string `yaml:"values,omitempty" json:"values,omitempty"`
	Numeric bool     `yaml:"numeric,omitempty" json:"numeric,omitempty"`
}

// Ontology is the slot schema a dialogue state is sized from.
type Ontology struct {
	Slots []SlotSpec `yaml:"slots" json:"slots"`
}

// Load reads an ontology file. YAML is a superset of JSON, so both formats
// are accepted.
func Load(path string) (*Ontology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ontology %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Ontology, error) {
	var o Ontology
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parse ontology: %w", err)
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &o, nil
}

func (o *Ontology) Validate() error {
	if len(o.Slots) == 0 {
		return ErrNoSlots
	}
	seen := make(map[string]bool, len(o.Slots))
	for _, s := range o.Slots {
		if s.Name == "" {
			return ErrEmptySlotName
		}
		if seen[s.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSlot, s.Name)
		}
		for _, v := range s.Values {
			if v == "" {
				return fmt.Errorf("%w: %s", ErrInvalidSlotValue, s.Name)
			}
		}
		seen[s.Name] = true
	}
	for _, name := range RequiredSlots {
		if !seen[name] {
			return fmt.Errorf("%w: %s", ErrMissingSlot, name)
		}
	}
	return nil
}

// SlotNames returns slot names in declaration order.
func (o *Ontology) SlotNames() []string {
	names := make([]string, len(o.Slots))
	for i, s := range o.Slots {
		names[i] = s.Name
	}
	return names
}

func (o *Ontology) HasSlot(name string) bool {
	_, ok := o.Slot(name)
	return ok
}

func (o *Ontology) Slot(name string) (SlotSpec, bool) {
	for _, s := range o.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return SlotSpec{}, false
}
