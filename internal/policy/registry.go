package policy

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Harshitk-cp/imadial/internal/ontology"
	"github.com/Harshitk-cp/imadial/internal/state"
	"go.uber.org/zap"
)

var (
	ErrUnknownPolicy       = errors.New("unknown policy")
	ErrActionSpaceMismatch = errors.New("configured action_size does not match the action space")
	ErrStateSizeMismatch   = errors.New("configured state_size does not match the state features")
)

// Factory builds a policy sized against a mapper and a dialogue state.
type Factory func(cfg ontology.PolicyConfig, mapper *ActionMapper, o *ontology.Ontology, st *state.DialogueState, logger *zap.Logger) (Policy, error)

// Registry maps policy names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with the built-in policies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(RuleName, NewRulePolicy)
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build checks the configured sizes against the state and the mapper, fills
// them in and calls the named factory.
func (r *Registry) Build(cfg ontology.PolicyConfig, mapper *ActionMapper, o *ontology.Ontology, st *state.DialogueState, logger *zap.Logger) (Policy, error) {
	r.mu.RLock()
	f, ok := r.factories[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, cfg.Name)
	}

	if cfg.StateSize != 0 && cfg.StateSize != st.FeatureSize() {
		return nil, fmt.Errorf("%w: configured %d, state has %d", ErrStateSizeMismatch, cfg.StateSize, st.FeatureSize())
	}
	if cfg.ActionSize != 0 && cfg.ActionSize != mapper.Size() {
		return nil, fmt.Errorf("%w: configured %d, mapper has %d", ErrActionSpaceMismatch, cfg.ActionSize, mapper.Size())
	}
	cfg.StateSize = st.FeatureSize()
	cfg.ActionSize = mapper.Size()

	if logger == nil {
		logger = zap.NewNop()
	}
	return f(cfg, mapper, o, st, logger.With(zap.String("policy", cfg.Name)))
}
