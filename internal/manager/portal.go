package manager

import (
	"fmt"

	"github.com/Harshitk-cp/imadial/internal/ontology"
	"github.com/Harshitk-cp/imadial/internal/policy"
	"github.com/Harshitk-cp/imadial/internal/state"
	"go.uber.org/zap"
)

// Portal builds managers from one manager config. The ontology is loaded
// and the policy sizing checked once, so configuration errors surface from
// NewPortal rather than from the first session.
type Portal struct {
	ontology *ontology.Ontology
	policy   ontology.PolicyConfig
	registry *policy.Registry
	logger   *zap.Logger
}

// NewPortal loads the ontology named by cfg and validates the policy setup by
// building one manager.
func NewPortal(cfg *ontology.ManagerConfig, registry *policy.Registry, logger *zap.Logger) (*Portal, error) {
	o, err := ontology.Load(cfg.State.Ontology)
	if err != nil {
		return nil, err
	}
	return NewPortalWithOntology(o, cfg.Policy, registry, logger)
}

func NewPortalWithOntology(o *ontology.Ontology, pc ontology.PolicyConfig, registry *policy.Registry, logger *zap.Logger) (*Portal, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = policy.DefaultRegistry()
	}
	p := &Portal{ontology: o, policy: pc, registry: registry, logger: logger}
	if _, err := p.New(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Portal) Ontology() *ontology.Ontology { return p.ontology }

func (p *Portal) PolicyName() string { return p.policy.Name }

// New builds a fresh, not yet reset manager with its own state and policy.
func (p *Portal) New() (*Manager, error) {
	st := state.New(p.ontology, p.logger.Named("state"))
	mapper, err := policy.NewActionMapper(p.policy.Action, p.ontology)
	if err != nil {
		return nil, fmt.Errorf("build action mapper: %w", err)
	}
	pol, err := p.registry.Build(p.policy, mapper, p.ontology, st, p.logger.Named("policy"))
	if err != nil {
		return nil, fmt.Errorf("build policy: %w", err)
	}
	return New(st, pol, p.logger.Named("manager")), nil
}
