package registry

import (
	"fmt"
	"sort"

	"github.com/vk/cmorize/internal/chain"
)

// Module is the interface that all stage modules must implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the stage-variant factories for a single application
// instance. It implements chain.StageResolver.
type Registry struct {
	stages map[string]chain.Factory
}

// New creates and initializes an empty Registry instance.
func New() *Registry {
	return &Registry{stages: make(map[string]chain.Factory)}
}

// RegisterStage binds a stage token to its variant factory. Registering the
// same token twice is a programmer error.
func (r *Registry) RegisterStage(token string, factory chain.Factory) {
	if _, exists := r.stages[token]; exists {
		panic(fmt.Sprintf("registry: stage %q registered twice", token))
	}
	r.stages[token] = factory
}

// Stage looks up the factory for a stage token.
func (r *Registry) Stage(token string) (chain.Factory, bool) {
	factory, ok := r.stages[token]
	return factory, ok
}

// Tokens returns all registered stage tokens in sorted order, for error
// messages and startup logging.
func (r *Registry) Tokens() []string {
	tokens := make([]string, 0, len(r.stages))
	for token := range r.stages {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}
