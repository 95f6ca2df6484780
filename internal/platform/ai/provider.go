// Package ai holds the completion providers behind one capability interface.
package ai

import (
	"context"
	"fmt"
	"strings"

	"problem_solver/internal/common"
	"problem_solver/internal/domain/model"
)

type CompletionRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
}

// Completion carries the generated text and the usage normalized across providers.
type Completion struct {
	Text  string
	Model string
	Usage model.TokenUsage
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

type route struct {
	family   string
	provider Provider
}

// Registry maps model names to providers. A model whose name contains a
// registered family goes to that provider; everything else to the fallback.
type Registry struct {
	routes   []route
	fallback Provider
}

func NewRegistry(fallback Provider) *Registry {
	return &Registry{fallback: fallback}
}

// Route registers a model family; earlier registrations win.
func (r *Registry) Route(family string, p Provider) *Registry {
	r.routes = append(r.routes, route{family: strings.ToLower(family), provider: p})
	return r
}

func (r *Registry) Resolve(modelName string) (Provider, error) {
	name := strings.ToLower(modelName)
	for _, rt := range r.routes {
		if strings.Contains(name, rt.family) {
			return rt.provider, nil
		}
	}
	if r.fallback == nil {
		return nil, fmt.Errorf("no provider for model %q: %w", modelName, common.ErrProviderUnavailable)
	}
	return r.fallback, nil
}
