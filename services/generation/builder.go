package generation

import (
	"github.com/upb/llm-router-lab/services/evaluators"
	"github.com/upb/llm-router-lab/services/models"
)

// Builder turns raw models and evaluators into requests that reference them by key.
// Items are registered in list containers the first time they are seen, so requests
// built by the same Builder share one pair of containers.
type Builder struct {
	models     *models.Container
	evaluators *evaluators.Container
}

// NewBuilder creates a builder with empty list containers.
func NewBuilder() *Builder {
	m, _ := models.NewList()
	e, _ := evaluators.NewList()
	return &Builder{models: m, evaluators: e}
}

// NewBuilderWith creates a builder that registers into existing containers.
func NewBuilderWith(m *models.Container, e *evaluators.Container) *Builder {
	return &Builder{models: m, evaluators: e}
}

func (b *Builder) Models() *models.Container { return b.models }

func (b *Builder) Evaluators() *evaluators.Container { return b.evaluators }

// MakeRequest registers any model or evaluator not already present and returns a request
// over inputs referencing them.
func (b *Builder) MakeRequest(inputs []string, modelItems []any, evalItems []any) (Request, error) {
	req := Request{
		Models:     make([]string, 0, len(modelItems)),
		Inputs:     inputs,
		Evaluators: make([]string, 0, len(evalItems)),
	}
	if req.Inputs == nil {
		req.Inputs = []string{}
	}

	for _, item := range modelItems {
		key, err := register(b.models, item)
		if err != nil {
			return Request{}, err
		}
		req.Models = append(req.Models, key)
	}
	for _, item := range evalItems {
		key, err := register(b.evaluators, item)
		if err != nil {
			return Request{}, err
		}
		req.Evaluators = append(req.Evaluators, key)
	}
	return req, nil
}

type registry interface {
	Has(raw any) bool
	Add(raw any) (string, error)
	KeyOf(raw any) (string, bool)
}

func register(c registry, item any) (string, error) {
	if !c.Has(item) {
		return c.Add(item)
	}
	key, _ := c.KeyOf(item)
	return key, nil
}

// RequestSpec is the raw material for one request.
type RequestSpec struct {
	Inputs     []string
	Models     []any
	Evaluators []any
}

// MakeRequests builds one request per spec against a fresh pair of shared containers.
func MakeRequests(specs ...RequestSpec) ([]Request, *Builder, error) {
	b := NewBuilder()
	requests := make([]Request, 0, len(specs))
	for _, spec := range specs {
		req, err := b.MakeRequest(spec.Inputs, spec.Models, spec.Evaluators)
		if err != nil {
			return nil, nil, err
		}
		requests = append(requests, req)
	}
	return requests, b, nil
}
