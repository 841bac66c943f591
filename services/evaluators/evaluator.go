// Package evaluators wraps scoring functions that grade a model response for an input.
package evaluators

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/callable"
	"github.com/upb/llm-router-lab/utils"
)

// Evaluator scores a response produced for input.
type Evaluator interface {
	Evaluate(ctx context.Context, input string, response any) (any, error)
}

// Described is implemented by evaluators that carry a name and a description.
type Described interface {
	Name() string
	Description() string
}

// Func adapts a function to the Evaluator interface.
type Func func(ctx context.Context, input string, response any) (any, error)

// Evaluate implements Evaluator.
func (f Func) Evaluate(ctx context.Context, input string, response any) (any, error) {
	return f(ctx, input, response)
}

// ScoreFunc adapts a plain numeric scorer to the Evaluator interface.
type ScoreFunc func(input string, response any) float64

// Evaluate implements Evaluator.
func (f ScoreFunc) Evaluate(_ context.Context, input string, response any) (any, error) {
	return f(input, response), nil
}

// Named attaches a name and description to an Evaluator.
type Named struct {
	evaluator   Evaluator
	name        string
	description string
}

// NewNamed wraps e. Pass empty strings to use the default name and description.
func NewNamed(e Evaluator, name, description string) *Named {
	return &Named{evaluator: e, name: name, description: description}
}

// Evaluate implements Evaluator.
func (n *Named) Evaluate(ctx context.Context, input string, response any) (any, error) {
	return n.evaluator.Evaluate(ctx, input, response)
}

func (n *Named) Unwrap() Evaluator { return n.evaluator }

func (n *Named) Name() string {
	if n.name != "" {
		return n.name
	}
	if d, ok := n.evaluator.(Described); ok {
		return d.Name()
	}
	switch n.evaluator.(type) {
	case Func, ScoreFunc:
		name := callable.ShortFuncName(n.evaluator)
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		if name != "" {
			return name
		}
	}
	return callable.TypeName(n.evaluator)
}

func (n *Named) Description() string {
	if n.description != "" {
		return n.description
	}
	if d, ok := n.evaluator.(Described); ok {
		return d.Description()
	}
	return callable.Describe("evaluator", n.evaluator)
}

func (n *Named) String() string { return n.Name() }

// Spec is the declarative form of a named evaluator.
type Spec struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Evaluator   Evaluator `json:"-" validate:"required"`
}

// Equal reports whether a and b wrap the same scoring function. Named evaluators must
// also agree on name and description.
func Equal(a, b Evaluator) bool {
	na, aNamed := a.(*Named)
	nb, bNamed := b.(*Named)
	if aNamed != bNamed {
		return false
	}
	if aNamed {
		return na == nb || (Equal(na.evaluator, nb.evaluator) &&
			na.Name() == nb.Name() && na.Description() == nb.Description())
	}
	return callable.Same(a, b)
}

// Format normalizes a raw registration into an Evaluator.
func Format(raw any) (Evaluator, error) {
	if isNil(raw) {
		return nil, services.NewInvalidItemError("evaluator", raw)
	}
	switch v := raw.(type) {
	case Evaluator:
		return v, nil
	case func(context.Context, string, any) (any, error):
		return Func(v), nil
	case func(string, any) float64:
		return ScoreFunc(v), nil
	default:
		return nil, services.NewInvalidItemError("evaluator", raw)
	}
}

// FormatNamed accepts *Named, Spec records and self-describing evaluators.
func FormatNamed(raw any) (Evaluator, error) {
	if isNil(raw) {
		return nil, services.NewInvalidItemError("named evaluator", raw)
	}
	switch v := raw.(type) {
	case *Named:
		return v, nil
	case Spec:
		return fromSpec(v)
	case *Spec:
		return fromSpec(*v)
	case Evaluator:
		if _, ok := v.(Described); ok {
			return v, nil
		}
	}
	return nil, services.NewInvalidItemError("named evaluator", raw)
}

func fromSpec(s Spec) (Evaluator, error) {
	if err := utils.ValidateStruct(s); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInvalidItem, "invalid evaluator spec", err)
	}
	return NewNamed(s.Evaluator, s.Name, s.Description), nil
}

// NameKey extracts the name of a described evaluator.
func NameKey(e Evaluator) (string, error) {
	d, ok := e.(Described)
	if !ok {
		return "", services.NewDomainError(services.ErrorTypeMissingAttribute,
			fmt.Sprintf("evaluator %T has no name", e), nil).WithDetail("attribute", "name")
	}
	return d.Name(), nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func, reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
