// Package models wraps request-handling backends behind a single Model contract and
// provides the keyed containers routers and the generation pipeline draw them from.
package models

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/callable"
	"github.com/upb/llm-router-lab/utils"
)

// Model produces a response for one input.
type Model interface {
	Call(ctx context.Context, input string) (any, error)
}

// BatchModel additionally accepts a whole list of inputs in one invocation.
// Responses are returned in input order.
type BatchModel interface {
	Model
	CallBatch(ctx context.Context, inputs []string) ([]any, error)
}

// Described is implemented by models that carry a name and a description.
type Described interface {
	Name() string
	Description() string
}

// Func adapts a function to the Model interface.
type Func func(ctx context.Context, input string) (any, error)

// Call implements Model.
func (f Func) Call(ctx context.Context, input string) (any, error) {
	return f(ctx, input)
}

// TextFunc adapts a plain string transformation to the Model interface.
type TextFunc func(input string) string

// Call implements Model.
func (f TextFunc) Call(_ context.Context, input string) (any, error) {
	return f(input), nil
}

// BatchFunc adapts a list-input function to BatchModel.
type BatchFunc func(ctx context.Context, inputs []string) ([]any, error)

// Call implements Model by invoking the batch with a single input.
func (f BatchFunc) Call(ctx context.Context, input string) (any, error) {
	out, err := f(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("batch model returned %d responses for 1 input", len(out))
	}
	return out[0], nil
}

// CallBatch implements BatchModel.
func (f BatchFunc) CallBatch(ctx context.Context, inputs []string) ([]any, error) {
	return f(ctx, inputs)
}

// Named attaches a name and description to a Model.
// Empty values fall back to defaults derived from the wrapped model.
type Named struct {
	model       Model
	name        string
	description string
}

// NewNamed wraps m. Pass empty strings to use the default name and description.
func NewNamed(m Model, name, description string) *Named {
	return &Named{model: m, name: name, description: description}
}

// Call implements Model.
func (n *Named) Call(ctx context.Context, input string) (any, error) {
	return n.model.Call(ctx, input)
}

// Unwrap returns the wrapped model.
func (n *Named) Unwrap() Model {
	return n.model
}

// Name returns the explicit name, or the wrapped model's declared name.
func (n *Named) Name() string {
	if n.name != "" {
		return n.name
	}
	return defaultName(n.model)
}

// Description returns the explicit description, or a rendering of the wrapped model.
func (n *Named) Description() string {
	if n.description != "" {
		return n.description
	}
	if d, ok := n.model.(Described); ok {
		return d.Description()
	}
	return callable.Describe("model", n.model)
}

// Info renders the name and description as a block.
func (n *Named) Info() string {
	return fmt.Sprintf("NAME: %s\nDESCRIPTION: %s", n.Name(), n.Description())
}

func (n *Named) String() string {
	return n.Name()
}

func defaultName(m Model) string {
	if d, ok := m.(Described); ok {
		return d.Name()
	}
	switch m.(type) {
	case Func, TextFunc, BatchFunc:
		name := callable.ShortFuncName(m)
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		if name != "" {
			return name
		}
	}
	return callable.TypeName(m)
}

// Spec is the declarative form of a named model, as accepted by named containers.
type Spec struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Model       Model  `json:"-" validate:"required"`
}

// Equal reports whether a and b wrap the same callable. Named models must also agree on
// name and description.
func Equal(a, b Model) bool {
	na, aNamed := a.(*Named)
	nb, bNamed := b.(*Named)
	if aNamed != bNamed {
		return false
	}
	if aNamed {
		if na == nb {
			return true
		}
		return Equal(na.model, nb.model) &&
			na.Name() == nb.Name() &&
			na.Description() == nb.Description()
	}
	return callable.Same(a, b)
}

// AsBatch returns the batch-capable form of m, looking through Named wrappers.
func AsBatch(m Model) (BatchModel, bool) {
	for {
		if b, ok := m.(BatchModel); ok {
			return b, true
		}
		n, ok := m.(*Named)
		if !ok {
			return nil, false
		}
		m = n.model
	}
}

// Format normalizes a raw registration into a Model. It accepts Model values and the
// function shapes Func, TextFunc and BatchFunc are built from.
func Format(raw any) (Model, error) {
	if isNil(raw) {
		return nil, services.NewInvalidItemError("model", raw)
	}
	switch v := raw.(type) {
	case Model:
		return v, nil
	case func(context.Context, string) (any, error):
		return Func(v), nil
	case func(string) string:
		return TextFunc(v), nil
	case func(context.Context, []string) ([]any, error):
		return BatchFunc(v), nil
	default:
		return nil, services.NewInvalidItemError("model", raw)
	}
}

// FormatNamed normalizes a raw registration into a named Model. It accepts *Named,
// Spec records and any Model that already describes itself.
func FormatNamed(raw any) (Model, error) {
	if isNil(raw) {
		return nil, services.NewInvalidItemError("named model", raw)
	}
	switch v := raw.(type) {
	case *Named:
		return v, nil
	case Spec:
		return fromSpec(v)
	case *Spec:
		return fromSpec(*v)
	case Model:
		if _, ok := v.(Described); ok {
			return v, nil
		}
	}
	return nil, services.NewInvalidItemError("named model", raw)
}

func fromSpec(s Spec) (Model, error) {
	if err := utils.ValidateStruct(s); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeInvalidItem, "invalid model spec", err)
	}
	return NewNamed(s.Model, s.Name, s.Description), nil
}

// NameKey extracts the name of a described model.
func NameKey(m Model) (string, error) {
	d, ok := m.(Described)
	if !ok {
		return "", services.NewDomainError(services.ErrorTypeMissingAttribute,
			fmt.Sprintf("model %T has no name", m), nil).WithDetail("attribute", "name")
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
