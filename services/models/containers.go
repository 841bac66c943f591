package models

import (
	"context"

	"github.com/upb/llm-router-lab/services/container"
)

// Container holds models under one of the container shapes.
type Container = container.Container[Model]

func strategy(format func(any) (Model, error)) container.Strategy[Model] {
	return container.Strategy[Model]{
		Format: format,
		Key:    NameKey,
		Equal:  Equal,
	}
}

// NewSet creates a membership-only model container.
func NewSet(items ...any) (*Container, error) {
	return container.New(container.ShapeSet, strategy(Format), items...)
}

// NewList creates a model container keyed by position.
func NewList(items ...any) (*Container, error) {
	return container.New(container.ShapeList, strategy(Format), items...)
}

// NewDict creates a model container keyed by model name. Items are admitted like a
// list, so a model that does not describe itself fails with a missing attribute error.
func NewDict(items ...any) (*Container, error) {
	return container.New(container.ShapeMap, strategy(Format), items...)
}

// NewNamedDict creates a model container keyed by name that only admits named models
// and Spec records.
func NewNamedDict(items ...any) (*Container, error) {
	return container.New(container.ShapeMap, strategy(FormatNamed), items...)
}

// CallAll invokes the models at keys (all keys when none are given) on input.
// The first invocation error is returned unmodified.
func CallAll(ctx context.Context, c *Container, input string, keys ...string) (map[string]any, error) {
	if len(keys) == 0 {
		keys = c.Keys()
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		m, err := c.Get(key)
		if err != nil {
			return nil, err
		}
		resp, err := m.Call(ctx, input)
		if err != nil {
			return nil, err
		}
		out[key] = resp
	}
	return out, nil
}

// CallEach invokes every model in insertion order and returns the responses in order.
// It is the only fan-out available to set containers.
func CallEach(ctx context.Context, c *Container, input string) ([]any, error) {
	out := make([]any, 0, c.Len())
	for _, m := range c.Values() {
		resp, err := m.Call(ctx, input)
		if err != nil {
			return nil, err
		}
		out = append(out, resp)
	}
	return out, nil
}

// CallAllBatch invokes the models at keys over every input. Batch-capable models get one
// call with the whole list; the rest are called once per input.
func CallAllBatch(ctx context.Context, c *Container, inputs []string, keys ...string) (map[string][]any, error) {
	if len(keys) == 0 {
		keys = c.Keys()
	}
	out := make(map[string][]any, len(keys))
	for _, key := range keys {
		m, err := c.Get(key)
		if err != nil {
			return nil, err
		}
		responses, err := CallInputs(ctx, m, inputs)
		if err != nil {
			return nil, err
		}
		out[key] = responses
	}
	return out, nil
}

// CallInputs runs m over inputs, batching when m supports it.
func CallInputs(ctx context.Context, m Model, inputs []string) ([]any, error) {
	if b, ok := AsBatch(m); ok {
		return b.CallBatch(ctx, inputs)
	}
	responses := make([]any, 0, len(inputs))
	for _, input := range inputs {
		resp, err := m.Call(ctx, input)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}
