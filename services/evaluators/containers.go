package evaluators

import (
	"context"

	"github.com/upb/llm-router-lab/services/container"
)

// Container holds evaluators under one of the container shapes.
type Container = container.Container[Evaluator]

func strategy(format func(any) (Evaluator, error)) container.Strategy[Evaluator] {
	return container.Strategy[Evaluator]{Format: format, Key: NameKey, Equal: Equal}
}

func NewSet(items ...any) (*Container, error) {
	return container.New(container.ShapeSet, strategy(Format), items...)
}

func NewList(items ...any) (*Container, error) {
	return container.New(container.ShapeList, strategy(Format), items...)
}

func NewDict(items ...any) (*Container, error) {
	return container.New(container.ShapeMap, strategy(Format), items...)
}

func NewNamedDict(items ...any) (*Container, error) {
	return container.New(container.ShapeMap, strategy(FormatNamed), items...)
}

// Score is one evaluator's result for a response.
type Score struct {
	Name  string `json:"name"`
	Score any    `json:"score"`
}

// EvaluateAll scores response with the evaluators at keys (all keys when none are
// given), in key order. Evaluator errors are returned unmodified.
func EvaluateAll(ctx context.Context, c *Container, input string, response any, keys ...string) ([]Score, error) {
	if len(keys) == 0 {
		keys = c.Keys()
	}
	scores := make([]Score, 0, len(keys))
	for _, key := range keys {
		e, err := c.Get(key)
		if err != nil {
			return nil, err
		}
		score, err := e.Evaluate(ctx, input, response)
		if err != nil {
			return nil, err
		}
		scores = append(scores, Score{Name: key, Score: score})
	}
	return scores, nil
}
