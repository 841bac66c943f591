package providers

import (
	"context"
	"fmt"
)

// Echo is an offline backend that answers with its name and the input. It keeps the
// gateway usable without credentials.
type Echo struct {
	name string
}

func NewEcho(name string) *Echo { return &Echo{name: name} }

func (e *Echo) Call(_ context.Context, input string) (any, error) {
	return fmt.Sprintf("[%s] %s", e.name, input), nil
}

// CallBatch implements models.BatchModel.
func (e *Echo) CallBatch(ctx context.Context, inputs []string) ([]any, error) {
	out := make([]any, len(inputs))
	for i, input := range inputs {
		out[i], _ = e.Call(ctx, input)
	}
	return out, nil
}
