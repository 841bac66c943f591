package routing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/models"
)

type tierMember struct {
	key   string
	model models.Model
}

// Cascade routes every input to the same ordered tiers of models. Execution walks the
// tiers in order and returns the first successful response.
type Cascade struct {
	tiers  [][]tierMember
	keys   [][]string
	logger *zap.Logger
}

// NewCascade resolves tiers of model keys against candidates.
func NewCascade(candidates *models.Container, tiers [][]string, logger *zap.Logger) (*Cascade, error) {
	if len(tiers) == 0 {
		return nil, services.NewConfigError("cascade requires at least one tier", nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Cascade{logger: logger}
	for i, tier := range tiers {
		if len(tier) == 0 {
			return nil, services.NewConfigError(fmt.Sprintf("cascade tier %d is empty", i), nil).WithDetail("tier", i)
		}
		members := make([]tierMember, 0, len(tier))
		for _, key := range tier {
			m, err := candidates.Get(key)
			if err != nil {
				return nil, err
			}
			members = append(members, tierMember{key: key, model: m})
		}
		c.tiers = append(c.tiers, members)
		c.keys = append(c.keys, append([]string(nil), tier...))
	}
	return c, nil
}

// NewCascadeRouter builds a router whose strategy is a Cascade over tiers.
func NewCascadeRouter(candidates *models.Container, tiers [][]string, opts ...Option) (*Router, error) {
	s := applyOptions(opts)
	cascade, err := NewCascade(candidates, tiers, s.logger)
	if err != nil {
		return nil, err
	}
	return newRouter(candidates, cascade, s), nil
}

func (c *Cascade) Kind() string { return "Cascade" }

// Tiers returns a copy of the resolved tier keys.
func (c *Cascade) Tiers() [][]string {
	out := make([][]string, len(c.keys))
	for i, tier := range c.keys {
		out[i] = append([]string(nil), tier...)
	}
	return out
}

// Route ignores input: the selection is the first member of the first tier.
func (c *Cascade) Route(_ context.Context, _ string) (Decision, error) {
	return Decision{
		Selection: c.tiers[0][0].key,
		Metadata:  map[string]any{MetaTiers: c.Tiers()},
	}, nil
}

// Execute tries members tier by tier in declared order. Any error, including
// ErrNoAnswer, moves on to the next member; the last error is returned as is.
func (c *Cascade) Execute(ctx context.Context, _ *models.Container, _ Decision, input string) (any, string, error) {
	var (
		lastErr error
		lastKey string
	)
	for i, tier := range c.tiers {
		for _, member := range tier {
			out, err := member.model.Call(ctx, input)
			if err == nil {
				return out, member.key, nil
			}
			lastErr, lastKey = err, member.key
			c.logger.Debug("cascade member failed",
				zap.Int("tier", i),
				zap.String("model", member.key),
				zap.Error(err),
			)
		}
	}
	return nil, lastKey, lastErr
}
