// Package routing selects which candidate model handles an input and executes it.
//
// A Router pairs a container of candidate models with a Strategy. The strategy turns
// an input into a Decision; the router checks the selection belongs to its candidates
// and invokes it. Strategies that need more than a single invocation, such as the
// cascade fallback walk, implement Executor.
package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/internal/observability"
	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/callable"
	"github.com/upb/llm-router-lab/services/models"
)

// ErrNoAnswer is returned by a model that declines to answer. Cascade routers treat it
// as a cue to try the next candidate.
var ErrNoAnswer = errors.New("model has no answer")

// Metadata keys set by the built-in strategies.
const (
	MetaTiers       = "tiers"
	MetaNNIdxs      = "nn_idxs"
	MetaModelCounts = "model_counts"
	MetaModelScores = "model_scores"
)

// Decision is the outcome of routing one input.
type Decision struct {
	Selection  string
	Metadata   map[string]any
	ExecParams map[string]any
}

// Strategy decides which model key handles an input.
type Strategy interface {
	Route(ctx context.Context, input string) (Decision, error)
	// Kind names the strategy, e.g. "Cascade"; it prefixes the default router name.
	Kind() string
}

// Executor is implemented by strategies that run the decision themselves. The returned
// key names the candidate whose result is returned: the one that answered, or the last
// one tried when every attempt failed.
type Executor interface {
	Execute(ctx context.Context, candidates *models.Container, decision Decision, input string) (output any, key string, err error)
}

// RunOptions controls what Run returns.
type RunOptions struct {
	ReturnMetadata bool
	MetadataOnly   bool
}

// Result is the output of Run. Metadata is set only when requested.
type Result struct {
	Output   any
	Metadata map[string]any
}

// Router routes inputs across a container of candidate models.
// Candidates and strategy state must not change once routing starts.
type Router struct {
	models      *models.Container
	strategy    Strategy
	name        string
	description string
	logger      *zap.Logger
	metrics     observability.Metrics
}

type settings struct {
	name        string
	description string
	logger      *zap.Logger
	metrics     observability.Metrics
}

// Option configures a Router.
type Option func(*settings)

// WithName overrides the default router name.
func WithName(name string) Option {
	return func(s *settings) { s.name = name }
}

// WithDescription overrides the default router description.
func WithDescription(description string) Option {
	return func(s *settings) { s.description = description }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

func WithMetrics(metrics observability.Metrics) Option {
	return func(s *settings) { s.metrics = metrics }
}

func applyOptions(opts []Option) settings {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = observability.NopMetrics{}
	}
	return s
}

// New creates a router over candidates using strategy.
func New(candidates *models.Container, strategy Strategy, opts ...Option) *Router {
	return newRouter(candidates, strategy, applyOptions(opts))
}

func newRouter(candidates *models.Container, strategy Strategy, s settings) *Router {
	return &Router{
		models:      candidates,
		strategy:    strategy,
		name:        s.name,
		description: s.description,
		logger:      s.logger.With(zap.String("strategy", strategy.Kind())),
		metrics:     s.metrics,
	}
}

// Strategy returns the router's strategy.
func (r *Router) Strategy() Strategy { return r.strategy }

// Models returns the candidate container.
func (r *Router) Models() *models.Container { return r.models }

// HasModel reports whether item is among the candidates.
func (r *Router) HasModel(item any) bool { return r.models.Has(item) }

// AddModel registers item as a candidate. Only valid before routing starts.
func (r *Router) AddModel(item any) (string, error) { return r.models.Add(item) }

// Run routes input and, unless only metadata is requested, invokes the selection.
// Model errors are returned unmodified.
func (r *Router) Run(ctx context.Context, input string, opts RunOptions) (Result, error) {
	labels := observability.RouteLabels{Router: r.strategy.Kind(), Status: observability.StatusOK}

	decision, err := r.strategy.Route(ctx, input)
	if err != nil {
		labels.Status = observability.StatusError
		r.metrics.RecordRoute(ctx, labels)
		r.logger.Error("routing failed", zap.Error(err))
		return Result{}, err
	}
	if decision.Metadata == nil {
		decision.Metadata = map[string]any{}
	}

	if opts.MetadataOnly {
		return Result{Metadata: decision.Metadata}, nil
	}

	if !r.models.Contains(decision.Selection) {
		labels.Status = observability.StatusError
		r.metrics.RecordRoute(ctx, labels)
		return Result{}, services.NewDomainError(services.ErrorTypeUnknownSelection,
			fmt.Sprintf("selection %s not in models", decision.Selection), nil).
			WithDetail("selection", decision.Selection)
	}
	labels.Selection = decision.Selection
	r.metrics.RecordRoute(ctx, labels)
	r.logger.Debug("routed input", zap.String("selection", decision.Selection))

	ctx = WithExecParams(ctx, decision.ExecParams)
	start := time.Now()
	output, invoked, err := r.execute(ctx, decision, input)
	invocation := observability.InvocationLabels{Model: invoked, Status: observability.StatusOK}
	if err != nil {
		invocation.Status = observability.StatusError
	}
	r.metrics.RecordInvocation(ctx, time.Since(start), invocation)
	if err != nil {
		return Result{}, err
	}

	res := Result{Output: output}
	if opts.ReturnMetadata {
		res.Metadata = decision.Metadata
	}
	return res, nil
}

func (r *Router) execute(ctx context.Context, decision Decision, input string) (any, string, error) {
	if ex, ok := r.strategy.(Executor); ok {
		output, key, err := ex.Execute(ctx, r.models, decision, input)
		if key == "" {
			key = decision.Selection
		}
		return output, key, err
	}
	m, err := r.models.Get(decision.Selection)
	if err != nil {
		return nil, decision.Selection, err
	}
	output, err := m.Call(ctx, input)
	return output, decision.Selection, err
}

// Call implements models.Model, so a router can itself be a candidate.
func (r *Router) Call(ctx context.Context, input string) (any, error) {
	res, err := r.Run(ctx, input, RunOptions{})
	if err != nil {
		return nil, err
	}
	return res.Output, nil
}

// Name returns the configured name or "<Kind>Router([key, ...])".
func (r *Router) Name() string {
	if r.name != "" {
		return r.name
	}
	return fmt.Sprintf("%sRouter([%s])", r.strategy.Kind(), strings.Join(r.models.Keys(), ", "))
}

// Description returns the configured description or a numbered list of the candidates.
func (r *Router) Description() string {
	if r.description != "" {
		return r.description
	}

	keys := r.models.Keys()
	entries := make([]string, 0, len(keys))
	for i, key := range keys {
		m, err := r.models.Get(key)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("(%d) %s: %s", i, key, describe(m))
		entries = append(entries, "\t"+strings.ReplaceAll(line, "\n", "\n\t"))
	}
	return fmt.Sprintf("Router for %d models listed below\n[\n%s\n]", len(keys), strings.Join(entries, ",\n"))
}

func describe(m models.Model) string {
	if d, ok := m.(models.Described); ok {
		return d.Description()
	}
	return callable.Describe("model", m)
}

func (r *Router) String() string { return r.Name() }

type execParamsKey struct{}

// WithExecParams attaches a decision's execution parameters to ctx.
func WithExecParams(ctx context.Context, params map[string]any) context.Context {
	if len(params) == 0 {
		return ctx
	}
	return context.WithValue(ctx, execParamsKey{}, params)
}

// ExecParams returns the execution parameters of the routing decision that led to the
// current invocation, or nil.
func ExecParams(ctx context.Context) map[string]any {
	v, _ := ctx.Value(execParamsKey{}).(map[string]any)
	return v
}
