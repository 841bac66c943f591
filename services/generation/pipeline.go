// Package generation runs batches of requests against keyed model and evaluator
// containers and collects the answers per input.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/upb/llm-router-lab/internal/shared"
	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/evaluators"
	"github.com/upb/llm-router-lab/services/models"
	"github.com/upb/llm-router-lab/utils"
)

// Pipeline validates a whole batch of requests, then fans each one out over its models
// and evaluators.
type Pipeline struct {
	models     *models.Container
	evaluators *evaluators.Container
	batch      bool
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchGeneration hands each model the request's whole input list in one call.
func WithBatchGeneration(enabled bool) Option {
	return func(p *Pipeline) { p.batch = enabled }
}

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewPipeline creates a pipeline over the given containers. A nil evaluator container
// behaves like an empty one.
func NewPipeline(modelContainer *models.Container, evalContainer *evaluators.Container, opts ...Option) *Pipeline {
	p := &Pipeline{
		models:     modelContainer,
		evaluators: evalContainer,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BatchGeneration reports whether models receive whole input lists.
func (p *Pipeline) BatchGeneration() bool { return p.batch }

// Validate checks every request of the batch before anything is invoked.
func (p *Pipeline) Validate(requests []Request) error {
	for i, req := range requests {
		if err := utils.ValidateStruct(req); err != nil {
			details := map[string]interface{}{"request": i}
			if fields := utils.GetValidationFields(err); fields != nil {
				details["fields"] = fields
			}
			return services.NewValidationError(fmt.Sprintf("request %d: %v", i, err), details)
		}
		for _, key := range req.Models {
			if !p.models.Contains(key) {
				return services.NewDomainError(services.ErrorTypeValidation,
					fmt.Sprintf("request %d contains a model %s not found in model container", i, key), nil).
					WithDetail("request", i).
					WithDetail("model", key)
			}
		}
		for _, key := range req.Evaluators {
			if p.evaluators == nil || !p.evaluators.Contains(key) {
				return services.NewDomainError(services.ErrorTypeValidation,
					fmt.Sprintf("request %d contains an evaluator %s not found in evaluator container", i, key), nil).
					WithDetail("request", i).
					WithDetail("evaluator", key)
			}
		}
	}
	return nil
}

// Generate validates requests and, if the whole batch is admissible, produces one record
// per distinct input in order of first appearance. Model and evaluator errors are
// returned unmodified and abort the batch.
func (p *Pipeline) Generate(ctx context.Context, requests []Request) ([]Record, error) {
	if err := p.Validate(requests); err != nil {
		return nil, err
	}

	runID := uuid.New().String()
	ctx = shared.WithRunID(ctx, runID)
	logger := p.logger.With(zap.String("run_id", runID))
	start := time.Now()
	logger.Info("generation started",
		zap.Int("requests", len(requests)),
		zap.Bool("batch", p.batch))

	var out recordSet
	for i, req := range requests {
		answers, err := p.answer(ctx, req)
		if err != nil {
			logger.Error("generation failed", zap.Int("request", i), zap.Error(err))
			return nil, err
		}
		for _, a := range answers {
			scores := []evaluators.Score{}
			if len(req.Evaluators) > 0 {
				scores, err = evaluators.EvaluateAll(ctx, p.evaluators, a.input, a.response, req.Evaluators...)
				if err != nil {
					logger.Error("evaluation failed", zap.Int("request", i), zap.Error(err))
					return nil, err
				}
			}
			out.add(a.input, Generation{Model: a.model, Response: a.response, Scores: scores})
		}
	}

	logger.Info("generation finished",
		zap.Int("records", len(out.records)),
		zap.Duration("duration", time.Since(start)))
	return out.records, nil
}

type answer struct {
	input    string
	model    string
	response any
}

// answer runs every model of req over its inputs. A repeated input keeps one answer per
// model, the last one produced.
func (p *Pipeline) answer(ctx context.Context, req Request) ([]answer, error) {
	if len(req.Models) == 0 || len(req.Inputs) == 0 {
		return nil, nil
	}

	responses := make(map[string][]any, len(req.Models))
	if p.batch {
		batched, err := models.CallAllBatch(ctx, p.models, req.Inputs, req.Models...)
		if err != nil {
			return nil, err
		}
		for key, rs := range batched {
			if len(rs) != len(req.Inputs) {
				return nil, services.NewDomainError(services.ErrorTypeInternal,
					fmt.Sprintf("model %s returned %d responses for %d inputs", key, len(rs), len(req.Inputs)), nil).
					WithDetail("model", key)
			}
		}
		responses = batched
	} else {
		for _, input := range req.Inputs {
			single, err := models.CallAll(ctx, p.models, input, req.Models...)
			if err != nil {
				return nil, err
			}
			for key, r := range single {
				responses[key] = append(responses[key], r)
			}
		}
	}

	type slot struct {
		input string
		model string
	}
	var order []slot
	latest := make(map[slot]any)
	seenModel := make(map[string]bool, len(req.Models))
	for _, key := range req.Models {
		if seenModel[key] {
			continue
		}
		seenModel[key] = true
		for j, input := range req.Inputs {
			s := slot{input: input, model: key}
			if _, ok := latest[s]; !ok {
				order = append(order, s)
			}
			latest[s] = responses[key][j]
		}
	}

	// group by input first so each input's models keep their request order
	byInput := make(map[string][]slot)
	var inputs []string
	for _, s := range order {
		if _, ok := byInput[s.input]; !ok {
			inputs = append(inputs, s.input)
		}
		byInput[s.input] = append(byInput[s.input], s)
	}
	out := make([]answer, 0, len(order))
	for _, input := range inputs {
		for _, s := range byInput[input] {
			out = append(out, answer{input: s.input, model: s.model, response: latest[s]})
		}
	}
	return out, nil
}

type recordSet struct {
	records []Record
	index   map[string]int
}

func (s *recordSet) add(input string, g Generation) {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	i, ok := s.index[input]
	if !ok {
		i = len(s.records)
		s.index[input] = i
		s.records = append(s.records, Record{Input: input})
	}
	s.records[i].Generations = append(s.records[i].Generations, g)
}

// DecodeRequests parses a JSON array of requests. Malformed entries, including inputs
// that are not strings, are admission errors.
func DecodeRequests(data []byte) ([]Request, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "requests must be a JSON array", err)
	}
	requests := make([]Request, len(raw))
	for i, entry := range raw {
		if !bytes.HasPrefix(bytes.TrimSpace(entry), []byte("{")) {
			return nil, services.NewDomainError(services.ErrorTypeValidation,
				fmt.Sprintf("request %d is not an object", i), nil).WithDetail("request", i)
		}
		if err := json.Unmarshal(entry, &requests[i]); err != nil {
			return nil, services.NewDomainError(services.ErrorTypeValidation,
				fmt.Sprintf("request %d is malformed", i), err).WithDetail("request", i)
		}
	}
	return requests, nil
}
