package generation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-router-lab/services"
	"github.com/upb/llm-router-lab/services/evaluators"
)

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}

func TestBuilder_MakeRequest(t *testing.T) {
	b := NewBuilder()

	req, err := b.MakeRequest([]string{"abc"}, []any{strings.ToUpper, reverse}, []any{exactMatch})
	require.NoError(t, err)
	assert.Equal(t, Request{Models: []string{"0", "1"}, Inputs: []string{"abc"}, Evaluators: []string{"0"}}, req)

	req, err = b.MakeRequest(nil, []any{reverse, strings.ToLower}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, req.Models)
	assert.Equal(t, []string{}, req.Inputs)
	assert.Equal(t, []string{}, req.Evaluators)
	assert.Equal(t, 3, b.Models().Len())

	_, err = b.MakeRequest([]string{"x"}, []any{42}, nil)
	assert.True(t, services.IsInvalidItemError(err))
}

//go:noinline
func constantModel(answer string) func(string) string {
	return func(string) string { return answer }
}

func TestBuilder_DistinctClosuresGetOwnKeys(t *testing.T) {
	var items []any
	for _, answer := range []string{"A", "B"} {
		items = append(items, constantModel(answer))
	}

	b := NewBuilder()
	req, err := b.MakeRequest([]string{"q"}, items, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, req.Models)
	assert.Equal(t, 2, b.Models().Len())

	again, err := b.MakeRequest([]string{"q"}, []any{items[1]}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, again.Models)

	records, err := NewPipeline(b.Models(), b.Evaluators()).Generate(context.Background(), []Request{req})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []Generation{
		{Model: "0", Response: "A", Scores: []evaluators.Score{}},
		{Model: "1", Response: "B", Scores: []evaluators.Score{}},
	}, records[0].Generations)
}

func TestMakeRequests_SharedContainers(t *testing.T) {
	requests, b, err := MakeRequests(
		RequestSpec{Inputs: []string{"abc"}, Models: []any{strings.ToUpper}, Evaluators: []any{exactMatch}},
		RequestSpec{Inputs: []string{"def"}, Models: []any{reverse, strings.ToUpper}, Evaluators: []any{exactMatch}},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"0"}, requests[0].Models)
	assert.Equal(t, []string{"1", "0"}, requests[1].Models)
	assert.Equal(t, []string{"0"}, requests[1].Evaluators)
	assert.Equal(t, 2, b.Models().Len())
	assert.Equal(t, 1, b.Evaluators().Len())

	records, err := NewPipeline(b.Models(), b.Evaluators()).Generate(context.Background(), requests)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []Generation{
		{Model: "1", Response: "fed", Scores: []evaluators.Score{{Name: "0", Score: 0.0}}},
		{Model: "0", Response: "DEF", Scores: []evaluators.Score{{Name: "0", Score: 0.0}}},
	}, records[1].Generations)
}
