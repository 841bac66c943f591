package models

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-router-lab/services"
)

func TestNewList_DuplicatesKept(t *testing.T) {
	c, err := NewList(shout, shout)
	require.NoError(t, err)

	assert.Equal(t, []string{"0", "1"}, c.Keys())

	key, ok := c.KeyOf(shout)
	assert.True(t, ok)
	assert.Equal(t, "0", key)

	key, ok = c.KeyOf(whisper)
	assert.False(t, ok)
	assert.Empty(t, key)
}

func TestNewSet_Collapses(t *testing.T) {
	c, err := NewSet(shout, TextFunc(shout), whisper)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Has(whisper))
	assert.Empty(t, c.Keys())

	out, err := CallEach(context.Background(), c, "Hi")
	require.NoError(t, err)
	assert.Equal(t, []any{"HI", "hi"}, out)
}

//go:noinline
func answering(answer string) Func {
	return func(context.Context, string) (any, error) { return answer, nil }
}

func TestNewSet_KeepsDistinctClosures(t *testing.T) {
	var items []any
	for _, answer := range []string{"A", "B"} {
		items = append(items, answering(answer))
	}

	c, err := NewSet(items...)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	out, err := CallEach(context.Background(), c, "q")
	require.NoError(t, err)
	assert.Equal(t, []any{"A", "B"}, out)

	_, err = c.Add(items[1])
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestNewDict(t *testing.T) {
	t.Run("named items keyed by name", func(t *testing.T) {
		c, err := NewDict(NewNamed(Func(answerA), "a", ""), NewNamed(Func(answerB), "b", ""))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, c.Keys())
	})

	t.Run("plain func lacks name", func(t *testing.T) {
		_, err := NewDict(shout)
		assert.True(t, errors.Is(err, services.ErrMissingAttribute))
	})
}

func TestNewNamedDict(t *testing.T) {
	c, err := NewNamedDict(
		Spec{Name: "a", Description: "first", Model: Func(answerA)},
		Spec{Name: "a", Description: "second", Model: Func(answerB)},
	)
	require.NoError(t, err)
	require.Equal(t, 1, c.Len())

	m, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "second", m.(*Named).Description())

	_, err = c.Add(shout)
	assert.True(t, errors.Is(err, services.ErrInvalidItem))

	require.NoError(t, c.Remove("a"))
	_, err = c.Get("a")
	assert.True(t, errors.Is(err, services.ErrMissingKey))
}

func TestCallAll(t *testing.T) {
	ctx := context.Background()
	c, err := NewNamedDict(
		NewNamed(Func(answerA), "a", ""),
		NewNamed(Func(answerB), "b", ""),
		NewNamed(Func(failing), "broken", ""),
	)
	require.NoError(t, err)

	out, err := CallAll(ctx, c, "q", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "A", "b": "B"}, out)

	_, err = CallAll(ctx, c, "q")
	assert.Same(t, errBackend, err)

	_, err = CallAll(ctx, c, "q", "missing")
	assert.True(t, services.IsNotFoundError(err))
}

func TestCallAllBatch(t *testing.T) {
	ctx := context.Background()
	b := &batcher{}
	cnt := &counter{}
	c, err := NewList(b, cnt)
	require.NoError(t, err)

	out, err := CallAllBatch(ctx, c, []string{"x", "yy"})
	require.NoError(t, err)

	assert.Equal(t, []any{"batch:x", "batch:yy"}, out["0"])
	assert.Equal(t, []any{1, 2}, out["1"])
	assert.Equal(t, 1, b.batches)
	assert.Equal(t, 2, cnt.calls)
}
