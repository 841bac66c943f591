package container

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/llm-router-lab/services"
)

type tool struct {
	name string
	id   int
}

func toolStrategy() Strategy[tool] {
	return Strategy[tool]{
		Format: func(raw any) (tool, error) {
			switch v := raw.(type) {
			case tool:
				return v, nil
			case int:
				return tool{id: v}, nil
			default:
				return tool{}, services.NewInvalidItemError("tool", raw)
			}
		},
		Key: func(v tool) (string, error) {
			if v.name == "" {
				return "", services.NewDomainError(services.ErrorTypeMissingAttribute, "tool has no name", nil)
			}
			return v.name, nil
		},
		Equal: func(a, b tool) bool { return a == b },
	}
}

func newTools(t *testing.T, shape Shape, items ...any) *Container[tool] {
	t.Helper()
	c, err := New(shape, toolStrategy(), items...)
	require.NoError(t, err)
	return c
}

func TestNew_RequiresStrategies(t *testing.T) {
	_, err := New(ShapeList, Strategy[tool]{})
	assert.True(t, services.IsConfigurationError(err))

	s := toolStrategy()
	s.Key = nil
	_, err = New(ShapeMap, s)
	assert.True(t, services.IsConfigurationError(err))

	_, err = New(ShapeList, s)
	assert.NoError(t, err)
}

func TestAdd_InvalidItem(t *testing.T) {
	for _, shape := range []Shape{ShapeSet, ShapeList, ShapeMap} {
		t.Run(shape.String(), func(t *testing.T) {
			c := newTools(t, shape)
			_, err := c.Add("not a tool")
			assert.True(t, errors.Is(err, services.ErrInvalidItem))
			assert.Equal(t, 0, c.Len())
		})
	}
}

func TestList_DuplicatesAppend(t *testing.T) {
	c := newTools(t, ShapeList)

	k1, err := c.Add(tool{name: "a", id: 1})
	require.NoError(t, err)
	k2, err := c.Add(tool{name: "a", id: 1})
	require.NoError(t, err)

	assert.Equal(t, "0", k1)
	assert.Equal(t, "1", k2)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"0", "1"}, c.Keys())
}

func TestMap_LastWriteWins(t *testing.T) {
	c := newTools(t, ShapeMap, tool{name: "a", id: 1}, tool{name: "b", id: 2})

	key, err := c.Add(tool{name: "a", id: 3})
	require.NoError(t, err)
	assert.Equal(t, "a", key)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"a", "b"}, c.Keys())
	got, err := c.Get("a")
	require.NoError(t, err)
	assert.Equal(t, 3, got.id)
}

func TestMap_MissingAttribute(t *testing.T) {
	c := newTools(t, ShapeMap)
	_, err := c.Add(7)
	assert.True(t, errors.Is(err, services.ErrMissingAttribute))
}

func TestSet_CollapsesDuplicates(t *testing.T) {
	c := newTools(t, ShapeSet, 1, 1, 2)

	assert.Equal(t, 2, c.Len())
	assert.Empty(t, c.Keys())
	assert.True(t, c.Has(1))
	assert.False(t, c.Has(3))

	_, err := c.Get("0")
	assert.True(t, errors.Is(err, services.ErrMissingKey))
}

func TestGet_AfterRemove(t *testing.T) {
	c := newTools(t, ShapeMap, tool{name: "a"}, tool{name: "b"})

	require.NoError(t, c.Remove("a"))
	_, err := c.Get("a")
	assert.True(t, errors.Is(err, services.ErrMissingKey))
	assert.Equal(t, "a", services.GetErrorDetails(err)["key"])

	assert.True(t, services.IsNotFoundError(c.Remove("a")))
	assert.Equal(t, []string{"b"}, c.Keys())
}

func TestList_RemoveRenumbers(t *testing.T) {
	c := newTools(t, ShapeList, 10, 20, 30)

	require.NoError(t, c.Remove("0"))

	assert.Equal(t, []string{"0", "1"}, c.Keys())
	got, err := c.Get("0")
	require.NoError(t, err)
	assert.Equal(t, 20, got.id)
	assert.False(t, c.Contains("2"))
}

func TestKeyOf(t *testing.T) {
	tests := []struct {
		name    string
		shape   Shape
		seed    []any
		lookup  any
		wantKey string
		wantOK  bool
	}{
		{"list present", ShapeList, []any{5, 6}, 6, "1", true},
		{"list absent", ShapeList, []any{5, 6}, 7, "", false},
		{"list unformattable", ShapeList, []any{5}, "x", "", false},
		{"map present", ShapeMap, []any{tool{name: "a"}}, tool{name: "a"}, "a", true},
		{"map absent key", ShapeMap, []any{tool{name: "a"}}, tool{name: "b"}, "b", false},
		{"map no attribute", ShapeMap, []any{tool{name: "a"}}, 1, "", false},
		{"set present", ShapeSet, []any{1}, 1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTools(t, tt.shape, tt.seed...)
			key, ok := c.KeyOf(tt.lookup)
			assert.Equal(t, tt.wantKey, key)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestDiscard(t *testing.T) {
	c := newTools(t, ShapeSet, 1, 2)

	assert.True(t, c.Discard(1))
	assert.False(t, c.Discard(1))
	assert.Equal(t, 1, c.Len())
}

func TestAll_InsertionOrder(t *testing.T) {
	c := newTools(t, ShapeMap, tool{name: "z"}, tool{name: "a"}, tool{name: "m"})

	var keys []string
	for k := range c.All() {
		keys = append(keys, k)
	}
	assert.Equal(t, []string{"z", "a", "m"}, keys)

	var first []string
	for k := range c.All() {
		first = append(first, k)
		break
	}
	assert.Equal(t, []string{"z"}, first)
}

func TestMerge(t *testing.T) {
	t.Run("same shape", func(t *testing.T) {
		a := newTools(t, ShapeList, 1, 2)
		b := newTools(t, ShapeList, 2, 3)

		merged, err := a.Merge(b)
		require.NoError(t, err)
		assert.Equal(t, 4, merged.Len())
		assert.Equal(t, []string{"0", "1", "2", "3"}, merged.Keys())
		assert.Equal(t, 2, a.Len())
	})

	t.Run("map overwrites", func(t *testing.T) {
		a := newTools(t, ShapeMap, tool{name: "x", id: 1})
		b := newTools(t, ShapeMap, tool{name: "x", id: 2}, tool{name: "y"})

		merged, err := a.Merge(b)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, merged.Keys())
		got, _ := merged.Get("x")
		assert.Equal(t, 2, got.id)
	})

	t.Run("shape mismatch", func(t *testing.T) {
		a := newTools(t, ShapeList)
		b := newTools(t, ShapeSet)

		_, err := a.Merge(b)
		assert.True(t, errors.Is(err, services.ErrTypeMismatch))

		_, err = a.Merge(nil)
		assert.True(t, services.IsTypeMismatchError(err))
	})
}
