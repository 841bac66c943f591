// Package container provides a generic keyed container for callable wrappers.
//
// A Container normalizes every admitted item through a Format strategy and stores it
// in one of three shapes. ShapeSet tracks membership only. ShapeList keys entries by
// their decimal position and keeps duplicates. ShapeMap keys entries by an attribute
// extracted with the Key strategy, and a later add under the same key overwrites the
// earlier one while keeping its position.
package container

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"sync"

	"github.com/upb/llm-router-lab/services"
)

// Shape selects the storage and key semantics of a Container.
type Shape int

const (
	ShapeSet Shape = iota
	ShapeList
	ShapeMap
)

func (s Shape) String() string {
	switch s {
	case ShapeSet:
		return "set"
	case ShapeList:
		return "list"
	case ShapeMap:
		return "map"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// Strategy bundles the policies a Container is parameterized by.
type Strategy[V any] struct {
	// Format turns a raw item into the stored value or rejects it.
	Format func(raw any) (V, error)
	// Key extracts the mapping key. Required for ShapeMap, ignored otherwise.
	Key func(v V) (string, error)
	// Equal reports structural equality, used by sets and reverse lookups.
	Equal func(a, b V) bool
}

type entry[V any] struct {
	key   string
	value V
}

// Container is a homogeneous collection of formatted items.
// It is safe for concurrent reads; mutation is expected during setup only.
type Container[V any] struct {
	mu       sync.RWMutex
	shape    Shape
	strategy Strategy[V]
	entries  []entry[V]
	index    map[string]int
}

// New creates a container of the given shape, seeded with items.
func New[V any](shape Shape, strategy Strategy[V], items ...any) (*Container[V], error) {
	if strategy.Format == nil {
		return nil, services.NewConfigError("container requires a format strategy", nil)
	}
	if shape == ShapeMap && strategy.Key == nil {
		return nil, services.NewConfigError("map container requires a key strategy", nil)
	}
	if strategy.Equal == nil {
		return nil, services.NewConfigError("container requires an equality strategy", nil)
	}

	c := &Container[V]{
		shape:    shape,
		strategy: strategy,
		index:    make(map[string]int),
	}
	for _, item := range items {
		if _, err := c.Add(item); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Shape returns the storage shape.
func (c *Container[V]) Shape() Shape {
	return c.shape
}

// Format runs the container's format strategy without storing anything.
func (c *Container[V]) Format(raw any) (V, error) {
	return c.strategy.Format(raw)
}

// Add formats and stores raw, returning the key it was stored under.
// Set entries have no key and return "".
func (c *Container[V]) Add(raw any) (string, error) {
	v, err := c.strategy.Format(raw)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.insert(v)
}

func (c *Container[V]) insert(v V) (string, error) {
	switch c.shape {
	case ShapeSet:
		if c.scan(v) < 0 {
			c.entries = append(c.entries, entry[V]{value: v})
		}
		return "", nil
	case ShapeList:
		key := strconv.Itoa(len(c.entries))
		c.entries = append(c.entries, entry[V]{key: key, value: v})
		c.index[key] = len(c.entries) - 1
		return key, nil
	default:
		key, err := c.strategy.Key(v)
		if err != nil {
			return "", err
		}
		if pos, ok := c.index[key]; ok {
			c.entries[pos].value = v
			return key, nil
		}
		c.entries = append(c.entries, entry[V]{key: key, value: v})
		c.index[key] = len(c.entries) - 1
		return key, nil
	}
}

// scan returns the position of the first entry equal to v, or -1.
func (c *Container[V]) scan(v V) int {
	for i, e := range c.entries {
		if c.strategy.Equal(e.value, v) {
			return i
		}
	}
	return -1
}

// Has reports whether raw, once formatted, is held by the container.
// Map containers test the extracted key; the other shapes scan for an equal item.
func (c *Container[V]) Has(raw any) bool {
	_, ok := c.KeyOf(raw)
	return ok
}

// KeyOf derives the key raw is (or would be) stored under. The boolean reports
// presence; a value that is absent, or cannot be formatted, yields ("", false).
func (c *Container[V]) KeyOf(raw any) (string, bool) {
	v, err := c.strategy.Format(raw)
	if err != nil {
		return "", false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.shape == ShapeMap {
		key, err := c.strategy.Key(v)
		if err != nil {
			return "", false
		}
		_, ok := c.index[key]
		return key, ok
	}

	pos := c.scan(v)
	if pos < 0 {
		return "", false
	}
	return c.entries[pos].key, true
}

// Contains reports whether key is present. Sets have no keys.
func (c *Container[V]) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.index[key]
	return ok
}

// Get returns the item stored at key.
func (c *Container[V]) Get(key string) (V, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pos, ok := c.index[key]
	if !ok {
		var zero V
		return zero, services.NewMissingKeyError(key)
	}
	return c.entries[pos].value, nil
}

// Remove deletes the item at key. List positions after it shift down by one.
func (c *Container[V]) Remove(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pos, ok := c.index[key]
	if !ok {
		return services.NewMissingKeyError(key)
	}
	c.removeAt(pos)
	return nil
}

// Discard removes the first item equal to raw. It reports whether anything was removed.
func (c *Container[V]) Discard(raw any) bool {
	v, err := c.strategy.Format(raw)
	if err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pos := c.scan(v)
	if pos < 0 {
		return false
	}
	c.removeAt(pos)
	return true
}

func (c *Container[V]) removeAt(pos int) {
	c.entries = slices.Delete(c.entries, pos, pos+1)
	c.reindex()
}

func (c *Container[V]) reindex() {
	clear(c.index)
	if c.shape == ShapeSet {
		return
	}
	for i := range c.entries {
		if c.shape == ShapeList {
			c.entries[i].key = strconv.Itoa(i)
		}
		c.index[c.entries[i].key] = i
	}
}

// Keys returns keys in insertion order. Sets return an empty slice.
func (c *Container[V]) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	if c.shape == ShapeSet {
		return keys
	}
	for _, e := range c.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// Values returns items in insertion order.
func (c *Container[V]) Values() []V {
	c.mu.RLock()
	defer c.mu.RUnlock()

	values := make([]V, 0, len(c.entries))
	for _, e := range c.entries {
		values = append(values, e.value)
	}
	return values
}

// Len returns the number of stored items.
func (c *Container[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// All iterates key/value pairs over a snapshot of the container.
func (c *Container[V]) All() iter.Seq2[string, V] {
	c.mu.RLock()
	snapshot := slices.Clone(c.entries)
	c.mu.RUnlock()

	return func(yield func(string, V) bool) {
		for _, e := range snapshot {
			if !yield(e.key, e.value) {
				return
			}
		}
	}
}

// Merge returns a new container holding c's items followed by other's.
// Both containers must share a storage shape.
func (c *Container[V]) Merge(other *Container[V]) (*Container[V], error) {
	if other == nil || other.shape != c.shape {
		otherShape := "nil"
		if other != nil {
			otherShape = other.shape.String()
		}
		return nil, services.NewDomainError(services.ErrorTypeTypeMismatch,
			fmt.Sprintf("cannot merge %s container with %s container", c.shape, otherShape), nil)
	}

	merged := &Container[V]{
		shape:    c.shape,
		strategy: c.strategy,
		index:    make(map[string]int),
	}
	for _, src := range []*Container[V]{c, other} {
		for _, v := range src.Values() {
			if _, err := merged.insert(v); err != nil {
				return nil, err
			}
		}
	}
	return merged, nil
}
