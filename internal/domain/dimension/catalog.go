// Package dimension defines the registry of rating dimensions tracked per athlete.
//
// The catalog is configuration data: the rating algorithm iterates over whatever
// dimensions the catalog carries, so the dimension set can change without touching
// any control flow.
package dimension

import (
	"errors"
	"fmt"
	"sort"
)

// Category groups related dimensions.
type Category string

// Known dimension categories.
const (
	Power       Category = "power"
	Terrain     Category = "terrain"
	Race        Category = "race"
	Classics    Category = "classics"
	Tactical    Category = "tactical"
	Physical    Category = "physical"
	Weather     Category = "weather"
	Consistency Category = "consistency"
)

// Catalog construction errors.
var (
	ErrEmptyCatalog     = errors.New("dimension catalog is empty")
	ErrEmptyKey         = errors.New("dimension key is empty")
	ErrDuplicateKey     = errors.New("duplicate dimension key")
	ErrUnknownDimension = errors.New("unknown dimension")
)

// Dimension is one independently tracked skill facet.
type Dimension struct {
	Key      string   `json:"key"`
	Category Category `json:"category"`
	Name     string   `json:"name"`
}

// Key builds the canonical key of a dimension, e.g. "power_sprint_5s".
func Key(category Category, name string) string {
	return string(category) + "_" + name
}

// Catalog is an immutable, ordered set of dimensions.
type Catalog struct {
	dims  []Dimension
	index map[string]int
}

// New builds a catalog from an ordered dimension list.
func New(dims []Dimension) (*Catalog, error) {
	if len(dims) == 0 {
		return nil, ErrEmptyCatalog
	}
	c := &Catalog{
		dims:  make([]Dimension, 0, len(dims)),
		index: make(map[string]int, len(dims)),
	}
	for _, d := range dims {
		if d.Key == "" {
			return nil, ErrEmptyKey
		}
		if _, dup := c.index[d.Key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, d.Key)
		}
		c.index[d.Key] = len(c.dims)
		c.dims = append(c.dims, d)
	}
	return c, nil
}

// MustNew is New that panics on error. Intended for package-level tables.
func MustNew(dims []Dimension) *Catalog {
	c, err := New(dims)
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of dimensions.
func (c *Catalog) Len() int { return len(c.dims) }

// Has reports whether key is a catalog dimension.
func (c *Catalog) Has(key string) bool {
	_, ok := c.index[key]
	return ok
}

// Keys returns dimension keys in catalog order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.dims))
	for i, d := range c.dims {
		keys[i] = d.Key
	}
	return keys
}

// Dimensions returns a copy of the ordered dimension list.
func (c *Catalog) Dimensions() []Dimension {
	out := make([]Dimension, len(c.dims))
	copy(out, c.dims)
	return out
}

// Lookup returns the dimension for key.
func (c *Catalog) Lookup(key string) (Dimension, error) {
	i, ok := c.index[key]
	if !ok {
		return Dimension{}, fmt.Errorf("%w: %s", ErrUnknownDimension, key)
	}
	return c.dims[i], nil
}

// ByCategory returns the dimensions of one category in catalog order.
func (c *Catalog) ByCategory(cat Category) []Dimension {
	var out []Dimension
	for _, d := range c.dims {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// Categories returns the distinct categories present, sorted by name.
func (c *Catalog) Categories() []Category {
	seen := make(map[Category]struct{})
	var out []Category
	for _, d := range c.dims {
		if _, ok := seen[d.Category]; ok {
			continue
		}
		seen[d.Category] = struct{}{}
		out = append(out, d.Category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
