package models

import "iter"

// Collection maps stable string identifiers to entities and keeps the
// authorial order separately. Map iteration order is never used.
type Collection[T any] struct {
	byID  map[string]*T
	order []string
}

// NewCollection returns an empty collection.
func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{byID: make(map[string]*T)}
}

// Set stores v under id. A new id is appended to the order; an existing id
// keeps its position.
func (c *Collection[T]) Set(id string, v *T) {
	if c.byID == nil {
		c.byID = make(map[string]*T)
	}
	if _, ok := c.byID[id]; !ok {
		c.order = append(c.order, id)
	}
	c.byID[id] = v
}

// Get returns the entity stored under id.
func (c *Collection[T]) Get(id string) (*T, bool) {
	v, ok := c.byID[id]
	return v, ok
}

// Has reports whether id is present.
func (c *Collection[T]) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Delete removes id from the map and the order.
func (c *Collection[T]) Delete(id string) {
	if _, ok := c.byID[id]; !ok {
		return
	}
	delete(c.byID, id)
	for i, o := range c.order {
		if o == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// IDs returns a copy of the ordered identifier list.
func (c *Collection[T]) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// SetOrder replaces the order. Unknown ids are skipped, and ids missing from
// order are appended in their previous relative order.
func (c *Collection[T]) SetOrder(order []string) {
	seen := make(map[string]struct{}, len(order))
	out := make([]string, 0, len(c.byID))
	for _, id := range order {
		if _, ok := c.byID[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range c.order {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	c.order = out
}

// Len returns the number of entities.
func (c *Collection[T]) Len() int {
	return len(c.order)
}

// All iterates the collection in order.
func (c *Collection[T]) All() iter.Seq2[string, *T] {
	return func(yield func(string, *T) bool) {
		for _, id := range c.order {
			if !yield(id, c.byID[id]) {
				return
			}
		}
	}
}

// Reset empties the collection.
func (c *Collection[T]) Reset() {
	c.byID = make(map[string]*T)
	c.order = nil
}
