// Package lineitem holds the in-memory line-item model for one order editing
// session: normalization, the ordered unique-by-key collection, and the
// baseline diff used to badge items as new/modified/unchanged.
package lineitem

import "math"

// Unit is the sales unit a quantity is expressed in.
type Unit string

const (
	// UnitPiece is the base single-item unit.
	UnitPiece Unit = "piece"
	// UnitCase is the packaged multi-item unit.
	UnitCase Unit = "case"
)

// LineItem is one product entry within an order. Key is the catalog item
// identity (a barcode); Memo is always a concrete string so items coming from
// the scanner, the draft store, and the network compare structurally equal.
type LineItem struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Unit      Unit    `json:"unit"`
	Memo      string  `json:"memo"`
}

// Normalize returns a canonicalized copy of items: same order, same values,
// with the unit defaulted when a source left it blank. Idempotent.
func Normalize(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	for i, item := range items {
		if item.Unit == "" {
			item.Unit = UnitPiece
		}
		out[i] = item
	}
	return out
}

// Patch is a partial update applied to an existing line item. Nil fields are
// left untouched.
type Patch struct {
	Name      *string
	UnitPrice *float64
	Quantity  *int
	Unit      *Unit
	Memo      *string
}

// Collection owns the ordered, unique-by-key list of line items for one
// editing session. It is not safe for concurrent use; the owning session
// serializes access.
type Collection struct {
	items []LineItem
}

// NewCollection builds a collection seeded with a normalized copy of items.
func NewCollection(items []LineItem) *Collection {
	c := &Collection{}
	c.Reset(items)
	return c
}

// AddOrMerge inserts item, or when its key already exists, adds the incoming
// quantity to the existing one and overwrites unit and memo. Existing items
// keep their relative order; new items append at the end.
func (c *Collection) AddOrMerge(item LineItem) {
	norm := Normalize([]LineItem{item})[0]
	for i := range c.items {
		if c.items[i].Key == norm.Key {
			c.items[i].Quantity += norm.Quantity
			c.items[i].Unit = norm.Unit
			c.items[i].Memo = norm.Memo
			return
		}
	}
	c.items = append(c.items, norm)
}

// Update merges patch into the item located by key. Absent keys are a
// documented no-op; callers are expected to have validated existence.
func (c *Collection) Update(key string, patch Patch) {
	for i := range c.items {
		if c.items[i].Key != key {
			continue
		}
		if patch.Name != nil {
			c.items[i].Name = *patch.Name
		}
		if patch.UnitPrice != nil {
			c.items[i].UnitPrice = *patch.UnitPrice
		}
		if patch.Quantity != nil {
			c.items[i].Quantity = *patch.Quantity
		}
		if patch.Unit != nil && *patch.Unit != "" {
			c.items[i].Unit = *patch.Unit
		}
		if patch.Memo != nil {
			c.items[i].Memo = *patch.Memo
		}
		return
	}
}

// Remove filters the item with key out of the collection; no-op when absent.
func (c *Collection) Remove(key string) {
	for i := range c.items {
		if c.items[i].Key == key {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Reset replaces the whole collection with a normalized copy of items.
func (c *Collection) Reset(items []LineItem) {
	c.items = Normalize(items)
}

// Items returns a copy of the collection in its current order.
func (c *Collection) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len reports the number of items held.
func (c *Collection) Len() int {
	return len(c.items)
}

// Total computes floor(Σ unitPrice × quantity). Truncation matches currency
// display conventions: fractional unit prices never round the total up.
func (c *Collection) Total() int64 {
	return Total(c.items)
}

// Total computes the floored sum over an arbitrary item list.
func Total(items []LineItem) int64 {
	var sum float64
	for _, item := range items {
		sum += item.UnitPrice * float64(item.Quantity)
	}
	return int64(math.Floor(sum))
}

// Equal reports whether two item lists are structurally identical after
// normalization, order included.
func Equal(a, b []LineItem) bool {
	if len(a) != len(b) {
		return false
	}
	na, nb := Normalize(a), Normalize(b)
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}
