package lineitem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Additional-Code/orderpad/internal/lineitem"
)

func TestNormalize_Idempotent(t *testing.T) {
	items := []lineitem.LineItem{
		{Key: "4901000000017", Name: "coffee", UnitPrice: 120.5, Quantity: 2},
		{Key: "4901000000024", Name: "tea", UnitPrice: 98, Quantity: 1, Unit: lineitem.UnitCase, Memo: "gift wrap"},
	}

	once := lineitem.Normalize(items)
	twice := lineitem.Normalize(once)

	assert.Equal(t, once, twice)
	// Order preserved, blank unit defaulted, everything else untouched.
	require.Len(t, once, 2)
	assert.Equal(t, "4901000000017", once[0].Key)
	assert.Equal(t, lineitem.UnitPiece, once[0].Unit)
	assert.Equal(t, lineitem.UnitCase, once[1].Unit)
	assert.Equal(t, "gift wrap", once[1].Memo)
	// Input is not mutated.
	assert.Equal(t, lineitem.Unit(""), items[0].Unit)
}

func TestCollection_AddOrMerge(t *testing.T) {
	c := lineitem.NewCollection([]lineitem.LineItem{
		{Key: "A", Name: "alpha", UnitPrice: 100, Quantity: 1, Unit: lineitem.UnitPiece},
		{Key: "B", Name: "beta", UnitPrice: 50, Quantity: 4, Unit: lineitem.UnitPiece},
	})

	// Existing key: quantity adds up, unit and memo are overwritten.
	c.AddOrMerge(lineitem.LineItem{Key: "A", Name: "alpha", UnitPrice: 100, Quantity: 2, Unit: lineitem.UnitCase, Memo: "rush"})
	// New key: appended at the end.
	c.AddOrMerge(lineitem.LineItem{Key: "C", Name: "gamma", UnitPrice: 30, Quantity: 1})

	items := c.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{items[0].Key, items[1].Key, items[2].Key})
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, lineitem.UnitCase, items[0].Unit)
	assert.Equal(t, "rush", items[0].Memo)
	assert.Equal(t, 4, items[1].Quantity, "other items stay untouched")
	assert.Equal(t, lineitem.UnitPiece, items[2].Unit, "new items come out normalized")
}

func TestCollection_UpdateAndRemove(t *testing.T) {
	c := lineitem.NewCollection([]lineitem.LineItem{
		{Key: "A", Name: "alpha", UnitPrice: 100, Quantity: 1, Unit: lineitem.UnitPiece},
		{Key: "B", Name: "beta", UnitPrice: 50, Quantity: 4, Unit: lineitem.UnitPiece},
	})

	qty := 7
	memo := "backorder"
	c.Update("B", lineitem.Patch{Quantity: &qty, Memo: &memo})
	c.Update("missing", lineitem.Patch{Quantity: &qty}) // documented no-op

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 7, items[1].Quantity)
	assert.Equal(t, "backorder", items[1].Memo)
	assert.Equal(t, "beta", items[1].Name, "unpatched fields survive")

	c.Remove("A")
	c.Remove("missing") // no-op
	items = c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Key)
}

func TestCollection_Reset(t *testing.T) {
	c := lineitem.NewCollection([]lineitem.LineItem{{Key: "A", Quantity: 1}})

	c.Reset(nil)
	assert.Zero(t, c.Len())

	c.Reset([]lineitem.LineItem{{Key: "B", Quantity: 2}})
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, lineitem.UnitPiece, items[0].Unit)
}

func TestTotal_FloorsAndIgnoresOrder(t *testing.T) {
	items := []lineitem.LineItem{
		{Key: "A", UnitPrice: 33.4, Quantity: 3},  // 100.2
		{Key: "B", UnitPrice: 10.25, Quantity: 2}, // 20.5
		{Key: "C", UnitPrice: 5, Quantity: -1},    // -5, transiently negative while typing
	}

	assert.Equal(t, int64(115), lineitem.Total(items), "floor(115.7)")

	permuted := []lineitem.LineItem{items[2], items[0], items[1]}
	assert.Equal(t, lineitem.Total(items), lineitem.Total(permuted))
}

func TestEqual_NormalizesBeforeComparing(t *testing.T) {
	a := []lineitem.LineItem{{Key: "A", Quantity: 1}}
	b := []lineitem.LineItem{{Key: "A", Quantity: 1, Unit: lineitem.UnitPiece}}

	assert.True(t, lineitem.Equal(a, b))
	assert.False(t, lineitem.Equal(a, []lineitem.LineItem{{Key: "A", Quantity: 2}}))
	assert.False(t, lineitem.Equal(a, nil))
}
