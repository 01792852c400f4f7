package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Order represents a customer order stored in the authoritative database.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID           int64     `bun:",pk,autoincrement"`
	Number       string    `bun:"number"`
	CustomerCode string    `bun:"customer_code"`
	Status       string    `bun:"status"`
	Memo         string    `bun:"memo"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero"`
}

// OrderItem is one persisted line of an order. ItemKey is the catalog
// barcode; the pair (order_id, item_key) is unique.
type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID        int64   `bun:",pk,autoincrement"`
	OrderID   int64   `bun:"order_id,notnull"`
	ItemKey   string  `bun:"item_key,notnull"`
	Name      string  `bun:"name"`
	UnitPrice float64 `bun:"unit_price"`
	Quantity  int     `bun:"quantity"`
	Unit      string  `bun:"unit"`
	Memo      string  `bun:"memo"`
	Position  int     `bun:"position"`
}
