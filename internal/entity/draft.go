package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// Draft is the persisted form of one in-progress order edit. Items is the
// JSON-encoded line item list; the key is the order identity (or the fixed
// new-order key). Presence of a row is itself meaningful UI state.
type Draft struct {
	bun.BaseModel `bun:"table:drafts"`

	Key     string    `bun:"key,pk"`
	Items   []byte    `bun:"items"`
	Memo    string    `bun:"memo"`
	SavedAt time.Time `bun:"saved_at,notnull"`
}
