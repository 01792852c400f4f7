// Package catalog owns the two reference catalogs the order editor depends
// on (customers, products): cache-first bootstrap, realtime snapshot merge,
// and read-only lookups for the editing service.
package catalog

import (
	"github.com/Additional-Code/orderpad/internal/lineitem"
)

// Data domains mirrored from the remote store.
const (
	DomainCustomers = "customers"
	DomainProducts  = "products"
)

// Domains lists every mirrored domain in bootstrap order.
var Domains = []string{DomainCustomers, DomainProducts}

// Customer is a flat catalog record keyed by business code. Read-only from
// the editor's perspective; owned by the remote authoritative store.
type Customer struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Product is a flat catalog record keyed by barcode.
type Product struct {
	Barcode   string        `json:"barcode"`
	Name      string        `json:"name"`
	UnitPrice float64       `json:"unit_price"`
	Unit      lineitem.Unit `json:"unit"`
}

// Status is the coarse per-domain bootstrap state exposed upward: settled
// means the first live snapshot has arrived, as opposed to merely showing
// possibly-stale cached data; degraded means the feed is unreachable and the
// mirror is serving cache only.
type Status struct {
	CustomersSettled bool `json:"customers_settled"`
	ProductsSettled  bool `json:"products_settled"`
	Degraded         bool `json:"degraded"`
}
