package seeder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderpad/internal/catalog"
	"github.com/Additional-Code/orderpad/internal/database"
	"github.com/Additional-Code/orderpad/internal/entity"
	"github.com/Additional-Code/orderpad/internal/feed"
	"github.com/Additional-Code/orderpad/internal/lineitem"
)

// Module exposes the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database and catalog seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	feed   feed.Client
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, client feed.Client, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, feed: client, logger: logger}
}

// Orders seeds example orders with line items if they are missing.
func (s *Seeder) Orders(ctx context.Context) error {
	now := time.Now().UTC()
	samples := []struct {
		order entity.Order
		items []entity.OrderItem
	}{
		{
			order: entity.Order{Number: "SO-1000", CustomerCode: "C-001", Status: "created", Memo: "weekly standing order", CreatedAt: now, UpdatedAt: now},
			items: []entity.OrderItem{
				{ItemKey: "4901", Name: "Green Tea 500ml", UnitPrice: 120, Quantity: 24, Unit: "piece", Position: 0},
				{ItemKey: "4902", Name: "Soy Sauce 1L", UnitPrice: 480, Quantity: 6, Unit: "piece", Position: 1},
			},
		},
		{
			order: entity.Order{Number: "SO-1001", CustomerCode: "C-002", Status: "created", Memo: "", CreatedAt: now, UpdatedAt: now},
			items: []entity.OrderItem{
				{ItemKey: "4903", Name: "Rice 5kg", UnitPrice: 2200, Quantity: 2, Unit: "case", Position: 0},
			},
		},
	}

	for _, sample := range samples {
		order := sample.order
		// Ignore renders ON CONFLICT DO NOTHING or INSERT IGNORE per dialect.
		res, err := s.db.NewInsert().Model(&order).
			Ignore().
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			continue
		}

		items := make([]entity.OrderItem, len(sample.items))
		for i, item := range sample.items {
			item.OrderID = order.ID
			items[i] = item
		}
		if _, err := s.db.NewInsert().Model(&items).Exec(ctx); err != nil {
			return err
		}
	}

	s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	return nil
}

// Catalog publishes full customer and product snapshots onto the feed so a
// fresh environment has something to bootstrap from.
func (s *Seeder) Catalog(ctx context.Context) error {
	customers := []catalog.Customer{
		{Code: "C-001", Name: "Tanaka Shoten", Phone: "03-1111-2222", Address: "1-2-3 Asakusa, Taito"},
		{Code: "C-002", Name: "Suzuki Mart", Phone: "03-3333-4444", Address: "4-5-6 Kanda, Chiyoda"},
	}
	products := []catalog.Product{
		{Barcode: "4901", Name: "Green Tea 500ml", UnitPrice: 120, Unit: lineitem.UnitPiece},
		{Barcode: "4902", Name: "Soy Sauce 1L", UnitPrice: 480, Unit: lineitem.UnitPiece},
		{Barcode: "4903", Name: "Rice 5kg", UnitPrice: 2200, Unit: lineitem.UnitCase},
	}

	customerPayload, err := json.Marshal(customers)
	if err != nil {
		return err
	}
	if err := s.feed.Publish(ctx, catalog.DomainCustomers, customerPayload); err != nil {
		return err
	}

	productPayload, err := json.Marshal(products)
	if err != nil {
		return err
	}
	if err := s.feed.Publish(ctx, catalog.DomainProducts, productPayload); err != nil {
		return err
	}

	s.logger.Info("seeded catalog snapshots",
		zap.Int("customers", len(customers)),
		zap.Int("products", len(products)),
	)
	return nil
}
