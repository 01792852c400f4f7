package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/orderpad/internal/database"
	"github.com/Additional-Code/orderpad/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/orderpad/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// Repository encapsulates read/write access for orders and their line items
// in the authoritative database.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Create persists a new order using the write connection.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.number", order.Number)))
	defer span.End()

	_, err := r.writer.NewInsert().Model(order).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByNumber fetches an order by its business number using the read replica
// when available.
func (r *Repository) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByNumber", trace.WithAttributes(attribute.String("order.number", number)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("number = ?", number).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// ListItems returns the persisted line items of an order in display order.
func (r *Repository) ListItems(ctx context.Context, orderID int64) ([]entity.OrderItem, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListItems", trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	var items []entity.OrderItem
	err := r.reader.NewSelect().Model(&items).
		Where("order_id = ?", orderID).
		OrderExpr("position ASC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return items, nil
}

// ReplaceItems atomically swaps an order's line items for the edited set and
// refreshes the order memo. This is the commit target of an editing session:
// it either fully applies or leaves the previous state untouched.
func (r *Repository) ReplaceItems(ctx context.Context, order *entity.Order, items []entity.OrderItem) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ReplaceItems", trace.WithAttributes(
		attribute.String("order.number", order.Number),
		attribute.Int("order.items", len(items)),
	))
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*entity.OrderItem)(nil)).
			Where("order_id = ?", order.ID).
			Exec(ctx); err != nil {
			return err
		}

		for i := range items {
			items[i].OrderID = order.ID
			items[i].Position = i
		}
		if len(items) > 0 {
			if _, err := tx.NewInsert().Model(&items).Exec(ctx); err != nil {
				return err
			}
		}

		order.UpdatedAt = time.Now().UTC()
		_, err := tx.NewUpdate().Model(order).
			Column("memo", "status", "updated_at").
			WherePK().
			Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "replace failed")
	}
	return err
}
