// Package draft keeps the locally persisted, not-yet-committed edits of
// orders: a keyed scratch store plus the debounced session glue that
// checkpoints live edit state into it.
package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderpad/internal/database"
	"github.com/Additional-Code/orderpad/internal/entity"
	"github.com/Additional-Code/orderpad/internal/lineitem"
)

var storeTracer = otel.Tracer("github.com/Additional-Code/orderpad/draft")

// ErrNotFound is returned when no draft exists for the key.
var ErrNotFound = errors.New("draft not found")

// Record is one in-progress order edit. Its presence alone is meaningful
// UI state ("unsaved draft exists").
type Record struct {
	Key     string
	Items   []lineitem.LineItem
	Memo    string
	SavedAt time.Time
}

// Store is the keyed persistent scratch area, one entry per in-progress
// order edit, independent of the authoritative store.
type Store interface {
	Get(ctx context.Context, key string) (*Record, error)
	Put(ctx context.Context, record *Record) error
	Delete(ctx context.Context, key string) error
	ListKeys(ctx context.Context) ([]string, error)
}

// Module provides the draft store to Fx.
var Module = fx.Provide(NewStore)

// Repository is the bun-backed Store over the local drafts connection.
type Repository struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewStore wires a repository backed by the drafts database connection. The
// drafts table is a scratch area, so its schema is ensured on startup rather
// than through the order migrations.
func NewStore(lc fx.Lifecycle, conns *database.Connections, logger *zap.Logger) Store {
	repo := &Repository{db: conns.Drafts, logger: logger}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_, err := repo.db.NewCreateTable().
				Model((*entity.Draft)(nil)).
				IfNotExists().
				Exec(ctx)
			return err
		},
	})

	return repo
}

// Get loads the draft for key. Missing rows and rows that fail to decode both
// come back as ErrNotFound: a malformed draft must never crash a session.
func (r *Repository) Get(ctx context.Context, key string) (*Record, error) {
	ctx, span := storeTracer.Start(ctx, "DraftStore.Get", trace.WithAttributes(attribute.String("draft.key", key)))
	defer span.End()

	row := new(entity.Draft)
	err := r.db.NewSelect().Model(row).Where("key = ?", key).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}

	var items []lineitem.LineItem
	if err := json.Unmarshal(row.Items, &items); err != nil {
		r.logger.Warn("malformed draft discarded", zap.String("key", key), zap.Error(err))

		return nil, ErrNotFound
	}

	return &Record{
		Key:     row.Key,
		Items:   lineitem.Normalize(items),
		Memo:    row.Memo,
		SavedAt: row.SavedAt,
	}, nil
}

// Put overwrites the draft for record.Key.
func (r *Repository) Put(ctx context.Context, record *Record) error {
	if record == nil || record.Key == "" {
		return errors.New("draft key is required")
	}
	ctx, span := storeTracer.Start(ctx, "DraftStore.Put", trace.WithAttributes(attribute.String("draft.key", record.Key)))
	defer span.End()

	payload, err := json.Marshal(lineitem.Normalize(record.Items))
	if err != nil {
		return err
	}

	row := &entity.Draft{
		Key:     record.Key,
		Items:   payload,
		Memo:    record.Memo,
		SavedAt: record.SavedAt,
	}

	_, err = upsertQuery(r.db, row).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
	}
	return err
}

// upsertQuery builds the insert-or-update for a draft row in the syntax the
// connection's dialect understands. MySQL has no ON CONFLICT clause.
func upsertQuery(db *bun.DB, row *entity.Draft) *bun.InsertQuery {
	q := db.NewInsert().Model(row)
	if db.Dialect().Name() == dialect.MySQL {
		return q.On("DUPLICATE KEY UPDATE").
			Set("items = VALUES(items)").
			Set("memo = VALUES(memo)").
			Set("saved_at = VALUES(saved_at)")
	}
	return q.On("CONFLICT (key) DO UPDATE").
		Set("items = EXCLUDED.items").
		Set("memo = EXCLUDED.memo").
		Set("saved_at = EXCLUDED.saved_at")
}

// Delete removes the draft for key; deleting an absent key is not an error.
func (r *Repository) Delete(ctx context.Context, key string) error {
	ctx, span := storeTracer.Start(ctx, "DraftStore.Delete", trace.WithAttributes(attribute.String("draft.key", key)))
	defer span.End()

	_, err := r.db.NewDelete().Model((*entity.Draft)(nil)).Where("key = ?", key).Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
	}
	return err
}

// ListKeys returns the keys of every stored draft, newest first. Used to show
// "has unsaved edits" badges without loading draft bodies.
func (r *Repository) ListKeys(ctx context.Context) ([]string, error) {
	ctx, span := storeTracer.Start(ctx, "DraftStore.ListKeys")
	defer span.End()

	var keys []string
	err := r.db.NewSelect().Model((*entity.Draft)(nil)).
		Column("key").
		OrderExpr("saved_at DESC").
		Scan(ctx, &keys)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return keys, nil
}
