// Package order implements the order editing service: it owns the live
// editing sessions, seeds their baselines from the authoritative store, and
// drives commit/discard against it.
package order

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderpad/internal/catalog"
	"github.com/Additional-Code/orderpad/internal/config"
	"github.com/Additional-Code/orderpad/internal/draft"
	"github.com/Additional-Code/orderpad/internal/entity"
	"github.com/Additional-Code/orderpad/internal/lineitem"
	repo "github.com/Additional-Code/orderpad/internal/repository/order"
	"github.com/Additional-Code/orderpad/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/orderpad/service/order")

// Authority is the slice of the order repository the editing service needs.
type Authority interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByNumber(ctx context.Context, number string) (*entity.Order, error)
	ListItems(ctx context.Context, orderID int64) ([]entity.OrderItem, error)
	ReplaceItems(ctx context.Context, order *entity.Order, items []entity.OrderItem) error
}

// ProductResolver looks up catalog products for scanned item keys.
type ProductResolver interface {
	Product(barcode string) (catalog.Product, bool)
}

// View is the editing state exposed upward to the transport layer.
type View struct {
	Key      string
	Number   string
	IsNew    bool
	Items    []lineitem.LineItem
	Changes  map[string]lineitem.Change
	Memo     string
	Total    int64
	HasDraft bool
}

// CommitOptions carries the order header fields needed when a session is
// committed; Number and CustomerCode are only consulted for new orders.
type CommitOptions struct {
	Number       string
	CustomerCode string
}

// Service encapsulates the editing lifecycle around orders.
type Service struct {
	authority   Authority
	drafts      draft.Store
	products    ProductResolver
	delay       time.Duration
	newOrderKey string
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*editSession
}

// editSession pairs a draft session with the authoritative order it edits;
// order is nil for a not-yet-created order.
type editSession struct {
	sess  *draft.Session
	order *entity.Order
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Drafts     draft.Store
	Catalog    *catalog.Loader
	Config     config.Config
	Logger     *zap.Logger
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return newService(p.Repository, p.Drafts, p.Catalog, p.Config.Drafts.DebounceDelay, p.Config.Drafts.NewOrderKey, p.Logger)
}

func newService(authority Authority, drafts draft.Store, products ProductResolver, delay time.Duration, newOrderKey string, logger *zap.Logger) *Service {
	return &Service{
		authority:   authority,
		drafts:      drafts,
		products:    products,
		delay:       delay,
		newOrderKey: newOrderKey,
		logger:      logger,
		sessions:    make(map[string]*editSession),
	}
}

// Open starts (or resumes) an editing session for an order number. Sessions
// for the fixed new-order key start with an empty baseline. The baseline is
// always read from the authoritative store; an existing draft only seeds the
// edited state, never the diff reference.
func (s *Service) Open(ctx context.Context, key string) (View, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Open", trace.WithAttributes(attribute.String("order.key", key)))
	defer span.End()

	if key == "" {
		key = s.newOrderKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if es, ok := s.sessions[key]; ok {
		return s.view(key, es), nil
	}

	var (
		order    *entity.Order
		baseline []lineitem.LineItem
		memo     string
	)
	if key != s.newOrderKey {
		loaded, err := s.authority.GetByNumber(ctx, key)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return View{}, errorbank.NotFound("order not found")
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return View{}, errorbank.Internal("failed to load order", errorbank.WithCause(err))
		}
		rows, err := s.authority.ListItems(ctx, loaded.ID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return View{}, errorbank.Internal("failed to load order items", errorbank.WithCause(err))
		}
		order = loaded
		baseline = itemsFromEntities(rows)
		memo = loaded.Memo
	}

	es := &editSession{
		order: order,
		sess: draft.OpenSession(ctx, draft.Options{
			Store:        s.drafts,
			Key:          key,
			Baseline:     baseline,
			BaselineMemo: memo,
			Delay:        s.delay,
			Logger:       s.logger,
		}),
	}
	s.sessions[key] = es

	return s.view(key, es), nil
}

// Get returns the current state of an open session.
func (s *Service) Get(key string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.sessions[key]
	if !ok {
		return View{}, errorbank.NotFound("no active editing session")
	}
	return s.view(key, es), nil
}

// AddItem adds or merges a line item into the session. Name, price, and unit
// are resolved from the product catalog when the caller only scanned a key.
func (s *Service) AddItem(_ context.Context, key string, item lineitem.LineItem) (View, error) {
	if item.Key == "" {
		return View{}, errorbank.BadRequest("item key is required")
	}

	es, err := s.session(key)
	if err != nil {
		return View{}, err
	}

	if item.Name == "" {
		product, ok := s.products.Product(item.Key)
		if !ok {
			return View{}, errorbank.NotFound("unknown product", errorbank.WithDetail("key", item.Key))
		}
		item.Name = product.Name
		item.UnitPrice = product.UnitPrice
		if item.Unit == "" {
			item.Unit = product.Unit
		}
	}

	if err := es.sess.AddOrMerge(item); err != nil {
		return View{}, errorbank.Conflict("editing session already closed", errorbank.WithCause(err))
	}
	return s.snapshot(key, es), nil
}

// UpdateItem applies a partial update to an existing line item.
func (s *Service) UpdateItem(_ context.Context, key, itemKey string, patch lineitem.Patch) (View, error) {
	es, err := s.session(key)
	if err != nil {
		return View{}, err
	}
	if !hasItem(es.sess.Items(), itemKey) {
		return View{}, errorbank.NotFound("item not in order", errorbank.WithDetail("key", itemKey))
	}
	if err := es.sess.Update(itemKey, patch); err != nil {
		return View{}, errorbank.Conflict("editing session already closed", errorbank.WithCause(err))
	}
	return s.snapshot(key, es), nil
}

// RemoveItem drops a line item from the session.
func (s *Service) RemoveItem(_ context.Context, key, itemKey string) (View, error) {
	es, err := s.session(key)
	if err != nil {
		return View{}, err
	}
	if err := es.sess.Remove(itemKey); err != nil {
		return View{}, errorbank.Conflict("editing session already closed", errorbank.WithCause(err))
	}
	return s.snapshot(key, es), nil
}

// SetMemo replaces the order memo on the session.
func (s *Service) SetMemo(_ context.Context, key, memo string) (View, error) {
	es, err := s.session(key)
	if err != nil {
		return View{}, err
	}
	if err := es.sess.SetMemo(memo); err != nil {
		return View{}, errorbank.Conflict("editing session already closed", errorbank.WithCause(err))
	}
	return s.snapshot(key, es), nil
}

// Rollback restores the session to its baseline.
func (s *Service) Rollback(_ context.Context, key string) (View, error) {
	es, err := s.session(key)
	if err != nil {
		return View{}, err
	}
	if err := es.sess.Rollback(); err != nil {
		return View{}, errorbank.Conflict("editing session already closed", errorbank.WithCause(err))
	}
	return s.snapshot(key, es), nil
}

// Commit validates the edited state, writes it to the authoritative store,
// and deletes the draft only once that write is acknowledged, then ends the
// session. On failure the session and its draft stay untouched for retry.
func (s *Service) Commit(ctx context.Context, key string, opts CommitOptions) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Commit", trace.WithAttributes(attribute.String("order.key", key)))
	defer span.End()

	es, err := s.session(key)
	if err != nil {
		return err
	}

	items := es.sess.Items()
	if len(items) == 0 {
		return errorbank.Unprocessable("order has no items")
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return errorbank.Unprocessable("quantity must be positive",
				errorbank.WithDetail("key", item.Key),
				errorbank.WithDetail("quantity", item.Quantity),
			)
		}
	}

	err = es.sess.Commit(ctx, func(ctx context.Context, items []lineitem.LineItem, memo string) error {
		if es.order == nil {
			if opts.Number == "" {
				return errorbank.Unprocessable("order number is required for a new order")
			}
			now := time.Now().UTC()
			order := &entity.Order{
				Number:       opts.Number,
				CustomerCode: opts.CustomerCode,
				Status:       "created",
				Memo:         memo,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := s.authority.Create(ctx, order); err != nil {
				return errorbank.Internal("failed to create order", errorbank.WithCause(err))
			}
			es.order = order
		} else {
			es.order.Memo = memo
		}
		if err := s.authority.ReplaceItems(ctx, es.order, itemsToEntities(es.order.ID, items)); err != nil {
			return errorbank.Internal("failed to save order items", errorbank.WithCause(err))
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return err
	}

	s.dropSession(key)
	return nil
}

// Discard ends the session and deletes its draft without saving anything.
func (s *Service) Discard(ctx context.Context, key string) error {
	es, err := s.session(key)
	if err != nil {
		return err
	}
	if err := es.sess.Discard(ctx); err != nil {
		return errorbank.Conflict("editing session already closed", errorbank.WithCause(err))
	}
	s.dropSession(key)
	return nil
}

// DraftKeys lists the order identities with unsaved drafts, for badges across
// order lists.
func (s *Service) DraftKeys(ctx context.Context) ([]string, error) {
	keys, err := s.drafts.ListKeys(ctx)
	if err != nil {
		return nil, errorbank.Internal("failed to list drafts", errorbank.WithCause(err))
	}
	return keys, nil
}

func (s *Service) session(key string) (*editSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.sessions[key]
	if !ok {
		return nil, errorbank.NotFound("no active editing session")
	}
	return es, nil
}

func (s *Service) dropSession(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

func (s *Service) snapshot(key string, es *editSession) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(key, es)
}

// view assembles the transport-facing state; classification is recomputed on
// every read, since it is derivable from baseline plus the current items.
func (s *Service) view(key string, es *editSession) View {
	v := View{
		Key:      key,
		IsNew:    es.order == nil,
		Items:    es.sess.Items(),
		Changes:  es.sess.Changes(),
		Memo:     es.sess.Memo(),
		Total:    es.sess.Total(),
		HasDraft: es.sess.HasDraft(),
	}
	if es.order != nil {
		v.Number = es.order.Number
	}
	return v
}

func hasItem(items []lineitem.LineItem, key string) bool {
	for _, item := range items {
		if item.Key == key {
			return true
		}
	}
	return false
}

func itemsFromEntities(rows []entity.OrderItem) []lineitem.LineItem {
	items := make([]lineitem.LineItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, lineitem.LineItem{
			Key:       row.ItemKey,
			Name:      row.Name,
			UnitPrice: row.UnitPrice,
			Quantity:  row.Quantity,
			Unit:      lineitem.Unit(row.Unit),
			Memo:      row.Memo,
		})
	}
	return lineitem.Normalize(items)
}

func itemsToEntities(orderID int64, items []lineitem.LineItem) []entity.OrderItem {
	rows := make([]entity.OrderItem, 0, len(items))
	for i, item := range items {
		rows = append(rows, entity.OrderItem{
			OrderID:   orderID,
			ItemKey:   item.Key,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Unit:      string(item.Unit),
			Memo:      item.Memo,
			Position:  i,
		})
	}
	return rows
}
