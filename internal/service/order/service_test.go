package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderpad/internal/catalog"
	"github.com/Additional-Code/orderpad/internal/draft"
	"github.com/Additional-Code/orderpad/internal/entity"
	"github.com/Additional-Code/orderpad/internal/lineitem"
	repo "github.com/Additional-Code/orderpad/internal/repository/order"
	"github.com/Additional-Code/orderpad/pkg/errorbank"
)

type mockAuthority struct {
	CreateFunc       func(ctx context.Context, order *entity.Order) error
	GetByNumberFunc  func(ctx context.Context, number string) (*entity.Order, error)
	ListItemsFunc    func(ctx context.Context, orderID int64) ([]entity.OrderItem, error)
	ReplaceItemsFunc func(ctx context.Context, order *entity.Order, items []entity.OrderItem) error
}

func (m *mockAuthority) Create(ctx context.Context, order *entity.Order) error {
	return m.CreateFunc(ctx, order)
}

func (m *mockAuthority) GetByNumber(ctx context.Context, number string) (*entity.Order, error) {
	return m.GetByNumberFunc(ctx, number)
}

func (m *mockAuthority) ListItems(ctx context.Context, orderID int64) ([]entity.OrderItem, error) {
	return m.ListItemsFunc(ctx, orderID)
}

func (m *mockAuthority) ReplaceItems(ctx context.Context, order *entity.Order, items []entity.OrderItem) error {
	return m.ReplaceItemsFunc(ctx, order, items)
}

type memoryDrafts struct {
	mu      sync.Mutex
	records map[string]*draft.Record
}

func newMemoryDrafts() *memoryDrafts {
	return &memoryDrafts{records: make(map[string]*draft.Record)}
}

func (m *memoryDrafts) Get(_ context.Context, key string) (*draft.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[key]
	if !ok {
		return nil, draft.ErrNotFound
	}
	return rec, nil
}

func (m *memoryDrafts) Put(_ context.Context, record *draft.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.Key] = record
	return nil
}

func (m *memoryDrafts) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *memoryDrafts) ListKeys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.records))
	for key := range m.records {
		keys = append(keys, key)
	}
	return keys, nil
}

func (m *memoryDrafts) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[key]
	return ok
}

type stubResolver struct {
	products map[string]catalog.Product
}

func (s *stubResolver) Product(barcode string) (catalog.Product, bool) {
	p, ok := s.products[barcode]
	return p, ok
}

func testService(authority Authority, drafts draft.Store) *Service {
	resolver := &stubResolver{products: map[string]catalog.Product{
		"4901": {Barcode: "4901", Name: "Green Tea 500ml", UnitPrice: 120, Unit: lineitem.UnitPiece},
		"4902": {Barcode: "4902", Name: "Soy Sauce 1L", UnitPrice: 480, Unit: lineitem.UnitPiece},
	}}
	return newService(authority, drafts, resolver, 10*time.Millisecond, "new-order", zap.NewNop())
}

func savedOrderAuthority() *mockAuthority {
	return &mockAuthority{
		GetByNumberFunc: func(_ context.Context, number string) (*entity.Order, error) {
			if number != "SO-1001" {
				return nil, repo.ErrNotFound
			}
			return &entity.Order{ID: 7, Number: "SO-1001", Memo: "rush"}, nil
		},
		ListItemsFunc: func(_ context.Context, orderID int64) ([]entity.OrderItem, error) {
			return []entity.OrderItem{
				{OrderID: orderID, ItemKey: "4901", Name: "Green Tea 500ml", UnitPrice: 120, Quantity: 2, Unit: "piece", Position: 0},
			}, nil
		},
	}
}

func TestOpenSeedsBaselineFromAuthority(t *testing.T) {
	svc := testService(savedOrderAuthority(), newMemoryDrafts())

	view, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)

	assert.Equal(t, "SO-1001", view.Number)
	assert.False(t, view.IsNew)
	assert.False(t, view.HasDraft)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, "rush", view.Memo)
	assert.Equal(t, lineitem.StatusUnchanged, view.Changes["4901"].Status)
}

func TestOpenUnknownOrder(t *testing.T) {
	svc := testService(savedOrderAuthority(), newMemoryDrafts())

	_, err := svc.Open(context.Background(), "SO-9999")
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestOpenReturnsExistingSession(t *testing.T) {
	svc := testService(savedOrderAuthority(), newMemoryDrafts())

	_, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), "SO-1001", lineitem.LineItem{Key: "4902"})
	require.NoError(t, err)

	view, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)
	assert.Len(t, view.Items, 2, "reopening must not reset in-flight edits")
}

func TestAddItemResolvesProduct(t *testing.T) {
	svc := testService(savedOrderAuthority(), newMemoryDrafts())

	_, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)

	view, err := svc.AddItem(context.Background(), "SO-1001", lineitem.LineItem{Key: "4902", Quantity: 3})
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	added := view.Items[1]
	assert.Equal(t, "Soy Sauce 1L", added.Name)
	assert.Equal(t, 480.0, added.UnitPrice)
	assert.Equal(t, lineitem.StatusNew, view.Changes["4902"].Status)
}

func TestAddItemUnknownProduct(t *testing.T) {
	svc := testService(savedOrderAuthority(), newMemoryDrafts())

	_, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), "SO-1001", lineitem.LineItem{Key: "0000"})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestUpdateItemMissing(t *testing.T) {
	svc := testService(savedOrderAuthority(), newMemoryDrafts())

	_, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)

	qty := 5
	_, err = svc.UpdateItem(context.Background(), "SO-1001", "4902", lineitem.Patch{Quantity: &qty})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestCommitRejectsNonPositiveQuantity(t *testing.T) {
	svc := testService(savedOrderAuthority(), newMemoryDrafts())

	_, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)

	qty := 0
	_, err = svc.UpdateItem(context.Background(), "SO-1001", "4901", lineitem.Patch{Quantity: &qty})
	require.NoError(t, err)

	err = svc.Commit(context.Background(), "SO-1001", CommitOptions{})
	require.Error(t, err)
	assert.Equal(t, errorbank.KindUnprocessableEntity, errorbank.From(err).Kind())

	_, err = svc.Get("SO-1001")
	assert.NoError(t, err, "rejected commit must keep the session alive")
}

func TestCommitExistingOrder(t *testing.T) {
	drafts := newMemoryDrafts()
	authority := savedOrderAuthority()

	var replaced []entity.OrderItem
	authority.ReplaceItemsFunc = func(_ context.Context, order *entity.Order, items []entity.OrderItem) error {
		require.Equal(t, int64(7), order.ID)
		replaced = items
		return nil
	}

	svc := testService(authority, drafts)
	_, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), "SO-1001", lineitem.LineItem{Key: "4902", Quantity: 1})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return drafts.has("SO-1001") }, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Commit(context.Background(), "SO-1001", CommitOptions{}))

	require.Len(t, replaced, 2)
	assert.Equal(t, 0, replaced[0].Position)
	assert.Equal(t, 1, replaced[1].Position)
	assert.False(t, drafts.has("SO-1001"), "draft must be gone once the write is acknowledged")

	_, err = svc.Get("SO-1001")
	require.Error(t, err)
}

func TestCommitNewOrder(t *testing.T) {
	drafts := newMemoryDrafts()
	authority := savedOrderAuthority()
	authority.CreateFunc = func(_ context.Context, order *entity.Order) error {
		order.ID = 42
		return nil
	}

	var replacedID int64
	authority.ReplaceItemsFunc = func(_ context.Context, order *entity.Order, items []entity.OrderItem) error {
		replacedID = order.ID
		for _, item := range items {
			require.Equal(t, order.ID, item.OrderID)
		}
		return nil
	}

	svc := testService(authority, drafts)
	_, err := svc.Open(context.Background(), "")
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), "new-order", lineitem.LineItem{Key: "4901", Quantity: 2})
	require.NoError(t, err)

	err = svc.Commit(context.Background(), "new-order", CommitOptions{})
	require.Error(t, err, "new order needs a number")

	require.NoError(t, svc.Commit(context.Background(), "new-order", CommitOptions{Number: "SO-2000", CustomerCode: "C-9"}))
	assert.Equal(t, int64(42), replacedID)
	assert.False(t, drafts.has("new-order"))
}

func TestCommitFailureKeepsDraft(t *testing.T) {
	drafts := newMemoryDrafts()
	authority := savedOrderAuthority()
	authority.ReplaceItemsFunc = func(context.Context, *entity.Order, []entity.OrderItem) error {
		return errors.New("connection reset")
	}

	svc := testService(authority, drafts)
	_, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), "SO-1001", lineitem.LineItem{Key: "4902", Quantity: 1})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return drafts.has("SO-1001") }, time.Second, 5*time.Millisecond)

	err = svc.Commit(context.Background(), "SO-1001", CommitOptions{})
	require.Error(t, err)

	assert.True(t, drafts.has("SO-1001"), "failed commit must not delete the draft")
	_, err = svc.Get("SO-1001")
	assert.NoError(t, err)
}

func TestDiscardDeletesDraft(t *testing.T) {
	drafts := newMemoryDrafts()
	svc := testService(savedOrderAuthority(), drafts)

	_, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), "SO-1001", lineitem.LineItem{Key: "4902", Quantity: 1})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return drafts.has("SO-1001") }, time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Discard(context.Background(), "SO-1001"))
	assert.False(t, drafts.has("SO-1001"))

	_, err = svc.Get("SO-1001")
	require.Error(t, err)
}

func TestResumeFromDraft(t *testing.T) {
	drafts := newMemoryDrafts()
	require.NoError(t, drafts.Put(context.Background(), &draft.Record{
		Key: "SO-1001",
		Items: []lineitem.LineItem{
			{Key: "4901", Name: "Green Tea 500ml", UnitPrice: 120, Quantity: 9, Unit: lineitem.UnitPiece},
		},
		Memo:    "rush",
		SavedAt: time.Now(),
	}))

	svc := testService(savedOrderAuthority(), drafts)
	view, err := svc.Open(context.Background(), "SO-1001")
	require.NoError(t, err)

	assert.True(t, view.HasDraft)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 9, view.Items[0].Quantity)
	assert.Equal(t, lineitem.StatusModified, view.Changes["4901"].Status)
	assert.True(t, view.Changes["4901"].QuantityChanged)
}

func TestDraftKeys(t *testing.T) {
	drafts := newMemoryDrafts()
	require.NoError(t, drafts.Put(context.Background(), &draft.Record{Key: "SO-1001"}))

	svc := testService(savedOrderAuthority(), drafts)
	keys, err := svc.DraftKeys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"SO-1001"}, keys)
}
