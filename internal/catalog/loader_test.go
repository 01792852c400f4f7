package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderpad/internal/config"
	"github.com/Additional-Code/orderpad/internal/feed"
)

type fakeCache struct {
	mu      sync.Mutex
	domains map[string]map[string][]byte
	getErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{domains: make(map[string]map[string][]byte)}
}

func (f *fakeCache) GetAll(_ context.Context, domain string) (map[string][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make(map[string][]byte, len(f.domains[domain]))
	for k, v := range f.domains[domain] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCache) ReplaceAll(_ context.Context, domain string, entries map[string][]byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	replaced := make(map[string][]byte, len(entries))
	for k, v := range entries {
		replaced[k] = v
	}
	f.domains[domain] = replaced
	return nil
}

func (f *fakeCache) size(domain string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.domains[domain])
}

type fakeFeed struct {
	snaps chan feed.Snapshot
	errs  chan error
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{snaps: make(chan feed.Snapshot, 8), errs: make(chan error, 1)}
}

func (f *fakeFeed) Publish(context.Context, string, []byte) error { return nil }
func (f *fakeFeed) Topic() string                                 { return "catalog.snapshots" }

func (f *fakeFeed) Consume(ctx context.Context, handler feed.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-f.errs:
			return err
		case snap := <-f.snaps:
			if err := handler(ctx, snap); err != nil {
				return err
			}
		}
	}
}

func seedProducts(t *testing.T, c *fakeCache, n int) {
	t.Helper()
	entries := make(map[string][]byte, n)
	for i := 0; i < n; i++ {
		barcode := fmt.Sprintf("49010000%04d", i)
		raw, err := json.Marshal(Product{Barcode: barcode, Name: fmt.Sprintf("product %d", i), UnitPrice: 100})
		require.NoError(t, err)
		entries[barcode] = raw
	}
	require.NoError(t, c.ReplaceAll(context.Background(), DomainProducts, entries))
}

func snapshotOf(t *testing.T, domain string, v any) feed.Snapshot {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	return feed.Snapshot{Domain: domain, Payload: payload, Time: time.Now()}
}

func newTestLoader(c *fakeCache, f *fakeFeed, feedEnabled bool) *Loader {
	cfg := config.Config{}
	cfg.Feed.Enabled = feedEnabled
	return NewLoader(Params{Cache: c, Feed: f, Config: cfg, Logger: zap.NewNop()})
}

func TestLoader_CacheFirstThenLiveSnapshot(t *testing.T) {
	fc := newFakeCache()
	seedProducts(t, fc, 100)
	ff := newFakeFeed()
	l := newTestLoader(fc, ff, true)

	require.NoError(t, l.start(context.Background()))
	defer func() { _ = l.stop(context.Background()) }()

	// Cached entries are published before any subscription callback fires.
	assert.Len(t, l.Products(), 100)
	assert.False(t, l.Settled(DomainProducts), "cache data alone does not settle the domain")

	// First live snapshot (50 products) replaces the view entirely.
	live := make([]Product, 50)
	for i := range live {
		live[i] = Product{Barcode: fmt.Sprintf("A%03d", i), Name: "live", UnitPrice: 50}
	}
	ff.snaps <- snapshotOf(t, DomainProducts, live)

	require.Eventually(t, func() bool { return l.Settled(DomainProducts) }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, l.Products(), 50)

	// The mirror is overwritten to match the live snapshot.
	require.Eventually(t, func() bool { return fc.size(DomainProducts) == 50 }, 2*time.Second, 10*time.Millisecond)

	p, ok := l.Product("A007")
	require.True(t, ok)
	assert.Equal(t, "live", p.Name)
}

func TestLoader_CustomerSnapshotSettlesIndependently(t *testing.T) {
	fc := newFakeCache()
	ff := newFakeFeed()
	l := newTestLoader(fc, ff, true)

	require.NoError(t, l.start(context.Background()))
	defer func() { _ = l.stop(context.Background()) }()

	ff.snaps <- snapshotOf(t, DomainCustomers, []Customer{{Code: "C-1", Name: "Acme"}})

	require.Eventually(t, func() bool { return l.Settled(DomainCustomers) }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, l.Settled(DomainProducts))
	assert.Len(t, l.Customers(), 1)

	status := l.Status()
	assert.True(t, status.CustomersSettled)
	assert.False(t, status.ProductsSettled)
}

func TestLoader_FeedDisabledServesCacheOnly(t *testing.T) {
	fc := newFakeCache()
	seedProducts(t, fc, 3)
	l := newTestLoader(fc, newFakeFeed(), false)

	require.NoError(t, l.start(context.Background()))
	defer func() { _ = l.stop(context.Background()) }()

	assert.True(t, l.Degraded())
	assert.Len(t, l.Products(), 3)
}

func TestLoader_ConsumeErrorDegradesThenRecovers(t *testing.T) {
	fc := newFakeCache()
	ff := newFakeFeed()
	l := newTestLoader(fc, ff, true)

	require.NoError(t, l.start(context.Background()))
	defer func() { _ = l.stop(context.Background()) }()

	ff.errs <- errors.New("broker unreachable")
	require.Eventually(t, func() bool { return l.Degraded() }, 2*time.Second, 10*time.Millisecond)

	// The loop reconnects with backoff; a snapshot clears the degraded flag.
	ff.snaps <- snapshotOf(t, DomainProducts, []Product{{Barcode: "B1", Name: "back", UnitPrice: 10}})
	require.Eventually(t, func() bool { return !l.Degraded() }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, l.Settled(DomainProducts))
}

func TestLoader_MalformedSnapshotSkipped(t *testing.T) {
	fc := newFakeCache()
	seedProducts(t, fc, 2)
	ff := newFakeFeed()
	l := newTestLoader(fc, ff, true)

	require.NoError(t, l.start(context.Background()))
	defer func() { _ = l.stop(context.Background()) }()

	ff.snaps <- feed.Snapshot{Domain: DomainProducts, Payload: []byte("{not json")}
	// Follow with a valid customer snapshot to know the bad one was consumed.
	ff.snaps <- snapshotOf(t, DomainCustomers, []Customer{{Code: "C-1"}})

	require.Eventually(t, func() bool { return l.Settled(DomainCustomers) }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, l.Settled(DomainProducts))
	assert.Len(t, l.Products(), 2, "published view keeps the cached data")
}
