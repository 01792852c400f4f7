package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/orderpad/internal/cache"
	"github.com/Additional-Code/orderpad/internal/config"
	"github.com/Additional-Code/orderpad/internal/feed"
)

const writeBackTimeout = 10 * time.Second

// Loader orchestrates the cache-first bootstrap per domain: publish whatever
// the local mirror holds, subscribe to the feed, replace the published view
// with each live snapshot, and write snapshots back so the next cold start is
// fresh. The editor stays usable on cached data when the feed is down.
type Loader struct {
	cache   cache.Store
	feed    feed.Client
	logger  *zap.Logger
	enabled bool

	mu        sync.RWMutex
	customers []Customer
	products  []Product
	byBarcode map[string]Product
	settled   map[string]bool
	degraded  bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Params collects loader dependencies via Fx.
type Params struct {
	fx.In

	Cache  cache.Store
	Feed   feed.Client
	Config config.Config
	Logger *zap.Logger
}

// NewLoader constructs the catalog loader.
func NewLoader(p Params) *Loader {
	return &Loader{
		cache:     p.Cache,
		feed:      p.Feed,
		logger:    p.Logger,
		enabled:   p.Config.Feed.Enabled,
		byBarcode: make(map[string]Product),
		settled:   make(map[string]bool, len(Domains)),
	}
}

// Module wires the loader into the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewLoader),
	fx.Invoke(func(lc fx.Lifecycle, loader *Loader) {
		lc.Append(fx.Hook{
			OnStart: loader.start,
			OnStop:  loader.stop,
		})
	}),
)

func (l *Loader) start(ctx context.Context) error {
	for _, domain := range Domains {
		l.bootstrapFromCache(ctx, domain)
	}

	if !l.enabled {
		l.mu.Lock()
		l.degraded = true
		l.mu.Unlock()
		l.logger.Info("catalog feed disabled; serving cached catalogs only")

		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.consumeLoop(runCtx)
	}()

	l.logger.Info("catalog loader started", zap.String("topic", l.feed.Topic()))

	return nil
}

func (l *Loader) stop(ctx context.Context) error {
	if l.cancel == nil {
		return nil
	}
	l.cancel()
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		l.logger.Info("catalog loader stopped")

		return nil
	}
}

// bootstrapFromCache publishes the mirrored domain immediately so the editor
// unblocks before any network activity completes. Failures fall through to
// an empty view; the first live snapshot fills it in.
func (l *Loader) bootstrapFromCache(ctx context.Context, domain string) {
	entries, err := l.cache.GetAll(ctx, domain)
	if err != nil {
		l.logger.Warn("catalog cache read failed", zap.String("domain", domain), zap.Error(err))

		return
	}
	if len(entries) == 0 {
		return
	}

	payloads := make([][]byte, 0, len(entries))
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		payloads = append(payloads, entries[k])
	}

	count, err := l.publishEntries(domain, payloads)
	if err != nil {
		l.logger.Warn("catalog cache decode failed", zap.String("domain", domain), zap.Error(err))

		return
	}
	l.logger.Info("catalog bootstrapped from cache", zap.String("domain", domain), zap.Int("count", count))
}

func (l *Loader) consumeLoop(ctx context.Context) {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		err := l.feed.Consume(ctx, l.handleSnapshot)
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		l.mu.Lock()
		l.degraded = true
		l.mu.Unlock()
		l.logger.Error("catalog feed consume error; serving cached data", zap.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}

		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// handleSnapshot replaces the published view with a live snapshot and writes
// it back to the mirror asynchronously. A snapshot that fails to decode is
// skipped rather than redelivered forever.
func (l *Loader) handleSnapshot(ctx context.Context, snap feed.Snapshot) error {
	entries, err := l.decodeSnapshot(snap)
	if err != nil {
		l.logger.Warn("malformed catalog snapshot skipped",
			zap.String("domain", snap.Domain),
			zap.Int64("offset", snap.Offset),
			zap.Error(err),
		)
		return nil
	}

	l.mu.Lock()
	l.settled[snap.Domain] = true
	l.degraded = false
	l.mu.Unlock()

	l.logger.Debug("catalog snapshot applied",
		zap.String("domain", snap.Domain),
		zap.Int("count", len(entries)),
	)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		writeCtx, cancel := context.WithTimeout(context.Background(), writeBackTimeout)
		defer cancel()
		if err := l.cache.ReplaceAll(writeCtx, snap.Domain, entries); err != nil {
			l.logger.Warn("catalog cache write-back failed", zap.String("domain", snap.Domain), zap.Error(err))
		}
	}()

	return nil
}

// decodeSnapshot parses a full-collection payload, swaps it into the
// published view, and returns the per-entity encoding for cache write-back.
func (l *Loader) decodeSnapshot(snap feed.Snapshot) (map[string][]byte, error) {
	switch snap.Domain {
	case DomainCustomers:
		var customers []Customer
		if err := json.Unmarshal(snap.Payload, &customers); err != nil {
			return nil, err
		}
		entries := make(map[string][]byte, len(customers))
		for _, c := range customers {
			raw, err := json.Marshal(c)
			if err != nil {
				return nil, err
			}
			entries[c.Code] = raw
		}
		l.mu.Lock()
		l.customers = customers
		l.mu.Unlock()
		return entries, nil

	case DomainProducts:
		var products []Product
		if err := json.Unmarshal(snap.Payload, &products); err != nil {
			return nil, err
		}
		entries := make(map[string][]byte, len(products))
		idx := make(map[string]Product, len(products))
		for _, p := range products {
			raw, err := json.Marshal(p)
			if err != nil {
				return nil, err
			}
			entries[p.Barcode] = raw
			idx[p.Barcode] = p
		}
		l.mu.Lock()
		l.products = products
		l.byBarcode = idx
		l.mu.Unlock()
		return entries, nil

	default:
		return nil, errors.New("unknown catalog domain: " + snap.Domain)
	}
}

// publishEntries decodes cached per-entity payloads into the published view.
func (l *Loader) publishEntries(domain string, payloads [][]byte) (int, error) {
	switch domain {
	case DomainCustomers:
		customers := make([]Customer, 0, len(payloads))
		for _, raw := range payloads {
			var c Customer
			if err := json.Unmarshal(raw, &c); err != nil {
				return 0, err
			}
			customers = append(customers, c)
		}
		l.mu.Lock()
		l.customers = customers
		l.mu.Unlock()
		return len(customers), nil

	case DomainProducts:
		products := make([]Product, 0, len(payloads))
		idx := make(map[string]Product, len(payloads))
		for _, raw := range payloads {
			var p Product
			if err := json.Unmarshal(raw, &p); err != nil {
				return 0, err
			}
			products = append(products, p)
			idx[p.Barcode] = p
		}
		l.mu.Lock()
		l.products = products
		l.byBarcode = idx
		l.mu.Unlock()
		return len(products), nil

	default:
		return 0, errors.New("unknown catalog domain: " + domain)
	}
}

// Customers returns the currently published customer catalog.
func (l *Loader) Customers() []Customer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Customer, len(l.customers))
	copy(out, l.customers)
	return out
}

// Products returns the currently published product catalog.
func (l *Loader) Products() []Product {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Product, len(l.products))
	copy(out, l.products)
	return out
}

// Product looks a product up by barcode in the published view.
func (l *Loader) Product(barcode string) (Product, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.byBarcode[barcode]
	return p, ok
}

// Settled reports whether the first live snapshot for domain has arrived.
func (l *Loader) Settled(domain string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.settled[domain]
}

// Degraded reports whether the mirror is serving cache-only data because the
// feed is disabled or unreachable.
func (l *Loader) Degraded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.degraded
}

// Status summarizes bootstrap state for the transport layer.
func (l *Loader) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Status{
		CustomersSettled: l.settled[DomainCustomers],
		ProductsSettled:  l.settled[DomainProducts],
		Degraded:         l.degraded,
	}
}
