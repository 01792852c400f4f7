package draft

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/orderpad/internal/lineitem"
	"github.com/Additional-Code/orderpad/pkg/debounce"
)

const persistTimeout = 5 * time.Second

// ErrSessionClosed is returned when mutating a committed or discarded session.
var ErrSessionClosed = errors.New("editing session closed")

// CommitFunc sends the edited state to the authoritative store. The draft is
// deleted only after it returns nil.
type CommitFunc func(ctx context.Context, items []lineitem.LineItem, memo string) error

// Options configures a new editing session.
type Options struct {
	Store        Store
	Key          string
	Baseline     []lineitem.LineItem
	BaselineMemo string
	Delay        time.Duration
	Logger       *zap.Logger
}

// Session owns one order's editing state: the live collection, the immutable
// baseline it is diffed against, and the debounced checkpointing into the
// draft store. All access is serialized by an internal mutex; the mutex is
// held across store calls so an in-flight checkpoint can never overtake the
// delete issued by commit or discard.
type Session struct {
	key    string
	store  Store
	logger *zap.Logger
	deb    *debounce.Debouncer

	mu           sync.Mutex
	coll         *lineitem.Collection
	memo         string
	baseline     []lineitem.LineItem
	baselineMemo string
	hasDraft     bool
	closed       bool
}

// OpenSession starts an editing session. When a draft exists for the key it
// seeds the collection, so the draft wins over the baseline; a missing,
// failed, or malformed draft read falls back to the baseline. The baseline
// itself is always the authoritative snapshot, never the draft.
func OpenSession(ctx context.Context, opts Options) *Session {
	s := &Session{
		key:          opts.Key,
		store:        opts.Store,
		logger:       opts.Logger,
		baseline:     lineitem.Normalize(opts.Baseline),
		baselineMemo: opts.BaselineMemo,
	}
	s.deb = debounce.New(opts.Delay, s.persist)

	record, err := opts.Store.Get(ctx, opts.Key)
	switch {
	case err == nil:
		s.coll = lineitem.NewCollection(record.Items)
		s.memo = record.Memo
		s.hasDraft = true
	case errors.Is(err, ErrNotFound):
		s.coll = lineitem.NewCollection(s.baseline)
		s.memo = s.baselineMemo
	default:
		s.logger.Warn("draft load failed; seeding from baseline", zap.String("key", opts.Key), zap.Error(err))

		s.coll = lineitem.NewCollection(s.baseline)
		s.memo = s.baselineMemo
	}

	return s
}

// Key returns the draft key this session persists under.
func (s *Session) Key() string { return s.key }

// AddOrMerge adds or merges an item and schedules a checkpoint.
func (s *Session) AddOrMerge(item lineitem.LineItem) error {
	return s.mutate(func() { s.coll.AddOrMerge(item) })
}

// Update patches the item with key and schedules a checkpoint.
func (s *Session) Update(key string, patch lineitem.Patch) error {
	return s.mutate(func() { s.coll.Update(key, patch) })
}

// Remove drops the item with key and schedules a checkpoint.
func (s *Session) Remove(key string) error {
	return s.mutate(func() { s.coll.Remove(key) })
}

// SetMemo replaces the order memo and schedules a checkpoint.
func (s *Session) SetMemo(memo string) error {
	return s.mutate(func() { s.memo = memo })
}

// Rollback restores the baseline state. The following checkpoint then deletes
// the draft, since the edit is back to its origin.
func (s *Session) Rollback() error {
	return s.mutate(func() {
		s.coll.Reset(s.baseline)
		s.memo = s.baselineMemo
	})
}

func (s *Session) mutate(fn func()) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	fn()
	s.mu.Unlock()

	// Cancel-and-rearm: rapid edits coalesce into one checkpoint.
	s.deb.Trigger()
	return nil
}

// persist is the debounce callback: checkpoint the current state, or clean up
// the draft when the edit reverted to the baseline. Storage failures are
// logged and dropped; losing one checkpoint is acceptable since the next one
// supersedes it.
func (s *Session) persist() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	items := s.coll.Items()
	if lineitem.Equal(items, s.baseline) && s.memo == s.baselineMemo {
		if err := s.store.Delete(ctx, s.key); err != nil {
			s.logger.Warn("draft cleanup failed", zap.String("key", s.key), zap.Error(err))

			return
		}
		s.hasDraft = false
		return
	}

	record := &Record{Key: s.key, Items: items, Memo: s.memo, SavedAt: time.Now().UTC()}
	if err := s.store.Put(ctx, record); err != nil {
		s.logger.Warn("draft checkpoint failed", zap.String("key", s.key), zap.Error(err))

		return
	}
	s.hasDraft = true
}

// Commit sends the edited state to the authoritative store via write and, only
// after it acknowledges, deletes the draft and closes the session. When write
// fails the session stays open with the draft intact so the user can retry.
func (s *Session) Commit(ctx context.Context, write CommitFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	if err := write(ctx, s.coll.Items(), s.memo); err != nil {
		return err
	}

	s.deb.Stop()
	s.closed = true
	if err := s.store.Delete(ctx, s.key); err != nil {
		s.logger.Warn("draft delete after commit failed", zap.String("key", s.key), zap.Error(err))
	}
	s.hasDraft = false
	return nil
}

// Discard closes the session and deletes the draft without touching the
// authoritative store.
func (s *Session) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	s.deb.Stop()
	s.closed = true
	if err := s.store.Delete(ctx, s.key); err != nil {
		s.logger.Warn("draft delete after discard failed", zap.String("key", s.key), zap.Error(err))
	}
	s.hasDraft = false
	return nil
}

// Items returns a copy of the current edited items.
func (s *Session) Items() []lineitem.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Items()
}

// Memo returns the current order memo.
func (s *Session) Memo() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memo
}

// Total returns the floored order total of the edited state.
func (s *Session) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.Total()
}

// HasDraft reports whether a checkpoint is currently persisted.
func (s *Session) HasDraft() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasDraft
}

// Closed reports whether the session was committed or discarded.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Changes classifies every current item against the session baseline.
func (s *Session) Changes() map[string]lineitem.Change {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lineitem.Classify(s.baseline, s.coll.Items())
}
