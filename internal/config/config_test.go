package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Drafts.DebounceDelay)
	assert.Equal(t, "new-order", cfg.Drafts.NewOrderKey)
	// Drafts fall back to the primary database when no local DSN is set.
	assert.Equal(t, cfg.Database.Driver, cfg.Drafts.Driver)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Drafts.DSN)
	assert.Equal(t, cfg.Database.WriterDSN, cfg.Database.ReaderDSN)
	assert.Equal(t, "catalog.snapshots", cfg.Feed.Kafka.Topic)
}

func TestNew_DisabledBackendsFallToNoop(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("FEED_ENABLED", "false")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "noop", cfg.Cache.Driver)
	assert.Equal(t, "noop", cfg.Feed.Driver)
}

func TestNew_RejectsUnknownDrivers(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "memcached")

	_, err := New()
	assert.Error(t, err)
}

func TestNew_LocalDraftStore(t *testing.T) {
	t.Setenv("DRAFTS_DRIVER", "sqlite")
	t.Setenv("DRAFTS_DSN", "file:orderpad-drafts.db")
	t.Setenv("DRAFTS_DEBOUNCE_DELAY", "250ms")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Drafts.Driver)
	assert.Equal(t, "file:orderpad-drafts.db", cfg.Drafts.DSN)
	assert.Equal(t, 250*time.Millisecond, cfg.Drafts.DebounceDelay)
}
