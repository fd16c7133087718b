package config

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcoach/internal/storage"
)

func TestInitializeDefaultsWhenUnset(t *testing.T) {
	kv := storage.NewMemoryKV()
	p := NewProvider(kv)
	p.Initialize(context.Background())

	assert.Equal(t, Default(), p.Get())
}

func TestInitializeDefaultsOnCorruptBlob(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, KeyChatConfig, "{{{not json"))

	p := NewProvider(kv)
	p.Initialize(ctx)

	assert.Equal(t, Default(), p.Get())
}

func TestInitializeLoadsPersistedConfig(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	saved := ChatConfig{
		MaxChatsInDrawer:     10,
		MaxChatHistory:       50,
		SearchDebounceMs:     500,
		AutoSaveIntervalMs:   10000,
		EnableSearchIndexing: false,
	}
	data, err := json.Marshal(saved)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, KeyChatConfig, string(data)))

	p := NewProvider(kv)
	p.Initialize(ctx)

	assert.Equal(t, saved, p.Get())
}

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	p := NewProvider(kv)
	p.Initialize(ctx)

	historyCap := 7
	require.NoError(t, p.Update(ctx, Patch{MaxChatHistory: &historyCap}))

	// A second Initialize must not clobber the in-memory value.
	p.Initialize(ctx)
	assert.Equal(t, 7, p.Get().MaxChatHistory)
}

func TestUpdateMergesAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	p := NewProvider(kv)
	p.Initialize(ctx)

	drawer := 5
	require.NoError(t, p.Update(ctx, Patch{MaxChatsInDrawer: &drawer}))

	got := p.Get()
	assert.Equal(t, 5, got.MaxChatsInDrawer)
	assert.Equal(t, Default().MaxChatHistory, got.MaxChatHistory, "untouched fields keep their values")

	// A fresh provider sees the persisted value.
	p2 := NewProvider(kv)
	p2.Initialize(ctx)
	assert.Equal(t, 5, p2.Get().MaxChatsInDrawer)
}

func TestUpdateRejectsInvalidLimits(t *testing.T) {
	ctx := context.Background()
	p := NewProvider(storage.NewMemoryKV())
	p.Initialize(ctx)

	bad := -1
	err := p.Update(ctx, Patch{MaxChatHistory: &bad})
	require.Error(t, err)
	assert.Equal(t, Default().MaxChatHistory, p.Get().MaxChatHistory)
}

func TestUpdateKeepsMemoryOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	p := NewProvider(kv)
	p.Initialize(ctx)

	kv.FailWrites(errors.New("disk gone"))

	historyCap := 42
	err := p.Update(ctx, Patch{MaxChatHistory: &historyCap})
	require.Error(t, err)
	// Memory and disk are explicitly not atomic: the value is applied.
	assert.Equal(t, 42, p.Get().MaxChatHistory)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	p := NewProvider(kv)
	p.Initialize(ctx)

	drawer := 3
	require.NoError(t, p.Update(ctx, Patch{MaxChatsInDrawer: &drawer}))
	require.NoError(t, p.Reset(ctx))

	assert.Equal(t, Default(), p.Get())

	p2 := NewProvider(kv)
	p2.Initialize(ctx)
	assert.Equal(t, Default(), p2.Get())
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.MaxChatsInDrawer = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.SearchDebounceMs = -5
	assert.Error(t, cfg.Validate())
}
