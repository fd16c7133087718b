package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteKVSetGetRemove(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer kv.Close()

	ctx := context.Background()

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "greeting", `{"text":"hello"}`))
	value, ok, err := kv.Get(ctx, "greeting")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"text":"hello"}`, value)

	// Overwrite replaces, not appends.
	require.NoError(t, kv.Set(ctx, "greeting", "v2"))
	value, _, err = kv.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "v2", value)

	require.NoError(t, kv.Remove(ctx, "greeting"))
	_, ok, err = kv.Get(ctx, "greeting")
	require.NoError(t, err)
	assert.False(t, ok)

	// Removing an absent key is a no-op.
	require.NoError(t, kv.Remove(ctx, "greeting"))
}

func TestSQLiteKVPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	ctx := context.Background()

	kv, err := NewSQLiteKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "sticky", "survives"))
	require.NoError(t, kv.Close())

	kv2, err := NewSQLiteKV(path)
	require.NoError(t, err)
	defer kv2.Close()

	value, ok, err := kv2.Get(ctx, "sticky")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "survives", value)
}

func TestMemoryKVFailureInjection(t *testing.T) {
	kv := NewMemoryKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "k", "v"))

	injected := NewError(KindStorageFull, "set", nil)
	kv.FailWrites(injected)
	assert.ErrorIs(t, kv.Set(ctx, "k", "v2"), injected)
	assert.ErrorIs(t, kv.Remove(ctx, "k"), injected)

	// Reads keep working while writes fail.
	value, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", value)

	kv.FailWrites(nil)
	require.NoError(t, kv.Set(ctx, "k", "v2"))
}

func TestSQLiteKVReadFailureKeepsCause(t *testing.T) {
	kv, err := NewSQLiteKV(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	defer kv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err = kv.Get(ctx, "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsKind(err, KindStorageFull), "a failed read must not carry a write-kind error")
}

func TestErrorKindClassification(t *testing.T) {
	err := NewError(KindStorageFull, "set", assert.AnError)
	assert.True(t, IsKind(err, KindStorageFull))
	assert.False(t, IsKind(err, KindCorruptedData))
	assert.ErrorIs(t, err, assert.AnError)

	assert.False(t, IsKind(assert.AnError, KindStorageFull))
}
