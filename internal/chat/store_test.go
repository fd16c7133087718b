package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcoach/internal/config"
	"fitcoach/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.MemoryKV, *config.Provider) {
	t.Helper()
	kv := storage.NewMemoryKV()
	provider := config.NewProvider(kv)
	provider.Initialize(context.Background())
	return NewStore(kv, provider), kv, provider
}

func userSession(t *testing.T, text string) *Session {
	t.Helper()
	s := NewSession("")
	s.Append(NewMessage(RoleAssistant, "Welcome! How can I help with your training today?"))
	s.Append(NewMessage(RoleUser, text))
	return s
}

func TestSaveChatRecomputesMetadata(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	s := userSession(t, "Plan my next week workouts.")
	require.NoError(t, store.SaveChat(ctx, s))

	assert.Equal(t, 2, s.Meta.MessageCount)
	assert.Equal(t, "Plan my next week workouts.", s.Meta.LastMessagePreview)
	assert.False(t, s.UpdatedAt.IsZero())
}

func TestSaveChatPreviewTruncatedTo100(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	long := ""
	for i := 0; i < 30; i++ {
		long += "workout"
	}
	s := NewSession("")
	s.Append(NewMessage(RoleUser, long))
	require.NoError(t, store.SaveChat(ctx, s))

	assert.Len(t, []rune(s.Meta.LastMessagePreview), 100)
	assert.Equal(t, long[:100], s.Meta.LastMessagePreview)
}

func TestSaveChatDerivesTitle(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	s := userSession(t, "Plan my next week workouts.")
	require.NoError(t, store.SaveChat(ctx, s))

	got, err := store.GetChats(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Plan my next week workouts", got[0].Title)
	assert.Equal(t, 2, got[0].Meta.MessageCount)
}

func TestRoundTrip(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	s := userSession(t, "How many sets of squats should I do?")
	require.NoError(t, store.SaveChat(ctx, s))

	loaded, ok := store.GetChat(ctx, s.ID)
	require.True(t, ok)

	// Timestamps survive JSON round-tripping at nanosecond precision only
	// if they were UTC; compare with a small tolerance to stay honest.
	if diff := cmp.Diff(s, loaded, cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("session mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestGetChatsOrderingMostRecentFirst(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	a := userSession(t, "Chest day programming ideas for this month")
	b := userSession(t, "Best stretches after a long easy run")
	require.NoError(t, store.SaveChat(ctx, a))
	require.NoError(t, store.SaveChat(ctx, b))
	require.NoError(t, store.SaveChat(ctx, a)) // re-save moves A back to front

	got, err := store.GetChats(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 2, "re-saving must not duplicate index entries")
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)
}

func TestEvictionPastHistoryCap(t *testing.T) {
	store, _, provider := newTestStore(t)
	ctx := context.Background()

	historyCap := 3
	require.NoError(t, provider.Update(ctx, config.Patch{MaxChatHistory: &historyCap}))

	var sessions []*Session
	for i := 0; i < historyCap+1; i++ {
		s := userSession(t, fmt.Sprintf("Build me a training block number %d please", i))
		require.NoError(t, store.SaveChat(ctx, s))
		sessions = append(sessions, s)
	}

	got, err := store.GetChats(ctx, historyCap+1)
	require.NoError(t, err)
	require.Len(t, got, historyCap)

	// Oldest save is the one evicted, record and all.
	_, ok := store.GetChat(ctx, sessions[0].ID)
	assert.False(t, ok)
	for _, s := range sessions[1:] {
		_, ok := store.GetChat(ctx, s.ID)
		assert.True(t, ok, "session %s should survive eviction", s.ID)
	}
}

func TestGetChatCorruptRecordSelfHeals(t *testing.T) {
	store, kv, _ := newTestStore(t)
	ctx := context.Background()

	s := userSession(t, "Track my deadlift progression over twelve weeks")
	require.NoError(t, store.SaveChat(ctx, s))

	// Corrupt the stored record behind the store's back.
	require.NoError(t, kv.Set(ctx, "chat_sessions_"+s.ID, "{not valid json"))

	res := store.Load(ctx, s.ID)
	assert.Equal(t, ReadRepaired, res.Status)
	assert.Nil(t, res.Session)

	// The id must be gone from the index afterwards.
	got, err := store.GetChats(ctx, 0)
	require.NoError(t, err)
	for _, loaded := range got {
		assert.NotEqual(t, s.ID, loaded.ID)
	}

	// And a second read is a clean miss, not another repair.
	res = store.Load(ctx, s.ID)
	assert.Equal(t, ReadNotFound, res.Status)
}

func TestIndexNeverDanglesAfterMixedOperations(t *testing.T) {
	store, kv, _ := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		s := userSession(t, fmt.Sprintf("Session body number %d with some filler text", i))
		require.NoError(t, store.SaveChat(ctx, s))
		ids = append(ids, s.ID)
	}
	require.NoError(t, store.DeleteChat(ctx, ids[1]))
	require.NoError(t, kv.Set(ctx, "chat_sessions_"+ids[2], "][")) // corrupt one

	for _, id := range ids {
		res := store.Load(ctx, id)
		switch res.Status {
		case ReadOk:
			require.NotNil(t, res.Session)
		case ReadRepaired, ReadNotFound:
			// Either way the index must no longer reference it.
			raw, ok, err := kv.Get(ctx, "chat_index")
			require.NoError(t, err)
			require.True(t, ok)
			var index []string
			require.NoError(t, json.Unmarshal([]byte(raw), &index))
			assert.NotContains(t, index, id)
		}
	}
}

func TestDeleteChatAbsentIDIsNoOp(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.DeleteChat(ctx, "no-such-id"))
}

func TestSearchChatsSubstring(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	withSleep := userSession(t, "I barely slept, how should sleep affect my plan?")
	require.NoError(t, store.SaveChat(ctx, userSession(t, "Upper body split for three days a week")))
	require.NoError(t, store.SaveChat(ctx, withSleep))
	require.NoError(t, store.SaveChat(ctx, userSession(t, "Protein intake targets while cutting weight")))

	got, err := store.SearchChats(ctx, "sleep")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, withSleep.ID, got[0].ID)
}

func TestSearchChatsEmptyQueryReturnsNothing(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveChat(ctx, userSession(t, "Anything at all in here")))

	got, err := store.SearchChats(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClearAllChats(t *testing.T) {
	store, kv, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveChat(ctx, userSession(t, fmt.Sprintf("Some chat number %d to be cleared", i))))
	}
	require.NoError(t, store.ClearAllChats(ctx))

	got, err := store.GetChats(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	raw, ok, err := kv.Get(ctx, "chat_index")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, "[]", raw)
}

func TestCurrentChatID(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	_, ok := store.CurrentChatID(ctx)
	assert.False(t, ok)

	require.NoError(t, store.SetCurrentChatID(ctx, "abc"))
	id, ok := store.CurrentChatID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", id)

	require.NoError(t, store.SetCurrentChatID(ctx, ""))
	_, ok = store.CurrentChatID(ctx)
	assert.False(t, ok)
}

func TestSaveChatWriteFailurePropagates(t *testing.T) {
	store, kv, _ := newTestStore(t)
	ctx := context.Background()

	kv.FailWrites(storage.NewError(storage.KindStorageFull, "set", nil))

	err := store.SaveChat(ctx, userSession(t, "This write is going to fail badly"))
	require.Error(t, err)
	assert.True(t, storage.IsKind(err, storage.KindStorageFull))
}

func TestStoreInitializeIsIdempotent(t *testing.T) {
	store, _, _ := newTestStore(t)
	ctx := context.Background()

	store.Initialize(ctx)
	require.NoError(t, store.SaveChat(ctx, userSession(t, "A session saved between initializations")))
	store.Initialize(ctx)

	got, err := store.GetChats(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNewSessionIsPureAllocation(t *testing.T) {
	store, kv, _ := newTestStore(t)
	ctx := context.Background()

	s := NewSession("")
	assert.Equal(t, DefaultTitle, s.Title)
	assert.NotEmpty(t, s.ID)
	assert.Empty(t, s.Messages)

	// Nothing persisted, index untouched.
	_, ok := store.GetChat(ctx, s.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, kv.Len())
}
