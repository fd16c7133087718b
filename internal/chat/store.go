package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"fitcoach/internal/config"
	"fitcoach/internal/logging"
	"fitcoach/internal/storage"
)

// Persistence keys. One record per session plus a single recency index.
const (
	sessionKeyPrefix = "chat_sessions_"
	keyIndex         = "chat_index"
	keyCurrentChat   = "current_chat_id"
)

func sessionKey(id string) string { return sessionKeyPrefix + id }

// ReadStatus tags the outcome of a session read.
type ReadStatus int

const (
	// ReadOk means the session loaded cleanly.
	ReadOk ReadStatus = iota
	// ReadRepaired means the record was unreadable and has been deleted
	// from storage and index as a side effect of this read.
	ReadRepaired
	// ReadNotFound means no record exists for the id.
	ReadNotFound
)

// ReadResult is the tagged outcome of Load, so callers and tests can tell
// a clean miss from a self-healed corruption.
type ReadResult struct {
	Status  ReadStatus
	Session *Session
	Reason  string
}

// Store owns persisted chat sessions and the recency-ordered index.
//
// The index is the sole ordering authority: a JSON array of session ids,
// most-recently-saved first, unique, capped at MaxChatHistory. Writes are
// ordered records-before-index so a partial failure leaves at worst an
// orphan record, never an index entry without a record; reads self-heal
// any residual dangling reference.
type Store struct {
	kv          storage.KV
	cfg         *config.Provider
	mu          sync.Mutex
	initialized bool
}

// NewStore wires a Store over the KV adapter and config provider.
func NewStore(kv storage.KV, cfg *config.Provider) *Store {
	return &Store{kv: kv, cfg: cfg}
}

// Initialize warms the store by reading the index once. Idempotent; a
// missing or corrupt index simply starts empty, so this never fails.
func (s *Store) Initialize(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return
	}
	s.initialized = true

	index := s.loadIndex(ctx)
	logging.Store("Chat store ready (%d sessions in index)", len(index))
}

// SaveChat recomputes the derived metadata, stamps UpdatedAt, persists the
// record, then moves the id to the front of the index, evicting the
// least-recently-saved sessions past MaxChatHistory.
func (s *Store) SaveChat(ctx context.Context, session *Session) error {
	timer := logging.StartTimer(logging.CategoryStore, "SaveChat")
	defer timer.Stop()

	if session == nil || session.ID == "" {
		return fmt.Errorf("cannot save session without id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session.refreshMeta()
	if session.Title == "" || session.Title == DefaultTitle {
		session.Title = GenerateTitle(session.Messages)
	}
	session.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session %s: %w", session.ID, err)
	}
	if err := s.kv.Set(ctx, sessionKey(session.ID), string(data)); err != nil {
		return err
	}
	logging.StoreDebug("Saved session %s (%d messages)", session.ID, len(session.Messages))

	index := s.loadIndex(ctx)
	index = promote(index, session.ID)

	historyCap := s.cfg.Get().MaxChatHistory
	if len(index) > historyCap {
		evicted := index[historyCap:]
		index = index[:historyCap]
		for _, id := range evicted {
			if err := s.kv.Remove(ctx, sessionKey(id)); err != nil {
				logging.Get(logging.CategoryStore).Warn("Failed to evict session %s: %v", id, err)
			}
		}
		logging.StoreDebug("Evicted %d sessions past history cap %d", len(evicted), historyCap)
	}

	// Index persists last so a failure here cannot reference an unwritten
	// record.
	return s.saveIndex(ctx, index)
}

// GetChats returns up to limit sessions from the front of the index,
// most-recently-saved first. A limit <= 0 uses MaxChatsInDrawer. Records
// that fail to load are skipped and logged, never raised.
func (s *Store) GetChats(ctx context.Context, limit int) ([]*Session, error) {
	timer := logging.StartTimer(logging.CategoryStore, "GetChats")
	defer timer.Stop()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.cfg.Get().MaxChatsInDrawer
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.loadIndex(ctx)
	if len(index) > limit {
		index = index[:limit]
	}

	sessions := make([]*Session, 0, len(index))
	for _, id := range index {
		res := s.load(ctx, id)
		if res.Status != ReadOk {
			logging.Get(logging.CategoryStore).Warn("Skipping unloadable session %s: %s", id, res.Reason)
			continue
		}
		sessions = append(sessions, res.Session)
	}
	return sessions, nil
}

// Load reads one session and reports the tagged outcome. An unreadable
// record is treated as corrupted: it is deleted from storage and index
// (self-healing) and the result is tagged ReadRepaired.
func (s *Store) Load(ctx context.Context, id string) ReadResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, id)
}

// GetChat is the convenience wrapper over Load: it returns the session
// and whether it exists, hiding the repaired/missing distinction.
func (s *Store) GetChat(ctx context.Context, id string) (*Session, bool) {
	res := s.Load(ctx, id)
	if res.Status != ReadOk {
		return nil, false
	}
	return res.Session, true
}

// load assumes s.mu is held.
func (s *Store) load(ctx context.Context, id string) ReadResult {
	raw, ok, err := s.kv.Get(ctx, sessionKey(id))
	if err != nil {
		// A record we cannot read is as good as corrupt; heal it away
		// so the index never references unreadable data.
		s.repair(ctx, id, fmt.Sprintf("read failed: %v", err))
		return ReadResult{Status: ReadRepaired, Reason: err.Error()}
	}
	if !ok {
		return ReadResult{Status: ReadNotFound}
	}

	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		s.repair(ctx, id, fmt.Sprintf("corrupt record: %v", err))
		return ReadResult{Status: ReadRepaired, Reason: err.Error()}
	}
	if session.Messages == nil {
		session.Messages = []Message{}
	}
	return ReadResult{Status: ReadOk, Session: &session}
}

// repair deletes a corrupted record and its index entry. Best-effort: a
// failed delete is logged, and the next read will try again.
func (s *Store) repair(ctx context.Context, id, reason string) {
	logging.Get(logging.CategoryStore).Warn("Repairing session %s: %s", id, reason)
	if err := s.kv.Remove(ctx, sessionKey(id)); err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to remove corrupt record %s: %v", id, err)
	}
	index := s.loadIndex(ctx)
	pruned := remove(index, id)
	if len(pruned) != len(index) {
		if err := s.saveIndex(ctx, pruned); err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to prune index entry %s: %v", id, err)
		}
	}
}

// DeleteChat removes the record and its index entry. Deleting an id that
// is not present is a no-op.
func (s *Store) DeleteChat(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, sessionKey(id)); err != nil {
		return err
	}
	index := s.loadIndex(ctx)
	pruned := remove(index, id)
	if len(pruned) == len(index) {
		return nil
	}
	logging.StoreDebug("Deleted session %s", id)
	return s.saveIndex(ctx, pruned)
}

// ClearAllChats deletes every record referenced by the index, then resets
// the index to empty.
func (s *Store) ClearAllChats(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.loadIndex(ctx)
	for _, id := range index {
		if err := s.kv.Remove(ctx, sessionKey(id)); err != nil {
			return err
		}
	}
	logging.Store("Cleared %d sessions", len(index))
	return s.saveIndex(ctx, []string{})
}

// SearchChats is the exact-substring fallback search: case-insensitive
// match on title or any message text over the MaxChatHistory most recent
// sessions. The fuzzy index in internal/search is the canonical ranked
// path; both share this title-or-message matching contract.
func (s *Store) SearchChats(ctx context.Context, query string) ([]*Session, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	sessions, err := s.GetChats(ctx, s.cfg.Get().MaxChatHistory)
	if err != nil {
		return nil, err
	}

	var matched []*Session
	for _, session := range sessions {
		if MatchesQuery(session, query) {
			matched = append(matched, session)
		}
	}
	logging.SearchDebug("Linear scan for %q matched %d of %d sessions", query, len(matched), len(sessions))
	return matched, nil
}

// MatchesQuery reports whether a session matches a lower-cased query by
// substring on its title or any message text.
func MatchesQuery(session *Session, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(session.Title), lowerQuery) {
		return true
	}
	for _, m := range session.Messages {
		if strings.Contains(strings.ToLower(m.Text), lowerQuery) {
			return true
		}
	}
	return false
}

// CurrentChatID returns the id of the active session, if one is set.
func (s *Store) CurrentChatID(ctx context.Context) (string, bool) {
	id, ok, err := s.kv.Get(ctx, keyCurrentChat)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("Failed to read current chat id: %v", err)
		return "", false
	}
	return id, ok && id != ""
}

// SetCurrentChatID records the active session id; an empty id clears it.
func (s *Store) SetCurrentChatID(ctx context.Context, id string) error {
	if id == "" {
		return s.kv.Remove(ctx, keyCurrentChat)
	}
	return s.kv.Set(ctx, keyCurrentChat, id)
}

// loadIndex returns the persisted index, or an empty one on any failure.
// Index corruption is recovered locally; it never aborts the caller.
func (s *Store) loadIndex(ctx context.Context) []string {
	raw, ok, err := s.kv.Get(ctx, keyIndex)
	if err != nil || !ok {
		if err != nil {
			logging.Get(logging.CategoryStore).Warn("Failed to load chat index: %v", err)
		}
		return []string{}
	}
	var index []string
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		logging.Get(logging.CategoryStore).Warn("Corrupt chat index, resetting: %v", err)
		return []string{}
	}
	return index
}

func (s *Store) saveIndex(ctx context.Context, index []string) error {
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to marshal chat index: %w", err)
	}
	return s.kv.Set(ctx, keyIndex, string(data))
}

// promote moves id to the front of the index, inserting it if absent.
// O(n) search-and-splice; fine at index sizes capped around 100-200.
func promote(index []string, id string) []string {
	out := make([]string, 0, len(index)+1)
	out = append(out, id)
	for _, existing := range index {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func remove(index []string, id string) []string {
	out := index[:0:0]
	for _, existing := range index {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}
