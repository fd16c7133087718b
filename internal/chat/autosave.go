package chat

import (
	"context"
	"sync"
	"time"

	"fitcoach/internal/logging"
)

// AutoSaver persists a session a fixed delay after the last edit, using a
// single cancel-and-reschedule timer: a new edit cancels the pending save
// and arms a fresh one, so at most one save is pending per saver.
type AutoSaver struct {
	store     *Store
	debouncer *Debouncer

	mu      sync.Mutex
	pending *Session
}

// NewAutoSaver creates an auto-saver flushing through the given store.
func NewAutoSaver(store *Store, interval time.Duration) *AutoSaver {
	return &AutoSaver{
		store:     store,
		debouncer: NewDebouncer(interval),
	}
}

// Schedule arms (or re-arms) the save timer for the session.
func (a *AutoSaver) Schedule(session *Session) {
	a.mu.Lock()
	a.pending = session
	a.mu.Unlock()

	a.debouncer.Debounce(a.fire)
}

func (a *AutoSaver) fire() {
	a.mu.Lock()
	session := a.pending
	a.pending = nil
	a.mu.Unlock()

	if session == nil {
		return
	}
	if err := a.store.SaveChat(context.Background(), session); err != nil {
		logging.Get(logging.CategoryStore).Error("Auto-save failed for session %s: %v", session.ID, err)
		return
	}
	logging.StoreDebug("Auto-saved session %s", session.ID)
}

// Flush cancels the pending timer and saves the session immediately.
func (a *AutoSaver) Flush(ctx context.Context, session *Session) error {
	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()

	var err error
	a.debouncer.Immediate(func() {
		err = a.store.SaveChat(ctx, session)
	})
	return err
}

// Stop cancels any pending save without firing it.
func (a *AutoSaver) Stop() {
	a.debouncer.Cancel()
	a.mu.Lock()
	a.pending = nil
	a.mu.Unlock()
}
