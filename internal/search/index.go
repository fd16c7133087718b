// Package search provides the fuzzy lookup layer over the chat store.
// The index is rebuilt wholesale from the store on initialize/refresh
// rather than maintained incrementally: the history cap bounds the corpus
// to ~100 sessions, so an O(n) rebuild is cheap and avoids stale-entry
// bug classes. Callers must refresh after mutations they want reflected.
package search

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"

	"fitcoach/internal/chat"
	"fitcoach/internal/config"
	"fitcoach/internal/logging"
)

// Field weights for relevance scoring.
const (
	weightTitle   = 0.4
	weightBody    = 0.3
	weightPreview = 0.3
)

// SessionSource is the slice of the chat store the index reads from.
type SessionSource interface {
	GetChats(ctx context.Context, limit int) ([]*chat.Session, error)
}

// entry is one indexed session with its precomputed searchable fields.
type entry struct {
	id      string
	title   string
	body    string
	preview string
}

// Index is the in-memory fuzzy index over session titles, message bodies,
// and preview text.
type Index struct {
	source SessionSource
	cfg    *config.Provider

	mu          sync.RWMutex
	entries     []entry
	sessions    map[string]*chat.Session
	initialized bool
}

// NewIndex wires an index over the given session source.
func NewIndex(source SessionSource, cfg *config.Provider) *Index {
	return &Index{source: source, cfg: cfg}
}

// Initialize builds the index on first call; later calls are no-ops.
// With indexing disabled in config, the index stays empty and Search
// always returns nil.
func (i *Index) Initialize(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.initialized {
		return nil
	}
	i.initialized = true

	if !i.cfg.Get().EnableSearchIndexing {
		logging.SearchDebug("Search indexing disabled, leaving index unbuilt")
		return nil
	}
	return i.rebuild(ctx)
}

// RefreshIndex unconditionally rebuilds the index from the store's
// current state. Mutation sites must call this for their changes to be
// searchable; the index is not kept live in sync with store writes.
func (i *Index) RefreshIndex(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.initialized = true

	if !i.cfg.Get().EnableSearchIndexing {
		i.entries = nil
		i.sessions = nil
		return nil
	}
	return i.rebuild(ctx)
}

// rebuild assumes i.mu is held.
func (i *Index) rebuild(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategorySearch, "rebuild")
	defer timer.Stop()

	sessions, err := i.source.GetChats(ctx, i.cfg.Get().MaxChatHistory)
	if err != nil {
		return err
	}

	entries := make([]entry, 0, len(sessions))
	byID := make(map[string]*chat.Session, len(sessions))
	for _, s := range sessions {
		if _, dup := byID[s.ID]; dup {
			continue
		}
		var body strings.Builder
		for n, m := range s.Messages {
			if n > 0 {
				body.WriteByte(' ')
			}
			body.WriteString(m.Text)
		}
		entries = append(entries, entry{
			id:      s.ID,
			title:   s.Title,
			body:    body.String(),
			preview: s.Meta.LastMessagePreview,
		})
		byID[s.ID] = s
	}

	i.entries = entries
	i.sessions = byID
	logging.SearchDebug("Rebuilt search index with %d sessions", len(entries))
	return nil
}

// fieldSource adapts one entry field to fuzzy.Source.
type fieldSource struct {
	entries []entry
	field   func(entry) string
}

func (f fieldSource) String(n int) string { return f.field(f.entries[n]) }
func (f fieldSource) Len() int            { return len(f.entries) }

// Search returns sessions matching the query, deduplicated by id and
// ranked by descending weighted relevance. An empty or whitespace query
// returns nil immediately. Failures degrade to an empty result set;
// search is an enhancement over the authoritative store, never a blocker.
func (i *Index) Search(ctx context.Context, query string) []*chat.Session {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	// Lazy build for callers that search before initializing.
	if !i.Initialized() {
		if err := i.Initialize(ctx); err != nil {
			logging.Get(logging.CategorySearch).Warn("Search index build failed: %v", err)
			return nil
		}
	}

	i.mu.RLock()
	defer i.mu.RUnlock()
	if len(i.entries) == 0 {
		return nil
	}

	scores := make(map[string]float64)
	fields := []struct {
		weight float64
		field  func(entry) string
	}{
		{weightTitle, func(e entry) string { return e.title }},
		{weightBody, func(e entry) string { return e.body }},
		{weightPreview, func(e entry) string { return e.preview }},
	}
	for _, f := range fields {
		matches := fuzzy.FindFrom(query, fieldSource{entries: i.entries, field: f.field})
		for _, m := range matches {
			scores[i.entries[m.Index].id] += f.weight * float64(m.Score)
		}
	}

	// Rank by score descending; ties keep index (recency) order.
	ranked := make([]string, 0, len(scores))
	for _, e := range i.entries {
		if _, ok := scores[e.id]; ok {
			ranked = append(ranked, e.id)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]] > scores[ranked[b]]
	})

	results := make([]*chat.Session, 0, len(ranked))
	for _, id := range ranked {
		results = append(results, i.sessions[id])
	}
	logging.SearchDebug("Fuzzy search for %q returned %d results", query, len(results))
	return results
}

// Size returns the number of indexed sessions.
func (i *Index) Size() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

// Initialized reports whether Initialize or RefreshIndex has run.
func (i *Index) Initialized() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.initialized
}
