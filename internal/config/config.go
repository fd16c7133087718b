// Package config supplies the tunable limits of the chat history core.
// The config blob is persisted through the KV adapter and loaded lazily;
// a failed load must never block startup, so it falls back to defaults.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"fitcoach/internal/logging"
	"fitcoach/internal/storage"
)

// KeyChatConfig is the persistence key for the serialized config blob.
const KeyChatConfig = "chat_config"

// ChatConfig holds the tunable limits for chat history and search.
type ChatConfig struct {
	MaxChatsInDrawer     int  `json:"maxChatsInDrawer"`
	MaxChatHistory       int  `json:"maxChatHistory"`
	SearchDebounceMs     int  `json:"searchDebounceMs"`
	AutoSaveIntervalMs   int  `json:"autoSaveIntervalMs"`
	EnableSearchIndexing bool `json:"enableSearchIndexing"`
}

// Default returns the built-in configuration.
func Default() ChatConfig {
	return ChatConfig{
		MaxChatsInDrawer:     20,
		MaxChatHistory:       100,
		SearchDebounceMs:     300,
		AutoSaveIntervalMs:   5000,
		EnableSearchIndexing: true,
	}
}

// Validate checks that the limits are usable.
func (c ChatConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MaxChatsInDrawer, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxChatHistory, validation.Required, validation.Min(1)),
		validation.Field(&c.SearchDebounceMs, validation.Min(0)),
		validation.Field(&c.AutoSaveIntervalMs, validation.Min(0)),
	)
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	MaxChatsInDrawer     *int
	MaxChatHistory       *int
	SearchDebounceMs     *int
	AutoSaveIntervalMs   *int
	EnableSearchIndexing *bool
}

func (p Patch) apply(c ChatConfig) ChatConfig {
	if p.MaxChatsInDrawer != nil {
		c.MaxChatsInDrawer = *p.MaxChatsInDrawer
	}
	if p.MaxChatHistory != nil {
		c.MaxChatHistory = *p.MaxChatHistory
	}
	if p.SearchDebounceMs != nil {
		c.SearchDebounceMs = *p.SearchDebounceMs
	}
	if p.AutoSaveIntervalMs != nil {
		c.AutoSaveIntervalMs = *p.AutoSaveIntervalMs
	}
	if p.EnableSearchIndexing != nil {
		c.EnableSearchIndexing = *p.EnableSearchIndexing
	}
	return c
}

// Provider owns the process-wide config value. Construct one per process
// and pass it to consumers; there is no package-level singleton.
type Provider struct {
	kv     storage.KV
	mu     sync.RWMutex
	cfg    ChatConfig
	loaded bool
}

// NewProvider returns a Provider over the given KV store. The config is
// defaults-only until Initialize is called.
func NewProvider(kv storage.KV) *Provider {
	return &Provider{kv: kv, cfg: Default()}
}

// Initialize loads the persisted config on first call. Read or parse
// failures keep the defaults and are only logged; startup never fails here.
// Subsequent calls are no-ops.
func (p *Provider) Initialize(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loaded {
		return
	}
	p.loaded = true

	raw, ok, err := p.kv.Get(ctx, KeyChatConfig)
	if err != nil {
		logging.Get(logging.CategoryConfig).Warn("Failed to load chat config, using defaults: %v", err)
		return
	}
	if !ok {
		logging.ConfigDebug("No persisted chat config, using defaults")
		return
	}

	var cfg ChatConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		logging.Get(logging.CategoryConfig).Warn("Corrupt chat config, using defaults: %v", err)
		return
	}
	if err := cfg.Validate(); err != nil {
		logging.Get(logging.CategoryConfig).Warn("Invalid persisted chat config, using defaults: %v", err)
		return
	}
	p.cfg = cfg
	logging.ConfigDebug("Loaded chat config: %+v", cfg)
}

// Get returns a copy of the current config.
func (p *Provider) Get() ChatConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cfg
}

// Update merges the patch into the current config and persists the result.
// The in-memory value is updated even when the persist fails, so callers
// must not assume atomicity between memory and disk.
func (p *Provider) Update(ctx context.Context, patch Patch) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := patch.apply(p.cfg)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("invalid chat config: %w", err)
	}
	p.cfg = next
	if err := p.persist(ctx); err != nil {
		return fmt.Errorf("failed to persist chat config: %w", err)
	}
	logging.ConfigDebug("Updated chat config: %+v", next)
	return nil
}

// Reset restores the defaults and persists them.
func (p *Provider) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cfg = Default()
	if err := p.persist(ctx); err != nil {
		return fmt.Errorf("failed to persist chat config: %w", err)
	}
	return nil
}

func (p *Provider) persist(ctx context.Context) error {
	data, err := json.Marshal(p.cfg)
	if err != nil {
		return err
	}
	return p.kv.Set(ctx, KeyChatConfig, string(data))
}
