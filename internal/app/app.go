// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app assembles the LumenArc runtime from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/jeranaias/lumenarc/internal/attachment"
	"github.com/jeranaias/lumenarc/internal/completion"
	"github.com/jeranaias/lumenarc/internal/config"
	"github.com/jeranaias/lumenarc/internal/gemini"
	"github.com/jeranaias/lumenarc/internal/kv"
	"github.com/jeranaias/lumenarc/internal/logger"
	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/ollama"
	"github.com/jeranaias/lumenarc/internal/openaicompat"
	"github.com/jeranaias/lumenarc/internal/settings"
	"github.com/jeranaias/lumenarc/internal/store"
	"github.com/jeranaias/lumenarc/internal/turn"
)

// App is one running LumenArc session: storage, settings, the conversation
// store, the provider and the turn controller.
type App struct {
	Config      *config.Config
	KV          kv.Store
	Settings    *settings.Manager
	Store       *store.Store
	Provider    completion.Service
	Controller  *turn.Controller
	Attachments *attachment.Encoder

	// backend is Provider before rate limiting.
	backend completion.Service
	log     *slog.Logger
}

// Option adjusts how New assembles the App.
type Option func(*options)

type options struct {
	provider completion.Service
	kv       kv.Store
	now      func() time.Time
}

// WithProvider uses svc instead of the configured provider.
func WithProvider(svc completion.Service) Option {
	return func(o *options) { o.provider = svc }
}

// WithKV uses an already open store instead of the configured backend. The
// App takes ownership and closes it.
func WithKV(s kv.Store) Option {
	return func(o *options) { o.kv = s }
}

// WithClock sets the store clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New opens storage, loads settings, prepares the conversation list and
// wires the provider into a turn controller.
//
// On first start, or whenever persistence is off, the list holds only the
// welcome conversation.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	log := slog.Default().With("component", "app")

	db := o.kv
	if db == nil {
		path, err := cfg.StoragePath()
		if err != nil {
			return nil, err
		}
		db, err = kv.Open(cfg.Storage.Backend, path)
		if err != nil {
			return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
		}
		log.Debug("storage opened", "backend", cfg.Storage.Backend, "path", path)
	}

	a := &App{
		Config:      cfg,
		KV:          db,
		Attachments: attachment.NewEncoder(cfg.Attachments.MaxBytes),
		log:         log,
	}

	a.Settings = settings.NewManager(db, slog.Default())
	if _, err := a.Settings.Load(ctx); err != nil {
		log.Warn("using default settings", logger.Err(err))
	}

	storeOpts := []store.Option{store.WithLogger(slog.Default())}
	if o.now != nil {
		storeOpts = append(storeOpts, store.WithClock(o.now))
	}
	if cfg.Storage.PersistConversations {
		storeOpts = append(storeOpts, store.WithSnapshotter(store.NewKVSnapshot(db)))
	}
	a.Store = store.New(storeOpts...)

	restored := 0
	if cfg.Storage.PersistConversations {
		n, err := a.Store.Restore()
		if err != nil {
			log.Warn("could not restore conversations", logger.Err(err))
		}
		restored = n
	}
	if restored == 0 {
		a.Store.SeedWelcome()
	}

	a.Provider = o.provider
	if a.Provider == nil {
		svc, err := NewProvider(cfg.Provider)
		if err != nil {
			db.Close()
			return nil, err
		}
		a.Provider = svc
	}
	a.backend = a.Provider
	a.Provider = completion.WithRateLimit(a.Provider, cfg.Provider.RequestsPerMinute)

	a.Controller = turn.NewController(a.Store, a.Provider,
		turn.WithReasoningBudget(cfg.Provider.ThinkingBudget),
		turn.WithLogger(slog.Default()),
	)
	return a, nil
}

// NewProvider builds the completion service named in the config.
func NewProvider(p config.ProviderConfig) (completion.Service, error) {
	log := slog.Default()
	switch p.Name {
	case config.ProviderGemini, "":
		return gemini.NewClientWithConfig(&gemini.ClientConfig{
			APIKey:     p.APIKey,
			BaseURL:    p.BaseURL,
			FlashModel: p.FlashModel,
			ProModel:   p.ProModel,
			Logger:     log,
		}), nil
	case config.ProviderOpenAI:
		return openaicompat.NewClient(openaicompat.ClientConfig{
			APIKey:     p.APIKey,
			BaseURL:    p.BaseURL,
			FlashModel: p.FlashModel,
			ProModel:   p.ProModel,
			Logger:     log,
		}), nil
	case config.ProviderOllama:
		return ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL:    p.BaseURL,
			FlashModel: p.FlashModel,
			ProModel:   p.ProModel,
			Logger:     log,
		}), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", p.Name)
	}
}

// Input builds a turn input for a conversation using the current settings
// as capability defaults.
func (a *App) Input(conversationID, text string, atts []model.Attachment) turn.Input {
	s := a.Settings.Get()
	in := turn.Input{
		ConversationID:    conversationID,
		Text:              text,
		WebSearch:         s.WebSearchDefault,
		ExtendedReasoning: s.ThinkingModeDefault,
		Temperature:       s.Temperature,
		Attachments:       atts,
	}
	return in
}

// Close stops running turns, flushes conversations and closes storage.
func (a *App) Close() error {
	var result *multierror.Error
	if a.Controller != nil {
		a.Controller.Shutdown()
	}
	if a.Store != nil {
		a.Store.Flush()
	}
	if a.KV != nil {
		if err := a.KV.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close storage: %w", err))
		}
	}
	return result.ErrorOrNil()
}
