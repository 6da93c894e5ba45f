// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package turn runs streaming chat turns against the conversation store.
package turn

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/jeranaias/lumenarc/internal/completion"
	"github.com/jeranaias/lumenarc/internal/logger"
	"github.com/jeranaias/lumenarc/internal/model"
	"github.com/jeranaias/lumenarc/internal/store"
)

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller orchestrates turns. At most one turn runs per conversation;
// turns in different conversations are independent.
type Controller struct {
	store           *store.Store
	svc             completion.Service
	reasoningBudget int
	observer        Observer
	log             *slog.Logger

	mu     sync.Mutex
	active map[string]*Handle
	wg     sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithObserver receives every turn event.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithReasoningBudget sets the thinking budget sent with pro turns.
func WithReasoningBudget(n int) Option {
	return func(c *Controller) { c.reasoningBudget = n }
}

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// NewController creates a controller writing into st and reading from svc.
func NewController(st *store.Store, svc completion.Service, opts ...Option) *Controller {
	c := &Controller{
		store:           st,
		svc:             svc,
		reasoningBudget: completion.DefaultReasoningBudget,
		log:             slog.Default(),
		active:          make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "turn")
	return c
}

// SetObserver replaces the observer. Call it before starting turns.
func (c *Controller) SetObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observer = o
}

// Active reports whether a turn is streaming in the conversation.
func (c *Controller) Active(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[conversationID]
	return ok
}

// Cancel stops the conversation's turn, keeping what has streamed so far.
// It reports whether a turn was running.
func (c *Controller) Cancel(conversationID string) bool {
	c.mu.Lock()
	h, ok := c.active[conversationID]
	c.mu.Unlock()
	if ok {
		h.Cancel()
	}
	return ok
}

// Shutdown cancels every running turn and waits for them to settle.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	handles := make([]*Handle, 0, len(c.active))
	for _, h := range c.active {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	c.wg.Wait()
}

// Run starts a turn and blocks until it settles.
func (c *Controller) Run(ctx context.Context, in Input) (Result, error) {
	h, err := c.Start(ctx, in)
	if err != nil {
		return Result{}, err
	}
	return h.Wait(), nil
}

// Start validates the input, appends the user message and the assistant
// placeholder in one store update, and streams the response on a new
// goroutine. Cancelling ctx cancels the turn.
func (c *Controller) Start(ctx context.Context, in Input) (*Handle, error) {
	if strings.TrimSpace(in.Text) == "" && len(in.Attachments) == 0 {
		return nil, ErrEmptyTurn
	}

	c.mu.Lock()
	if _, busy := c.active[in.ConversationID]; busy {
		c.mu.Unlock()
		return nil, ErrTurnInProgress
	}

	// History is taken before the new pair goes in; the request adds the
	// new user turn itself.
	history := c.store.History(in.ConversationID)
	if history == nil && !c.store.Exists(in.ConversationID) {
		c.mu.Unlock()
		return nil, ErrUnknownConversation
	}

	variant := model.SelectVariant(in.ExtendedReasoning)
	user := model.NewUserMessage(in.ConversationID, in.Text, in.Attachments, variant)
	reply := model.NewAssistantPlaceholder(in.ConversationID, variant)
	if !c.store.Append(in.ConversationID, user, reply) {
		c.mu.Unlock()
		return nil, ErrUnknownConversation
	}

	turnCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		ConversationID:     in.ConversationID,
		UserMessageID:      user.ID,
		AssistantMessageID: reply.ID,
		Variant:            variant,
		cancel:             cancel,
		done:               make(chan struct{}),
	}
	h.state.Store(int32(StateComposingRequest))
	c.active[in.ConversationID] = h
	observer := c.observer
	c.wg.Add(1)
	c.mu.Unlock()

	c.log.Debug("turn started", "conversation", in.ConversationID, "variant", variant,
		"web_search", in.WebSearch, "attachments", len(in.Attachments))
	emit(observer, Event{Kind: EventStarted, ConversationID: h.ConversationID, AssistantMessageID: h.AssistantMessageID})

	go c.run(turnCtx, h, observer, history, in)
	return h, nil
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

func (c *Controller) run(ctx context.Context, h *Handle, observer Observer, history []*model.Message, in Input) {
	defer c.wg.Done()

	res := Result{
		ConversationID:     h.ConversationID,
		UserMessageID:      h.UserMessageID,
		AssistantMessageID: h.AssistantMessageID,
		Variant:            h.Variant,
	}

	// Finalization runs on every path, including a panicking provider.
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("turn panicked", "conversation", h.ConversationID, "panic", r)
			res.State = StateFailed
			if res.Err == nil {
				res.Err = panicError{r}
			}
		}
		c.finalize(h, &res)
		h.cancel()

		c.mu.Lock()
		if c.active[h.ConversationID] == h {
			delete(c.active, h.ConversationID)
		}
		c.mu.Unlock()

		emit(observer, Event{Kind: EventFinished, ConversationID: h.ConversationID, AssistantMessageID: h.AssistantMessageID, Result: res})
		h.finish(res)
	}()

	req := completion.NewRequest(history, completion.Turn{Text: in.Text, Attachments: in.Attachments}, completion.Options{
		Variant:         h.Variant,
		Temperature:     in.Temperature,
		Grounding:       in.WebSearch,
		ReasoningBudget: c.reasoningBudget,
	})

	res.State, res.Err = c.consume(ctx, h, observer, req)
	if res.State == StateCancelled && !c.store.Exists(h.ConversationID) {
		res.Orphaned = true
	}
}

// consume drives the stream into the store and returns the terminal state.
func (c *Controller) consume(ctx context.Context, h *Handle, observer Observer, req completion.Request) (State, error) {
	stream, err := c.svc.Stream(ctx, req)
	if err != nil {
		if h.cancelled.Load() || completion.Canceled(ctx, err) {
			return StateCancelled, nil
		}
		return StateFailed, err
	}
	defer stream.Close()

	h.state.Store(int32(StateStreaming))
	for stream.Next() {
		// A chunk that arrives after the stop signal is dropped.
		if h.cancelled.Load() || ctx.Err() != nil {
			return StateCancelled, nil
		}
		if !c.store.Exists(h.ConversationID) {
			// Nothing left to write into; stop pulling from the provider.
			c.log.Debug("conversation deleted mid-stream, abandoning turn", "conversation", h.ConversationID)
			return StateCancelled, nil
		}

		chunk := stream.Chunk()
		c.store.AppendContent(h.ConversationID, h.AssistantMessageID, chunk.Text)
		c.store.ReplaceCitations(h.ConversationID, h.AssistantMessageID, chunk.Citations)
		emit(observer, Event{Kind: EventChunk, ConversationID: h.ConversationID, AssistantMessageID: h.AssistantMessageID, Chunk: chunk})
	}

	if h.cancelled.Load() || ctx.Err() != nil {
		return StateCancelled, nil
	}
	if err := stream.Err(); err != nil {
		return StateFailed, err
	}
	return StateCompleted, nil
}

// finalize settles the assistant message and derives the title.
func (c *Controller) finalize(h *Handle, res *Result) {
	h.state.Store(int32(StateFinalizing))

	switch res.State {
	case StateFailed:
		c.log.Warn("turn failed", "conversation", h.ConversationID, "provider", c.svc.Name(), logger.Err(res.Err))
		c.store.Fail(h.ConversationID, h.AssistantMessageID, ApologyMessage)
	default:
		c.store.SetStatus(h.ConversationID, h.AssistantMessageID, model.StatusDone)
	}
	c.store.Touch(h.ConversationID)
	c.deriveTitle(h.ConversationID)
	c.store.Flush()

	c.log.Debug("turn settled", "conversation", h.ConversationID, "state", res.State)
}

// deriveTitle names a conversation after its first user message once it has
// a reply. Conversations with a user-chosen title are left alone.
func (c *Controller) deriveTitle(conversationID string) {
	conv := c.store.Get(conversationID)
	if conv == nil || !conv.HasDefaultTitle() || conv.MessageCount() <= 1 {
		return
	}
	first := conv.FirstUserMessage()
	if first == nil {
		return
	}
	if title := model.DeriveTitle(first.Content); title != "" {
		c.store.Rename(conversationID, title)
	}
}

func emit(o Observer, ev Event) {
	if o != nil {
		o(ev)
	}
}
