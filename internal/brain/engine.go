// Package brain turns user utterances into Alfred's replies and keeps the
// short-term conversation memory.
package brain

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
)

const (
	// FallbackReply is returned whenever the model call fails.
	FallbackReply = "I hit a snag processing that. Try again?"

	DefaultHistoryExchanges = 20
)

var ErrEmptyReply = errors.New("empty reply")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Entry struct {
	Role    Role
	Content string
}

type Option func(*Engine)

func WithMode(mode Mode) Option {
	return func(e *Engine) { e.mode = mode }
}

// WithHistoryLimit bounds History to the most recent n exchanges.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.limit = 2 * n
		}
	}
}

// Engine owns the bounded History and at most one live Session.
type Engine struct {
	mu sync.Mutex

	model   Model
	mode    Mode
	limit   int
	history []Entry
	session Session
}

func NewEngine(model Model, opts ...Option) *Engine {
	e := &Engine{
		model: model,
		mode:  ModeFast,
		limit: 2 * DefaultHistoryExchanges,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type thinkOptions struct {
	history bool
	record  bool
	mode    *Mode
}

type ThinkOption func(*thinkOptions)

// WithoutHistory makes a single stateless call.
func WithoutHistory() ThinkOption {
	return func(o *thinkOptions) { o.history = false }
}

// WithFast overrides the standing mode for one call.
func WithFast(fast bool) ThinkOption {
	return func(o *thinkOptions) {
		m := ModeFor(fast)
		o.mode = &m
	}
}

// Think returns Alfred's reply to input. It never fails: any model error
// is logged and FallbackReply is returned instead.
func (e *Engine) Think(ctx context.Context, input string, opts ...ThinkOption) string {
	o := thinkOptions{history: true, record: true}
	for _, opt := range opts {
		opt(&o)
	}
	return e.think(ctx, input, o)
}

// ThinkWithContext answers input with extra context placed ahead of it.
// These calls neither read nor extend History.
func (e *Engine) ThinkWithContext(ctx context.Context, input, extra string) string {
	prompt := fmt.Sprintf(contextPrompt, extra, input)
	return e.think(ctx, prompt, thinkOptions{})
}

func (e *Engine) think(ctx context.Context, input string, o thinkOptions) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	mode := e.mode
	if o.mode != nil {
		mode = *o.mode
	}

	reply, viaSession, err := e.complete(ctx, input, mode, o.history)
	if err != nil {
		log.Error("Reasoning failed", "mode", mode, "err", err)
		return FallbackReply
	}

	if o.record {
		if !viaSession {
			// The live session never saw this exchange.
			e.session = nil
		}
		e.history = append(e.history,
			Entry{Role: RoleUser, Content: input},
			Entry{Role: RoleAssistant, Content: reply},
		)
		if over := len(e.history) - e.limit; over > 0 {
			e.history = append([]Entry(nil), e.history[over:]...)
		}
	}

	return reply
}

func (e *Engine) complete(ctx context.Context, input string, mode Mode, useHistory bool) (reply string, viaSession bool, err error) {
	var raw string

	viaSession = useHistory && len(e.history) > 0
	if viaSession {
		if e.session == nil || e.session.Mode() != mode {
			e.session, err = e.model.StartSession(ctx, mode, e.turns())
			if err != nil {
				e.session = nil
				return "", true, fmt.Errorf("start session: %w", err)
			}
			log.Debug("Session started", "id", e.session.ID(), "mode", mode, "turns", len(e.history))
		}

		raw, err = e.session.Send(ctx, input)
		if err != nil {
			// History stays authoritative; the next turn reseeds from it.
			e.session = nil
			return "", true, fmt.Errorf("send: %w", err)
		}
	} else {
		raw, err = e.model.Generate(ctx, mode, input)
		if err != nil {
			return "", false, fmt.Errorf("generate: %w", err)
		}
	}

	reply = strings.TrimSpace(raw)
	if reply == "" {
		return "", viaSession, ErrEmptyReply
	}
	return reply, viaSession, nil
}

func (e *Engine) turns() []Turn {
	turns := make([]Turn, 0, len(e.history))
	for _, h := range e.history {
		role := TurnModel
		if h.Role == RoleUser {
			role = TurnUser
		}
		turns = append(turns, Turn{Role: role, Text: h.Content})
	}
	return turns
}

func (e *Engine) ClearHistory() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.history = nil
	e.session = nil
	log.Info("Conversation history cleared")
}

// SetMode switches the standing mode. History is kept; the session is
// dropped so the next turn reseeds one for the new mode.
func (e *Engine) SetMode(fast bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.mode = ModeFor(fast)
	e.session = nil
	log.Info("Switched mode", "mode", e.mode)
}

func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *Engine) History() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Entry(nil), e.history...)
}
