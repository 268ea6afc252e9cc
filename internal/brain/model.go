package brain

import (
	"context"

	"github.com/google/uuid"
)

type Mode int

const (
	ModeFast Mode = iota
	ModeFull
)

func (m Mode) String() string {
	if m == ModeFull {
		return "full"
	}
	return "fast"
}

func ModeFor(fast bool) Mode {
	if fast {
		return ModeFast
	}
	return ModeFull
}

// Models names the provider model used for each mode.
type Models struct {
	Fast string
	Full string
}

func (m Models) For(mode Mode) string {
	if mode == ModeFull {
		return m.Full
	}
	return m.Fast
}

// Turn is one prior message handed to a provider when a session is
// seeded. Role is "user" or "model".
type Turn struct {
	Role string
	Text string
}

const (
	TurnUser  = "user"
	TurnModel = "model"
)

// Model is a language model provider. Implementations must be safe to
// call from one goroutine at a time; the Engine serializes its calls.
type Model interface {
	// StartSession opens a conversational session for mode, seeded with
	// history in chronological order.
	StartSession(ctx context.Context, mode Mode, history []Turn) (Session, error)
	// Generate answers input with no prior turns.
	Generate(ctx context.Context, mode Mode, input string) (string, error)
}

// Session keeps its own turn history on the provider side and is bound
// to the mode it was created for.
type Session interface {
	ID() uuid.UUID
	Mode() Mode
	Send(ctx context.Context, input string) (string, error)
}
