package brain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	id    uuid.UUID
	mode  Mode
	model *stubModel
	sent  []string
}

func (s *stubSession) ID() uuid.UUID { return s.id }
func (s *stubSession) Mode() Mode    { return s.mode }

func (s *stubSession) Send(_ context.Context, input string) (string, error) {
	s.sent = append(s.sent, input)
	if s.model.err != nil {
		return "", s.model.err
	}
	return s.model.reply(input), nil
}

type stubModel struct {
	err      error
	replyFor func(string) string

	sessions  []*stubSession
	seeds     [][]Turn
	generated []string
	genModes  []Mode
}

func (m *stubModel) reply(input string) string {
	if m.replyFor != nil {
		return m.replyFor(input)
	}
	return "  re: " + input + "\n"
}

func (m *stubModel) StartSession(_ context.Context, mode Mode, history []Turn) (Session, error) {
	s := &stubSession{id: uuid.New(), mode: mode, model: m}
	m.sessions = append(m.sessions, s)
	m.seeds = append(m.seeds, append([]Turn(nil), history...))
	return s, nil
}

func (m *stubModel) Generate(_ context.Context, mode Mode, input string) (string, error) {
	m.generated = append(m.generated, input)
	m.genModes = append(m.genModes, mode)
	if m.err != nil {
		return "", m.err
	}
	return m.reply(input), nil
}

func TestThinkTrimsReplyAndRecordsExchange(t *testing.T) {
	m := &stubModel{}
	e := NewEngine(m)

	reply := e.Think(context.Background(), "hello")

	assert.Equal(t, "re: hello", reply)
	assert.Equal(t, []Entry{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "re: hello"},
	}, e.History())
	// empty history means a stateless call
	assert.Equal(t, []string{"hello"}, m.generated)
	assert.Empty(t, m.sessions)
}

func TestHistoryIsBounded(t *testing.T) {
	m := &stubModel{}
	e := NewEngine(m)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		prior := len(e.History())
		e.Think(ctx, fmt.Sprintf("q%d", i))
		assert.Len(t, e.History(), min(prior+2, 40))
	}

	h := e.History()
	require.Len(t, h, 40)
	assert.Equal(t, Entry{Role: RoleUser, Content: "q10"}, h[0])
	assert.Equal(t, Entry{Role: RoleAssistant, Content: "re: q29"}, h[39])
}

func TestHistoryLimitOption(t *testing.T) {
	e := NewEngine(&stubModel{}, WithHistoryLimit(2))
	for i := 0; i < 5; i++ {
		e.Think(context.Background(), fmt.Sprintf("q%d", i))
	}

	h := e.History()
	require.Len(t, h, 4)
	assert.Equal(t, "q3", h[0].Content)
}

func TestSessionIsReusedAcrossTurns(t *testing.T) {
	m := &stubModel{}
	e := NewEngine(m)
	ctx := context.Background()

	e.Think(ctx, "one")
	e.Think(ctx, "two")
	e.Think(ctx, "three")

	require.Len(t, m.sessions, 1)
	assert.Equal(t, []string{"two", "three"}, m.sessions[0].sent)
	assert.Equal(t, []Turn{
		{Role: TurnUser, Text: "one"},
		{Role: TurnModel, Text: "re: one"},
	}, m.seeds[0])
}

func TestClearHistoryDropsPriorExchanges(t *testing.T) {
	m := &stubModel{}
	e := NewEngine(m)
	ctx := context.Background()

	e.Think(ctx, "secret plan")
	e.Think(ctx, "more about the plan")
	require.Len(t, m.sessions, 1)

	e.ClearHistory()
	assert.Empty(t, e.History())

	e.Think(ctx, "fresh start")
	e.Think(ctx, "follow up")

	require.Len(t, m.sessions, 2)
	for _, turn := range m.seeds[1] {
		assert.NotContains(t, turn.Text, "plan")
	}
	assert.Equal(t, []string{"follow up"}, m.sessions[1].sent)
}

func TestSetModeInvalidatesSession(t *testing.T) {
	m := &stubModel{}
	e := NewEngine(m, WithMode(ModeFast))
	ctx := context.Background()

	e.Think(ctx, "one")
	e.Think(ctx, "two")
	require.Len(t, m.sessions, 1)
	first := m.sessions[0]
	assert.Equal(t, ModeFast, first.Mode())

	e.SetMode(false)
	assert.Equal(t, ModeFull, e.Mode())
	// history text survives a mode switch
	assert.Len(t, e.History(), 4)

	e.Think(ctx, "three")

	require.Len(t, m.sessions, 2)
	second := m.sessions[1]
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, ModeFull, second.Mode())
	assert.Equal(t, []string{"three"}, second.sent)
	assert.Len(t, m.seeds[1], 4)
}

func TestModeOverrideIsPerCall(t *testing.T) {
	m := &stubModel{}
	e := NewEngine(m, WithMode(ModeFast))
	ctx := context.Background()

	e.Think(ctx, "one", WithFast(false))
	assert.Equal(t, []Mode{ModeFull}, m.genModes)
	assert.Equal(t, ModeFast, e.Mode())

	e.Think(ctx, "two")
	e.Think(ctx, "three", WithFast(false))

	require.Len(t, m.sessions, 2)
	assert.Equal(t, ModeFast, m.sessions[0].Mode())
	assert.Equal(t, ModeFull, m.sessions[1].Mode())
	assert.Equal(t, []string{"three"}, m.sessions[1].sent)
}

func TestThinkWithoutHistory(t *testing.T) {
	m := &stubModel{}
	e := NewEngine(m)
	ctx := context.Background()

	e.Think(ctx, "one")
	e.Think(ctx, "two")
	require.Len(t, m.sessions, 1)

	e.Think(ctx, "aside", WithoutHistory())
	assert.Equal(t, []string{"one", "aside"}, m.generated)
	assert.Len(t, e.History(), 6)

	// the next history turn reseeds so the aside is included
	e.Think(ctx, "three")
	require.Len(t, m.sessions, 2)
	assert.Len(t, m.seeds[1], 6)
}

func TestFailureReturnsFallback(t *testing.T) {
	m := &stubModel{err: errors.New("quota exceeded")}
	e := NewEngine(m)

	assert.Equal(t, FallbackReply, e.Think(context.Background(), "hello"))
	assert.Empty(t, e.History())
}

func TestSessionFailureReseedsNextTurn(t *testing.T) {
	m := &stubModel{}
	e := NewEngine(m)
	ctx := context.Background()

	e.Think(ctx, "one")
	m.err = errors.New("connection reset")
	assert.Equal(t, FallbackReply, e.Think(ctx, "two"))
	assert.Len(t, e.History(), 2)

	m.err = nil
	assert.Equal(t, "re: three", e.Think(ctx, "three"))
	assert.Len(t, m.sessions, 2)
}

func TestEmptyReplyIsFailure(t *testing.T) {
	m := &stubModel{replyFor: func(string) string { return " \n " }}
	e := NewEngine(m)

	assert.Equal(t, FallbackReply, e.Think(context.Background(), "hello"))
	assert.Empty(t, e.History())
}

func TestThinkWithContext(t *testing.T) {
	m := &stubModel{}
	e := NewEngine(m)
	ctx := context.Background()

	e.Think(ctx, "one")
	e.Think(ctx, "two")

	reply := e.ThinkWithContext(ctx, "what next?", "Runs a small bakery.")

	want := "Context about the user:\nRuns a small bakery.\n\nUser's message:\nwhat next?"
	assert.Equal(t, "re: "+want, reply)
	assert.Equal(t, want, m.generated[len(m.generated)-1])
	assert.Len(t, e.History(), 4)

	for _, h := range e.History() {
		assert.False(t, strings.Contains(h.Content, "bakery"))
	}

	// the live session is untouched
	e.Think(ctx, "three")
	assert.Len(t, m.sessions, 1)
}

func TestHistoryReturnsCopy(t *testing.T) {
	e := NewEngine(&stubModel{})
	e.Think(context.Background(), "one")

	h := e.History()
	h[0].Content = "tampered"

	assert.Equal(t, "one", e.History()[0].Content)
}

func TestModels(t *testing.T) {
	m := Models{Fast: "flash", Full: "pro"}
	assert.Equal(t, "flash", m.For(ModeFast))
	assert.Equal(t, "pro", m.For(ModeFull))
	assert.Equal(t, "fast", ModeFast.String())
	assert.Equal(t, "full", ModeFull.String())
	assert.Contains(t, SessionPrompt(ModeFull), SystemPrompt(ModeFull))
}
