// Package conversation drives the listen, think and speak cycle.
package conversation

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"alfred/internal/audio"
	"alfred/internal/brain"
)

type Capturer interface {
	// Capture returns nil when no speech was heard.
	Capture(ctx context.Context, opt audio.CaptureOptions) (*audio.Buffer, error)
	Stop()
}

type Transcriber interface {
	Transcribe(ctx context.Context, buf *audio.Buffer) (string, error)
}

type Thinker interface {
	Think(ctx context.Context, input string, opts ...brain.ThinkOption) string
	SetMode(fast bool)
}

type Speaker interface {
	// Speak reports whether anything was voiced.
	Speak(ctx context.Context, text string, wait bool) bool
	Stop()
}

// Deps are the collaborators. Capture, Transcriber and Speaker may be nil
// for a controller used only through TextInteraction.
type Deps struct {
	Capture     Capturer
	Transcriber Transcriber
	Thinker     Thinker
	Speaker     Speaker
}

type Config struct {
	Continuous       bool
	ListenTimeout    time.Duration
	SilenceThreshold float64
	SilenceDuration  time.Duration
	Fast             bool
	Greeting         string
	ErrorBackoff     time.Duration
}

func DefaultConfig() Config {
	return Config{
		ListenTimeout:    10 * time.Second,
		SilenceThreshold: 0.015,
		SilenceDuration:  1500 * time.Millisecond,
		Fast:             true,
		Greeting:         "Alfred here. What do you need?",
		ErrorBackoff:     time.Second,
	}
}

type Option func(*Controller)

func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.obs = append(c.obs, o)
		}
	}
}

// Controller is a single conversation state machine. Only one stage runs
// at a time; the Thinker is never called concurrently by it.
type Controller struct {
	cfg  Config
	deps Deps
	obs  observers

	mu      sync.Mutex
	state   State
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg Config, deps Deps, opts ...Option) *Controller {
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = time.Second
	}

	c := &Controller{cfg: cfg, deps: deps}
	for _, opt := range opts {
		opt(c)
	}

	deps.Thinker.SetMode(cfg.Fast)
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Done is closed when the current run ends. Before the first Start it is
// already closed.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done == nil {
		c.done = make(chan struct{})
		close(c.done)
	}
	return c.done
}

func (c *Controller) Wait() { <-c.Done() }

func (c *Controller) setState(s State) {
	c.mu.Lock()
	if c.state == s {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state = s
	c.mu.Unlock()

	log.Debug("State", "from", prev, "to", s)
	c.obs.StateChanged(s)
}

// transition is setState for the run loop: once the run is cancelled only
// a move to Idle is allowed.
func (c *Controller) transition(ctx context.Context, s State) {
	if ctx.Err() != nil && s != StateIdle {
		return
	}
	c.setState(s)
}

// Start runs the conversation loop in the background. It returns at once
// and does nothing if a loop is already running.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		log.Info("Conversation already running")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.running = true
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	log.Info("Conversation started", "continuous", c.cfg.Continuous)
	go c.run(runCtx, done)
}

// Stop asks the loop to end, interrupts capture and playback and moves
// to Idle. It does not wait for the loop to unwind; use Wait for that.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.running = false
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c.deps.Capture != nil {
		c.deps.Capture.Stop()
	}
	if c.deps.Speaker != nil {
		c.deps.Speaker.Stop()
	}

	c.setState(StateIdle)
	log.Info("Conversation stopped")
}

func (c *Controller) run(ctx context.Context, done chan struct{}) {
	defer func() {
		c.mu.Lock()
		if c.done == done {
			c.running = false
			c.cancel()
		}
		c.mu.Unlock()

		c.setState(StateIdle)
		close(done)
	}()

	if c.cfg.Greeting != "" {
		if err := c.guard(func() error { c.speak(ctx, c.cfg.Greeting); return nil }); err != nil {
			c.fail(ctx, err)
		}
	}

	for ctx.Err() == nil {
		var more bool
		err := c.guard(func() (err error) {
			more, err = c.cycle(ctx)
			return err
		})

		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			c.fail(ctx, err)
			if !c.cfg.Continuous {
				return
			}
		case !more:
			return
		}
	}
}

// cycle runs one listen, think, speak round and reports whether the loop
// should go on.
func (c *Controller) cycle(ctx context.Context) (bool, error) {
	c.transition(ctx, StateListening)

	text, err := c.listen(ctx)
	if err != nil {
		return false, err
	}
	if ctx.Err() != nil {
		return false, nil
	}
	if text == "" {
		if c.cfg.Continuous {
			return true, nil
		}
		c.transition(ctx, StateIdle)
		return false, nil
	}

	c.obs.TranscriptReceived(text)

	if IsExitPhrase(text) {
		log.Info("Exit phrase heard", "text", text)
		c.speak(ctx, Farewell)
		return false, nil
	}

	c.transition(ctx, StateProcessing)
	reply := c.deps.Thinker.Think(ctx, text)
	c.obs.ResponseReady(reply)

	c.speak(ctx, reply)
	c.transition(ctx, StateIdle)

	return c.cfg.Continuous, nil
}

// listen captures one utterance and transcribes it. Transcription
// failures count as nothing heard.
func (c *Controller) listen(ctx context.Context) (string, error) {
	buf, err := c.deps.Capture.Capture(ctx, audio.CaptureOptions{
		Timeout:          c.cfg.ListenTimeout,
		SilenceThreshold: c.cfg.SilenceThreshold,
		SilenceDuration:  c.cfg.SilenceDuration,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", nil
		}
		return "", fmt.Errorf("capture: %w", err)
	}
	if buf == nil || len(buf.Samples) == 0 {
		log.Debug("Nothing heard")
		return "", nil
	}

	text, err := c.deps.Transcriber.Transcribe(ctx, buf)
	if err != nil {
		log.Warn("Transcription failed", "err", err)
		return "", nil
	}
	return strings.TrimSpace(text), nil
}

func (c *Controller) speak(ctx context.Context, text string) {
	c.transition(ctx, StateSpeaking)
	if !c.deps.Speaker.Speak(ctx, text, true) {
		log.Warn("Nothing voiced", "text", text)
	}
}

func (c *Controller) fail(ctx context.Context, err error) {
	log.Error("Conversation error", "err", err)
	c.setState(StateError)
	c.obs.ErrorOccurred(err)

	select {
	case <-time.After(c.cfg.ErrorBackoff):
	case <-ctx.Done():
	}

	c.setState(StateIdle)
}

// guard turns a panic in fn into an error.
func (c *Controller) guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// SingleInteraction runs one listen, think, speak round on the caller's
// goroutine and returns the reply, or "" when nothing was heard or the
// round failed.
func (c *Controller) SingleInteraction(ctx context.Context) string {
	var reply string

	err := c.guard(func() error {
		c.setState(StateListening)

		text, err := c.listen(ctx)
		if err != nil {
			return err
		}
		if text == "" {
			c.setState(StateIdle)
			return nil
		}
		c.obs.TranscriptReceived(text)

		c.setState(StateProcessing)
		reply = c.deps.Thinker.Think(ctx, text)
		c.obs.ResponseReady(reply)

		c.speak(ctx, reply)
		c.setState(StateIdle)
		return nil
	})
	if err != nil {
		log.Error("Interaction failed", "err", err)
		c.setState(StateError)
		c.obs.ErrorOccurred(err)
		c.setState(StateIdle)
		return ""
	}

	return reply
}

var errNoReply = errors.New("no reply")

// TextInteraction skips capture and playback and always returns a
// non-empty reply.
func (c *Controller) TextInteraction(ctx context.Context, text string) string {
	c.setState(StateProcessing)
	defer c.setState(StateIdle)

	c.obs.TranscriptReceived(text)

	var reply string
	err := c.guard(func() error {
		reply = strings.TrimSpace(c.deps.Thinker.Think(ctx, text))
		if reply == "" {
			return errNoReply
		}
		return nil
	})
	if err != nil {
		log.Error("Text interaction failed", "err", err)
		reply = brain.FallbackReply
	}

	c.obs.ResponseReady(reply)
	return reply
}
