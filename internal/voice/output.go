// Package voice speaks Alfred's replies.
package voice

import (
	"context"
	"io"
	log "log/slog"
	"sync"
)

type Player interface {
	Play(ctx context.Context, rc io.ReadCloser, wait bool) error
	Stop()
}

// Local is an on-device synthesizer used when remote synthesis or
// playback fails.
type Local interface {
	Speak(text string) error
	Cancel()
}

type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Option func(*Output)

func WithDucker(d Ducker) Option {
	return func(o *Output) { o.ducker = d }
}

// Output speaks through the remote synthesizer and player, falling back
// to the local synthesizer. synth may be nil.
type Output struct {
	synth  Synthesizer
	player Player
	local  Local
	ducker Ducker

	mu  sync.Mutex
	gen uint64
}

func NewOutput(synth Synthesizer, player Player, local Local, opts ...Option) *Output {
	o := &Output{synth: synth, player: player, local: local}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Output) generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}

// Speak voices text and reports whether anything was spoken. With wait
// set it returns after playback ends or Stop is called.
func (o *Output) Speak(ctx context.Context, text string, wait bool) bool {
	if text == "" {
		return false
	}
	gen := o.generation()

	if wait && o.ducker != nil {
		if err := o.ducker.Duck(ctx); err != nil {
			log.Warn("Failed to duck audio", "err", err)
		}
		defer func() {
			if err := o.ducker.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to restore audio", "err", err)
			}
		}()
	}

	if o.remote(ctx, text, wait) {
		return true
	}

	if ctx.Err() != nil || o.generation() != gen {
		return false
	}

	return o.speakLocal(text, wait)
}

func (o *Output) remote(ctx context.Context, text string, wait bool) bool {
	if o.synth == nil || o.player == nil {
		return false
	}

	rc, err := o.synth.Synthesize(ctx, text)
	if err != nil {
		log.Warn("Speech synthesis failed", "synth", o.synth.Name(), "err", err)
		return false
	}

	if err := o.player.Play(ctx, rc, wait); err != nil {
		log.Warn("Playback failed", "err", err)
		return false
	}
	return true
}

func (o *Output) speakLocal(text string, wait bool) bool {
	if o.local == nil {
		log.Error("No speech output available")
		return false
	}

	if !wait {
		go func() {
			if err := o.local.Speak(text); err != nil {
				log.Error("Local speech failed", "err", err)
			}
		}()
		return true
	}

	if err := o.local.Speak(text); err != nil {
		log.Error("Local speech failed", "err", err)
		return false
	}
	return true
}

// Stop cuts off any speech in progress.
func (o *Output) Stop() {
	o.mu.Lock()
	o.gen++
	o.mu.Unlock()

	if o.player != nil {
		o.player.Stop()
	}
	if o.local != nil {
		o.local.Cancel()
	}
}
