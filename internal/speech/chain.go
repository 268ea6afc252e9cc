// Package speech turns captured utterances into text.
package speech

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"

	"alfred/internal/audio"
)

var (
	ErrNoProvider         = errors.New("no transcription provider available")
	ErrNothingTranscribed = errors.New("nothing transcribed")
)

// Clip is one utterance, both in memory and as the scratch WAV file.
type Clip struct {
	Path   string
	Buffer *audio.Buffer
}

type Provider interface {
	Name() string
	Transcribe(ctx context.Context, clip Clip) (string, error)
}

// Chain tries its providers in order; the first non-empty text wins.
type Chain struct {
	scratch   string
	providers []Provider
}

func NewChain(scratch string, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrNoProvider
	}
	return &Chain{scratch: scratch, providers: providers}, nil
}

func (c *Chain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

func (c *Chain) Transcribe(ctx context.Context, buf *audio.Buffer) (string, error) {
	if err := audio.WriteWAV(c.scratch, buf); err != nil {
		return "", fmt.Errorf("write scratch: %w", err)
	}
	clip := Clip{Path: c.scratch, Buffer: buf}

	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := p.Transcribe(ctx, clip)
		text = strings.TrimSpace(text)
		switch {
		case err != nil:
			log.Warn("Transcription provider failed", "provider", p.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		case text == "":
			log.Debug("Transcription provider returned nothing", "provider", p.Name())
		default:
			log.Info("Transcribed", "provider", p.Name(), "text", text)
			return text, nil
		}
	}

	if len(errs) == 0 {
		return "", ErrNothingTranscribed
	}
	return "", fmt.Errorf("%w: %w", ErrNothingTranscribed, errors.Join(errs...))
}
