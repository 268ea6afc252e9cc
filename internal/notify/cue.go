// Package notify plays the audible cue that Alfred is listening.
package notify

import (
	"context"
	"errors"
	"io/fs"
	log "log/slog"
	"os"
)

type FilePlayer interface {
	PlayFile(ctx context.Context, path string) error
}

type Cue struct {
	path   string
	player FilePlayer
}

// NewCue returns nil when path is empty; a nil Cue plays nothing.
func NewCue(path string, player FilePlayer) *Cue {
	if path == "" {
		return nil
	}
	return &Cue{path: path, player: player}
}

// Play blocks until the cue has finished. A missing cue file is skipped.
func (c *Cue) Play(ctx context.Context) {
	if c == nil {
		return
	}
	if _, err := os.Stat(c.path); errors.Is(err, fs.ErrNotExist) {
		log.Debug("Cue file missing", "path", c.path)
		return
	}
	if err := c.player.PlayFile(ctx, c.path); err != nil {
		log.Warn("Failed to play cue", "path", c.path, "err", err)
	}
}
