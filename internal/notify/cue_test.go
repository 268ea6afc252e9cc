package notify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	played []string
	err    error
}

func (f *fakePlayer) PlayFile(_ context.Context, path string) error {
	f.played = append(f.played, path)
	return f.err
}

func TestCuePlaysExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beep.mp3")
	require.NoError(t, os.WriteFile(path, []byte("ID3"), 0o644))

	p := &fakePlayer{}
	NewCue(path, p).Play(context.Background())
	assert.Equal(t, []string{path}, p.played)

	p.err = errors.New("bad mp3")
	NewCue(path, p).Play(context.Background())
	assert.Len(t, p.played, 2)
}

func TestCueSkipsMissingFile(t *testing.T) {
	p := &fakePlayer{}
	NewCue(filepath.Join(t.TempDir(), "nope.mp3"), p).Play(context.Background())
	assert.Empty(t, p.played)
}

func TestNilCue(t *testing.T) {
	c := NewCue("", &fakePlayer{})
	assert.Nil(t, c)
	c.Play(context.Background())
}
