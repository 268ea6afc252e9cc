package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfred/internal/audio"
	"alfred/internal/config"
)

type fakeProvider struct {
	name  string
	text  string
	err   error
	clips []Clip
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Transcribe(_ context.Context, clip Clip) (string, error) {
	f.clips = append(f.clips, clip)
	return f.text, f.err
}

func testBuffer() *audio.Buffer {
	return &audio.Buffer{Samples: []float32{0.1, 0.2, -0.1}, SampleRate: 16000}
}

func TestNewChainNeedsProvider(t *testing.T) {
	_, err := NewChain("x.wav")
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestChainFirstProviderWins(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "temp_input.wav")
	first := &fakeProvider{name: "gemini", text: " hello there \n"}
	second := &fakeProvider{name: "openai", text: "unused"}

	c, err := NewChain(scratch, first, second)
	require.NoError(t, err)

	text, err := c.Transcribe(context.Background(), testBuffer())
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
	assert.Empty(t, second.clips)

	require.Len(t, first.clips, 1)
	assert.Equal(t, scratch, first.clips[0].Path)
	_, err = os.Stat(scratch)
	assert.NoError(t, err)
}

func TestChainFallsBackInOrder(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "temp_input.wav")
	first := &fakeProvider{name: "gemini", err: errors.New("rate limited")}
	second := &fakeProvider{name: "openai", text: "   "}
	third := &fakeProvider{name: "whisper", text: "local result"}

	c, err := NewChain(scratch, first, second, third)
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini", "openai", "whisper"}, c.Providers())

	text, err := c.Transcribe(context.Background(), testBuffer())
	require.NoError(t, err)
	assert.Equal(t, "local result", text)
	assert.Len(t, first.clips, 1)
	assert.Len(t, second.clips, 1)
}

func TestChainAllFail(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "temp_input.wav")
	c, err := NewChain(scratch,
		&fakeProvider{name: "gemini", err: errors.New("boom")},
		&fakeProvider{name: "openai"},
	)
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), testBuffer())
	assert.ErrorIs(t, err, ErrNothingTranscribed)
	assert.Contains(t, err.Error(), "gemini: boom")
}

func TestChainEmptyBuffer(t *testing.T) {
	c, err := NewChain(filepath.Join(t.TempDir(), "temp_input.wav"), &fakeProvider{name: "gemini", text: "x"})
	require.NoError(t, err)

	_, err = c.Transcribe(context.Background(), &audio.Buffer{SampleRate: 16000})
	assert.Error(t, err)
}

func TestFromConfigWithoutProviders(t *testing.T) {
	cfg := config.Default()
	cfg.CacheDir = t.TempDir()
	cfg.WhisperModel = filepath.Join(t.TempDir(), "missing.bin")

	_, err := FromConfig(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestFromConfigOrder(t *testing.T) {
	cfg := config.Default()
	cfg.CacheDir = t.TempDir()
	cfg.GeminiAPIKey = "g-key"
	cfg.OpenAIAPIKey = "o-key"

	c, err := FromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini", "openai"}, c.Providers())

	cfg.Provider = config.ProviderOpenAI
	c, err = FromConfig(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "gemini"}, c.Providers())
}
