package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constFrame(n int, v float32) []float32 {
	f := make([]float32, n)
	for i := range f {
		f[i] = v
	}
	return f
}

func TestRMS(t *testing.T) {
	assert.Zero(t, RMS(nil))
	assert.InDelta(t, 0.5, RMS(constFrame(64, 0.5)), 1e-9)
	assert.InDelta(t, 0.5, RMS([]float32{0.5, -0.5, 0.5, -0.5}), 1e-9)
}

func TestSilenceFrames(t *testing.T) {
	// 16000 / 1024 = 15.625 frames per second
	assert.Equal(t, 23, SilenceFrames(1500*time.Millisecond, 16000, 1024))
	assert.Equal(t, 0, SilenceFrames(0, 16000, 1024))
}

func TestSilenceDetectorNeedsSpeechFirst(t *testing.T) {
	d := NewSilenceDetector(0.1, 3)

	for i := 0; i < 10; i++ {
		_, done := d.Push(constFrame(32, 0))
		assert.False(t, done, "silence alone never ends an utterance")
	}
	assert.False(t, d.HeardSpeech())
}

func TestSilenceDetectorEndsAfterTrailingSilence(t *testing.T) {
	d := NewSilenceDetector(0.1, 3)

	level, done := d.Push(constFrame(32, 0.5))
	assert.Greater(t, level, 0.1)
	assert.False(t, done)
	assert.True(t, d.HeardSpeech())

	_, done = d.Push(constFrame(32, 0.01))
	assert.False(t, done)
	_, done = d.Push(constFrame(32, 0.01))
	assert.False(t, done)

	// speech resets the silence run
	_, done = d.Push(constFrame(32, 0.5))
	assert.False(t, done)

	for i := 0; i < 2; i++ {
		_, done = d.Push(constFrame(32, 0))
		assert.False(t, done)
	}
	_, done = d.Push(constFrame(32, 0))
	assert.True(t, done)
}

func TestBufferDuration(t *testing.T) {
	b := &Buffer{Samples: make([]float32, 8000), SampleRate: 16000}
	assert.Equal(t, 500*time.Millisecond, b.Duration())

	var nilBuf *Buffer
	assert.Zero(t, nilBuf.Duration())
}

func TestWriteWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "temp_input.wav")
	in := &Buffer{Samples: []float32{0, 0.5, -0.5, 1, -1, 2}, SampleRate: 16000}

	require.NoError(t, WriteWAV(path, in))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())

	pcm, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, 16000, pcm.Format.SampleRate)
	assert.Equal(t, 1, pcm.Format.NumChannels)
	assert.Equal(t, []int{0, 16384, -16384, 32767, -32767, 32767}, pcm.Data)
}

func TestWriteWAVRejectsEmptyBuffer(t *testing.T) {
	assert.Error(t, WriteWAV(filepath.Join(t.TempDir(), "x.wav"), &Buffer{SampleRate: 16000}))
	assert.Error(t, WriteWAV(filepath.Join(t.TempDir(), "x.wav"), nil))
}

func TestFileSourceTrimsLeadingSilence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	samples := append(constFrame(1600, 0), constFrame(3200, 0.4)...)
	samples = append(samples, constFrame(16000, 0)...)
	require.NoError(t, WriteWAV(path, &Buffer{Samples: samples, SampleRate: 16000}))

	src := &FileSource{Path: path, FrameSize: 160}
	buf, err := src.Capture(context.Background(), CaptureOptions{
		Timeout:          10 * time.Second,
		SilenceThreshold: 0.1,
		SilenceDuration:  100 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NotNil(t, buf)

	assert.Equal(t, 16000, buf.SampleRate)
	// 20 speech frames plus 10 frames of trailing silence
	assert.Len(t, buf.Samples, 30*160)
}

func TestFileSourceSilentClip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence.wav")
	require.NoError(t, WriteWAV(path, &Buffer{Samples: constFrame(16000, 0), SampleRate: 16000}))

	buf, err := (&FileSource{Path: path}).Capture(context.Background(), CaptureOptions{
		Timeout:          5 * time.Second,
		SilenceThreshold: 0.1,
		SilenceDuration:  time.Second,
	})
	require.NoError(t, err)
	assert.Nil(t, buf)
}

const pactlList = `Sink Input #41
	Driver: protocol-native.c
	Volume: front-left: 65536 / 100% / 0.00 dB,   front-right: 65536 / 100% / 0.00 dB
	Properties:
		application.name = "Firefox"
Sink Input #42
	Volume: front-left: 32768 /  50% / -18.06 dB
	Properties:
		application.name = "alfred"
Sink Input #bogus
	Volume: 10%
`

func TestParseSinkInputs(t *testing.T) {
	inputs := parseSinkInputs(pactlList)
	require.Len(t, inputs, 2)
	assert.Equal(t, sinkInput{ID: 41, Volume: 100, AppName: "Firefox"}, inputs[0])
	assert.Equal(t, sinkInput{ID: 42, Volume: 50, AppName: "alfred"}, inputs[1])
}

type pactlStub struct {
	mu   sync.Mutex
	list string
	sets []string
}

func (p *pactlStub) run(_ context.Context, args ...string) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if args[0] == "list" {
		return []byte(p.list), nil
	}
	p.sets = append(p.sets, strings.Join(args[1:], " "))
	return nil, nil
}

func TestDuckerDucksOthersAndRestores(t *testing.T) {
	stub := &pactlStub{list: pactlList}
	d := NewDucker([]string{"alfred"}, 0.3, 10, 0)
	d.run = stub.run

	require.NoError(t, d.Duck(context.Background()))
	assert.Equal(t, []string{"41 30%"}, stub.sets)

	// second duck is a no-op while ducked
	require.NoError(t, d.Duck(context.Background()))
	assert.Len(t, stub.sets, 1)

	stub.list = strings.Replace(pactlList, "100%", "30%", 1)
	require.NoError(t, d.Restore(context.Background()))
	assert.Equal(t, []string{"41 30%", "41 100%"}, stub.sets)

	require.NoError(t, d.Restore(context.Background()))
	assert.Len(t, stub.sets, 2)
}

func TestDuckerRespectsFloor(t *testing.T) {
	stub := &pactlStub{list: pactlList}
	d := NewDucker(nil, 0.01, 20, 0)
	d.run = stub.run

	require.NoError(t, d.Duck(context.Background()))
	assert.ElementsMatch(t, []string{"41 20%", "42 20%"}, stub.sets)
}
