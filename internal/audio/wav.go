package audio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 16

// WriteWAV stores b as 16-bit mono PCM, replacing any existing file.
func WriteWAV(path string, b *Buffer) error {
	if b == nil || len(b.Samples) == 0 {
		return fmt.Errorf("empty buffer")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, b.SampleRate, wavBitDepth, 1, 1)

	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: b.SampleRate},
		Data:           toInt16Range(b.Samples),
		SourceBitDepth: wavBitDepth,
	}

	if err := enc.Write(ib); err != nil {
		f.Close()
		return fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalize wav: %w", err)
	}

	return f.Close()
}

func toInt16Range(in []float32) []int {
	out := make([]int, len(in))
	for i, x := range in {
		v := math.Round(float64(x) * math.MaxInt16)
		out[i] = int(math.Max(math.MinInt16, math.Min(math.MaxInt16, v)))
	}
	return out
}
