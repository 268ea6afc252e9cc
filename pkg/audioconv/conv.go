// Package audioconv decodes recorded clips into mono float32 PCM at the
// rate the transcription backends expect.
package audioconv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const TargetRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	MaxSamples int // 0 = no limit
}

// decoder returns interleaved samples plus the source layout.
type decoder func(r io.ReadSeeker) (pcm []float32, channels, sampleRate int, err error)

var byExt = map[string][]decoder{
	".wav":  {decodeWAV},
	".mp3":  {decodeMP3},
	".ogg":  {decodeVorbis, decodeOpus},
	".oga":  {decodeVorbis, decodeOpus},
	".opus": {decodeOpus},
}

var byMagic = map[string][]decoder{
	"RIFF":    {decodeWAV},
	"OggS":    {decodeVorbis, decodeOpus},
	"ID3\x03": {decodeMP3},
	"ID3\x04": {decodeMP3},
}

// DecodeFile reads a wav/mp3/ogg clip and returns it as mono PCM at
// TargetRate. Unknown extensions are sniffed by their magic bytes.
func DecodeFile(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decs, ok := byExt[strings.ToLower(filepath.Ext(path))]
	if !ok {
		magic, _ := bufio.NewReader(f).Peek(4)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		if decs, ok = byMagic[string(magic)]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
		}
	}

	return Decode(ctx, f, decs, opt)
}

// Decode tries each decoder in turn, rewinding r between attempts.
func Decode(ctx context.Context, r io.ReadSeeker, decs []decoder, opt Options) ([]float32, error) {
	var errs []error
	for _, dec := range decs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}

		pcm, ch, sr, err := dec(r)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return Normalize(pcm, ch, sr, opt), nil
	}
	return nil, fmt.Errorf("%w: %w", ErrUnsupported, errors.Join(errs...))
}

// Normalize downmixes interleaved pcm, resamples it to TargetRate and
// applies the sample cap.
func Normalize(pcm []float32, channels, sampleRate int, opt Options) []float32 {
	x := downmixInterleaved(pcm, channels)
	if sampleRate > 0 && sampleRate != TargetRate {
		x = resampleLinear(x, sampleRate, TargetRate)
	}
	if opt.MaxSamples > 0 && len(x) > opt.MaxSamples {
		x = x[:opt.MaxSamples]
	}
	return x
}
