package audio

import (
	"context"
	"fmt"
	log "log/slog"

	"alfred/pkg/audioconv"
)

// FileSource replays a recorded clip through the same silence detection
// the microphone uses, so a file behaves like one spoken utterance.
type FileSource struct {
	Path      string
	FrameSize int
}

func (s *FileSource) Capture(ctx context.Context, opt CaptureOptions) (*Buffer, error) {
	pcm, err := audioconv.DecodeFile(ctx, s.Path, audioconv.Options{
		MaxSamples: int(opt.Timeout.Seconds() * audioconv.TargetRate),
	})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path, err)
	}

	frameSize := s.FrameSize
	if frameSize <= 0 {
		frameSize = 1024
	}

	det := NewSilenceDetector(opt.SilenceThreshold, SilenceFrames(opt.SilenceDuration, audioconv.TargetRate, frameSize))
	out := make([]float32, 0, len(pcm))

	for start := 0; start < len(pcm); start += frameSize {
		end := min(start+frameSize, len(pcm))
		frame := pcm[start:end]

		_, done := det.Push(frame)
		if det.HeardSpeech() {
			out = append(out, frame...)
		}
		if done {
			break
		}
	}

	if !det.HeardSpeech() {
		log.Info("No speech in file", "path", s.Path)
		return nil, nil
	}

	return &Buffer{Samples: out, SampleRate: audioconv.TargetRate}, nil
}

func (s *FileSource) Stop() {}
