package speech

import (
	"context"
	"fmt"

	"alfred/pkg/audioconv"
	"alfred/pkg/stt"
)

// Whisper runs whisper.cpp locally; it needs no network.
type Whisper struct {
	tr  *stt.Transcriber
	opt stt.Options
}

func NewWhisper(modelPath, language string) (*Whisper, error) {
	tr, err := stt.NewTranscriber(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: %w", err)
	}
	return &Whisper{tr: tr, opt: stt.Options{Language: language}}, nil
}

func (w *Whisper) Name() string { return "whisper" }

func (w *Whisper) Transcribe(ctx context.Context, clip Clip) (string, error) {
	var (
		res stt.Result
		err error
	)
	if clip.Buffer != nil && clip.Buffer.SampleRate == audioconv.TargetRate {
		res, err = w.tr.TranscribePCM(ctx, clip.Buffer.Samples, w.opt)
	} else {
		res, err = w.tr.TranscribeFile(ctx, clip.Path, w.opt)
	}
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (w *Whisper) Close() error { return w.tr.Close() }
