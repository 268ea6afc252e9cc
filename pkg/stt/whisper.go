// Package stt runs offline speech recognition with whisper.cpp.
package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"alfred/pkg/audioconv"
)

type Options struct {
	Language      string // "auto", "en", ...
	TranslateToEn bool
	Threads       int // <=0 => NumCPU()
	InitialPrompt string
	BeamSize      int // 0 = greedy
	Temperature   float32
}

type Segment struct {
	Text     string
	StartSec float64
	EndSec   float64
}

type Result struct {
	Text     string
	Segments []Segment
	Language string
}

// Transcriber wraps a loaded ggml model. Calls are serialized; whisper
// contexts are not safe for concurrent use.
type Transcriber struct {
	mu    sync.Mutex
	model whisper.Model
}

func NewTranscriber(modelPath string) (*Transcriber, error) {
	if modelPath == "" {
		return nil, errors.New("empty model path")
	}
	m, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return &Transcriber{model: m}, nil
}

func (t *Transcriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	return err
}

func (t *Transcriber) TranscribeFile(ctx context.Context, path string, opt Options) (Result, error) {
	pcm, err := audioconv.DecodeFile(ctx, path, audioconv.Options{})
	if err != nil {
		return Result{}, err
	}
	return t.TranscribePCM(ctx, pcm, opt)
}

// pcm16k must be mono @ 16 kHz, float32 in [-1, 1]
func (t *Transcriber) TranscribePCM(ctx context.Context, pcm16k []float32, opt Options) (Result, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.model == nil {
		return Result{}, errors.New("nil model")
	}
	if len(pcm16k) == 0 {
		return Result{}, errors.New("no audio samples provided")
	}

	wctx, err := t.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("new context: %w", err)
	}

	if opt.Language == "" {
		opt.Language = "auto"
	}
	if err := wctx.SetLanguage(opt.Language); err != nil {
		return Result{}, fmt.Errorf("set language: %w", err)
	}
	wctx.SetTranslate(opt.TranslateToEn)

	threads := opt.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	wctx.SetThreads(uint(threads))

	if opt.BeamSize > 0 {
		wctx.SetBeamSize(opt.BeamSize)
	}
	if opt.InitialPrompt != "" {
		wctx.SetInitialPrompt(opt.InitialPrompt)
	}
	if opt.Temperature != 0 {
		wctx.SetTemperature(opt.Temperature)
	}

	if err := wctx.Process(pcm16k, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("process: %w", err)
	}

	var (
		segs  []Segment
		parts []string
	)
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		s, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("next segment: %w", err)
		}
		segs = append(segs, Segment{
			Text:     s.Text,
			StartSec: s.Start.Seconds(),
			EndSec:   s.End.Seconds(),
		})
		parts = append(parts, strings.TrimSpace(s.Text))
	}

	lang := wctx.DetectedLanguage()
	if lang == "" {
		lang = wctx.Language()
	}

	return Result{
		Text:     strings.TrimSpace(strings.Join(parts, " ")),
		Segments: segs,
		Language: lang,
	}, nil
}
