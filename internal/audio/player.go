package audio

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

const outputRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(outputRate, outputRate.N(time.Second/10))
	})
	return speakerErr
}

// Player plays mp3 streams through the shared beep speaker.
type Player struct {
	mu   sync.Mutex
	stop chan struct{}
}

func NewPlayer() *Player { return &Player{} }

func (p *Player) PlayFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return p.Play(ctx, f, true)
}

// Play decodes an mp3 stream and plays it. With wait set it returns once
// playback finished, Stop was called or ctx is done.
func (p *Player) Play(ctx context.Context, rc io.ReadCloser, wait bool) error {
	streamer, format, err := mp3.Decode(rc)
	if err != nil {
		rc.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}

	if err := initSpeaker(); err != nil {
		streamer.Close()
		return fmt.Errorf("init speaker: %w", err)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != outputRate {
		s = beep.Resample(4, format.SampleRate, outputRate, streamer)
	}

	done := make(chan struct{})
	stop := p.arm()

	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	if !wait {
		go func() {
			defer streamer.Close()
			select {
			case <-done:
			case <-stop:
			}
		}()
		return nil
	}

	defer streamer.Close()

	select {
	case <-done:
		return nil
	case <-stop:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func (p *Player) Stop() {
	speaker.Clear()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

func (p *Player) arm() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop == nil {
		p.stop = make(chan struct{})
	}
	return p.stop
}
