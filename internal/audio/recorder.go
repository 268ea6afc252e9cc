package audio

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

var ErrBusy = errors.New("recorder already capturing")

type Recorder struct {
	sampleRate int
	frameSize  int

	mu      sync.Mutex
	active  bool
	stopped chan struct{}
}

func NewRecorder(sampleRate, frameSize int) *Recorder {
	return &Recorder{sampleRate: sampleRate, frameSize: frameSize}
}

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

// Capture records until trailing silence follows speech, the timeout
// elapses, ctx is done or Stop is called. It returns nil when nothing
// but silence was heard.
func (r *Recorder) Capture(ctx context.Context, opt CaptureOptions) (*Buffer, error) {
	stop, err := r.begin()
	if err != nil {
		return nil, err
	}
	defer r.end()

	buf := make([]float32, r.frameSize)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(r.sampleRate), len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	defer stream.Stop()

	log.Debug("Listening", "timeout", opt.Timeout)

	var (
		det       = NewSilenceDetector(opt.SilenceThreshold, SilenceFrames(opt.SilenceDuration, r.sampleRate, r.frameSize))
		maxFrames = int(opt.Timeout.Seconds() * float64(r.sampleRate) / float64(r.frameSize))
		out       = make([]float32, 0, r.sampleRate*3)
	)

	for i := 0; i < maxFrames; i++ {
		select {
		case <-ctx.Done():
			return nil, nil
		case <-stop:
			return nil, nil
		default:
		}

		if err := stream.Read(); err != nil {
			return nil, fmt.Errorf("read input stream: %w", err)
		}

		_, done := det.Push(buf)
		if det.HeardSpeech() {
			out = append(out, buf...)
		}
		if done {
			log.Debug("Silence detected", "samples", len(out))
			break
		}
	}

	if !det.HeardSpeech() {
		log.Debug("No speech detected")
		return nil, nil
	}

	return &Buffer{Samples: out, SampleRate: r.sampleRate}, nil
}

// Stop interrupts an in-flight Capture. The frame being read completes
// first, so the latency is bounded by one frame.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active && r.stopped != nil {
		close(r.stopped)
		r.stopped = nil
	}
}

func (r *Recorder) begin() (<-chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return nil, ErrBusy
	}
	r.active = true
	r.stopped = make(chan struct{})
	return r.stopped, nil
}

func (r *Recorder) end() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.active = false
	r.stopped = nil
}
