package audio

import (
	"math"
	"time"
)

// Buffer is mono PCM in [-1, 1].
type Buffer struct {
	Samples    []float32
	SampleRate int
}

func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

type CaptureOptions struct {
	Timeout          time.Duration
	SilenceThreshold float64
	SilenceDuration  time.Duration
}

func RMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var s float64
	for _, x := range f {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s / float64(len(f)))
}

// SilenceDetector ends an utterance once enough trailing silence
// follows detected speech.
type SilenceDetector struct {
	threshold float64
	needed    int

	speech bool
	silent int
}

func NewSilenceDetector(threshold float64, silenceFrames int) *SilenceDetector {
	if silenceFrames < 1 {
		silenceFrames = 1
	}
	return &SilenceDetector{threshold: threshold, needed: silenceFrames}
}

// SilenceFrames converts a silence duration to a number of frames.
func SilenceFrames(d time.Duration, sampleRate, frameSize int) int {
	framesPerSecond := float64(sampleRate) / float64(frameSize)
	return int(d.Seconds() * framesPerSecond)
}

func (d *SilenceDetector) Push(frame []float32) (level float64, done bool) {
	level = RMS(frame)

	if level > d.threshold {
		d.speech = true
		d.silent = 0
	} else {
		d.silent++
	}

	return level, d.speech && d.silent >= d.needed
}

func (d *SilenceDetector) HeardSpeech() bool { return d.speech }
