package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

const maxVolume = 150

type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

// Ducker lowers the volume of other PulseAudio streams while Alfred
// speaks and restores them afterwards. Streams whose application.name is
// in selfNames are left alone.
type Ducker struct {
	mu        sync.Mutex
	ducked    map[int]int // sink input id -> original volume
	selfNames []string
	factor    float64
	floor     int
	fade      time.Duration

	// run is pactl; replaced in tests.
	run func(ctx context.Context, args ...string) ([]byte, error)
}

func NewDucker(selfNames []string, factor float64, floor int, fade time.Duration) *Ducker {
	return &Ducker{
		selfNames: append([]string(nil), selfNames...),
		factor:    factor,
		floor:     clampInt(floor, 0, maxVolume),
		fade:      fade,
		run: func(ctx context.Context, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, "pactl", args...).Output()
		},
	}
}

func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked != nil {
		return nil
	}

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	d.ducked = make(map[int]int)
	var steps []volumeStep
	for _, in := range inputs {
		if d.isSelf(in) {
			continue
		}
		target := int(math.Round(float64(in.Volume) * d.factor))
		d.ducked[in.ID] = in.Volume
		steps = append(steps, volumeStep{id: in.ID, from: in.Volume, to: clampInt(target, d.floor, maxVolume)})
	}

	return d.fadeTo(ctx, steps)
}

// Restore fades ducked streams back. Streams that appeared after Duck
// are not touched.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked == nil {
		return nil
	}
	defer func() { d.ducked = nil }()

	inputs, err := d.list(ctx)
	if err != nil {
		return err
	}

	var steps []volumeStep
	for _, in := range inputs {
		if orig, ok := d.ducked[in.ID]; ok {
			steps = append(steps, volumeStep{id: in.ID, from: in.Volume, to: orig})
		}
	}

	return d.fadeTo(ctx, steps)
}

func (d *Ducker) isSelf(in sinkInput) bool {
	for _, name := range d.selfNames {
		if in.AppName == name {
			return true
		}
	}
	return false
}

type volumeStep struct {
	id       int
	from, to int
}

func (d *Ducker) fadeTo(ctx context.Context, steps []volumeStep) error {
	if len(steps) == 0 {
		return nil
	}

	const tick = 10 * time.Millisecond
	n := max(int(d.fade/tick), 1)

	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(n)
		for _, s := range steps {
			v := s.from + int(math.Round(float64(s.to-s.from)*frac))
			if err := d.setVolume(ctx, s.id, v); err != nil {
				return err
			}
		}

		if i < n {
			time.Sleep(d.fade / time.Duration(n))
		}
	}

	return nil
}

func (d *Ducker) setVolume(ctx context.Context, id, percent int) error {
	arg := fmt.Sprintf("%d%%", clampInt(percent, 0, maxVolume))
	if _, err := d.run(ctx, "set-sink-input-volume", strconv.Itoa(id), arg); err != nil {
		return fmt.Errorf("set volume id=%d: %w", id, err)
	}
	return nil
}

func (d *Ducker) list(ctx context.Context) ([]sinkInput, error) {
	out, err := d.run(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

func parseSinkInputs(text string) []sinkInput {
	var res []sinkInput

	for _, block := range strings.Split(text, "Sink Input #")[1:] {
		header, body, ok := strings.Cut(block, "\n")
		if !ok {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			switch {
			case strings.HasPrefix(line, "Volume:") && in.Volume == 0:
				if m := percentRe.FindStringSubmatch(line); len(m) == 2 {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			case strings.HasPrefix(line, "application.name =") && in.AppName == "":
				in.AppName = strings.Trim(strings.TrimSpace(strings.TrimPrefix(line, "application.name =")), `"`)
			}
		}

		if in.Volume == 0 && in.AppName == "" {
			continue
		}
		res = append(res, in)
	}

	return res
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
