package main

import (
	"context"
	"fmt"
	log "log/slog"
	"net/http"
	"time"

	"alfred/internal/audio"
	"alfred/internal/brain"
	"alfred/internal/bus"
	"alfred/internal/config"
	"alfred/internal/conversation"
	"alfred/internal/notify"
	"alfred/internal/proxy"
	"alfred/internal/speech"
	"alfred/internal/tts"
	"alfred/internal/voice"
)

type app struct {
	cfg  *config.Config
	opt  options
	http *http.Client

	engine *brain.Engine
	ctrl   *conversation.Controller
	pub    *bus.Publisher

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config, opt options) (*app, error) {
	a := &app{cfg: cfg, opt: opt}

	hc, err := proxy.NewSocksClient(cfg.ProxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks proxy %s: %w", cfg.ProxyAddr, err)
	}
	a.http = hc
	if hc != nil {
		log.Debug("Using socks proxy", "addr", cfg.ProxyAddr)
	}

	model, err := newModel(ctx, cfg, hc)
	if err != nil {
		return nil, err
	}
	a.engine = brain.NewEngine(model,
		brain.WithMode(brain.ModeFor(!opt.full)),
		brain.WithHistoryLimit(cfg.MaxHistory),
	)
	log.Debug("Loaded model", "provider", cfg.Provider, "mode", a.engine.Mode())

	if cfg.BusURL != "" {
		pub, err := bus.Dial(cfg.BusURL)
		if err != nil {
			log.Warn("Bus unavailable, continuing without it", "url", cfg.BusURL, "err", err)
		} else {
			a.pub = pub
			a.closers = append(a.closers, pub.Close)
		}
	}

	return a, nil
}

func newModel(ctx context.Context, cfg *config.Config, hc *http.Client) (brain.Model, error) {
	models := brain.Models{Fast: cfg.FastModel, Full: cfg.FullModel}

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return brain.NewOpenAI(cfg.APIKey(), models, hc)
	default:
		return brain.NewGemini(ctx, cfg.APIKey(), models, hc)
	}
}

func (a *app) newController(deps conversation.Deps, echo bool) *conversation.Controller {
	cc := conversation.Config{
		Continuous:       a.opt.continuous,
		ListenTimeout:    a.cfg.ListenTimeout,
		SilenceThreshold: a.cfg.SilenceThreshold,
		SilenceDuration:  a.cfg.SilenceDuration,
		Fast:             !a.opt.full,
		ErrorBackoff:     time.Second,
	}
	if a.opt.continuous {
		cc.Greeting = a.cfg.Greeting
	}

	var opts []conversation.Option
	if echo {
		opts = append(opts, conversation.WithObserver(printer()))
	}
	if a.pub != nil {
		opts = append(opts, conversation.WithObserver(a.pub))
	}
	return conversation.New(cc, deps, opts...)
}

// initVoice builds the controller wired to the microphone (or an input
// file), the transcription chain and speech output.
func (a *app) initVoice(ctx context.Context) error {
	chain, err := speech.FromConfig(ctx, a.cfg, a.http)
	if err != nil {
		return err
	}
	log.Debug("Loaded transcription", "providers", chain.Providers())

	player := audio.NewPlayer()

	var capture conversation.Capturer
	if a.opt.input != "" {
		capture = &audio.FileSource{Path: a.opt.input, FrameSize: a.cfg.ChunkSize}
	} else {
		rec := audio.NewRecorder(a.cfg.SampleRate, a.cfg.ChunkSize)
		if err := rec.Init(); err != nil {
			return fmt.Errorf("init audio: %w", err)
		}
		a.closers = append(a.closers, rec.Close)
		capture = &cuedCapture{Capturer: rec, cue: notify.NewCue(a.cfg.CueFile, player)}
	}

	var synth voice.Synthesizer
	if a.cfg.OpenAIAPIKey != "" {
		s, err := voice.NewOpenAISpeech(a.cfg.OpenAIAPIKey, a.cfg.Voice, a.cfg.SpeakingRate, a.http)
		if err != nil {
			log.Warn("Remote speech unavailable", "err", err)
		} else {
			synth = s
		}
	}

	var vopts []voice.Option
	if a.cfg.Duck {
		vopts = append(vopts, voice.WithDucker(audio.NewDucker([]string{"alfred"}, 0.3, 10, 200*time.Millisecond)))
	}
	out := voice.NewOutput(synth, player, tts.New(a.cfg.EspeakVoice, a.cfg.SpeakingRate), vopts...)

	a.ctrl = a.newController(conversation.Deps{
		Capture:     capture,
		Transcriber: chain,
		Thinker:     a.engine,
		Speaker:     out,
	}, true)

	log.Info("Boot up - successful")
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// cuedCapture plays the listening cue before each capture.
type cuedCapture struct {
	conversation.Capturer
	cue *notify.Cue
}

func (c *cuedCapture) Capture(ctx context.Context, opt audio.CaptureOptions) (*audio.Buffer, error) {
	c.cue.Play(ctx)
	return c.Capturer.Capture(ctx, opt)
}

func printer() conversation.Observer {
	return conversation.Callbacks{
		OnTranscript: func(t string) { say("\nYou: %s", t) },
		OnResponse:   func(r string) { say("\nAlfred: %s\n", r) },
		OnError:      func(err error) { say("\nError: %v", err) },
	}
}

func (a *app) runSingle(ctx context.Context) {
	log.Info("Single interaction mode")
	if a.ctrl.SingleInteraction(ctx) == "" {
		log.Info("Nothing to answer")
	}
}

func (a *app) runContinuous(ctx context.Context) error {
	log.Info("Continuous mode, say goodbye to exit")
	a.ctrl.Start(ctx)

	select {
	case <-a.ctrl.Done():
	case <-ctx.Done():
		log.Info("Interrupted")
		a.ctrl.Stop()
		a.ctrl.Wait()
	}
	return nil
}
