package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	log "log/slog"

	cli "github.com/spf13/pflag"

	"alfred/internal/config"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type options struct {
	envFile    string
	logLevel   string
	proxyAddr  string
	text       bool
	continuous bool
	test       bool
	daemon     bool
	input      string
	full       bool
}

func main() {
	var opt options
	cli.StringVarP(&opt.envFile, "env", "e", ".env", "Env file path")
	cli.StringVarP(&opt.logLevel, "log", "l", "info", "Log level")
	cli.StringVarP(&opt.proxyAddr, "proxy", "p", "", "Socks proxy address for remote providers")
	cli.BoolVarP(&opt.text, "text", "t", false, "Text-only mode (no voice)")
	cli.BoolVarP(&opt.continuous, "continuous", "c", false, "Keep listening after each reply")
	cli.BoolVar(&opt.test, "test", false, "Ask two canned questions and exit")
	cli.BoolVarP(&opt.daemon, "daemon", "d", false, "Wait for commands on the control socket")
	cli.StringVarP(&opt.input, "input", "i", "", "Read the utterance from an audio file instead of the microphone")
	cli.BoolVar(&opt.full, "full", false, "Use the full model instead of the fast one")
	cli.Parse()

	level, ok := logLevelMap[opt.logLevel]
	if !ok {
		level = log.LevelInfo
	}
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: level,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opt); err != nil {
		log.Error("Alfred failed", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opt options) error {
	log.Info("Booting up")

	if opt.input != "" && opt.continuous {
		log.Warn("Input file given, ignoring continuous mode", "input", opt.input)
		opt.continuous = false
	}

	cfg, err := config.Load(opt.envFile)
	if err != nil {
		return err
	}
	if opt.proxyAddr != "" {
		cfg.ProxyAddr = opt.proxyAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	app, err := newApp(ctx, cfg, opt)
	if err != nil {
		return err
	}
	defer app.Close()

	switch {
	case opt.test:
		return app.runTest(ctx)
	case opt.text:
		return app.runText(ctx, os.Stdin)
	}

	if err := app.initVoice(ctx); err != nil {
		return err
	}

	switch {
	case opt.daemon:
		return app.runDaemon(ctx)
	case opt.continuous:
		return app.runContinuous(ctx)
	default:
		app.runSingle(ctx)
		return nil
	}
}

func say(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}
