package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	log "log/slog"
	"strings"

	"alfred/internal/brain"
	"alfred/internal/conversation"
)

var testQuestions = []string{
	"What's the most important thing for success?",
	"Should I follow my passion or follow the money?",
}

func (a *app) runTest(ctx context.Context) error {
	log.Info("Testing Alfred")

	for _, q := range testQuestions {
		say("\nTest: %s", q)
		say("Alfred: %s", a.engine.Think(ctx, q, brain.WithoutHistory()))
	}

	say("\nTest complete")
	return nil
}

// runText is a REPL over r. Lines starting with / are commands.
func (a *app) runText(ctx context.Context, r io.Reader) error {
	ctrl := a.newController(conversation.Deps{Thinker: a.engine}, false)

	say("Text mode, type 'quit' to exit\n")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Print("You: ")

		var line string
		select {
		case <-ctx.Done():
			say("\nBye")
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "quit", "exit", "bye":
			say("Alfred: %s", conversation.Farewell)
			return nil
		case "/clear":
			a.engine.ClearHistory()
			continue
		case "/fast":
			a.engine.SetMode(true)
			continue
		case "/full":
			a.engine.SetMode(false)
			continue
		}

		say("\nAlfred: %s\n", ctrl.TextInteraction(ctx, line))
	}
}
