package main

import (
	"context"
	"fmt"
	log "log/slog"

	"alfred/internal/ipc"
)

type job struct {
	req   ipc.Request
	reply chan ipc.Reply
}

// runDaemon serves the control socket. Commands touching the engine run
// one at a time on this goroutine; stop is handled immediately so it can
// interrupt a running interaction.
func (a *app) runDaemon(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan job)

	srv, err := ipc.Listen(a.cfg.SocketPath, func(req ipc.Request) ipc.Reply {
		if req.Cmd == ipc.CmdStop {
			a.ctrl.Stop()
			return ipc.Reply{OK: true, Message: "stopped"}
		}

		j := job{req: req, reply: make(chan ipc.Reply, 1)}
		select {
		case jobs <- j:
		case <-ctx.Done():
			return ipc.Reply{Message: "shutting down"}
		}

		select {
		case r := <-j.reply:
			return r
		case <-ctx.Done():
			return ipc.Reply{Message: "shutting down"}
		}
	})
	if err != nil {
		return fmt.Errorf("control socket: %w", err)
	}
	defer srv.Close()

	log.Info("Daemon ready", "socket", a.cfg.SocketPath)

	for {
		select {
		case <-ctx.Done():
			log.Info("Daemon shutting down")
			a.ctrl.Stop()
			return nil
		case j := <-jobs:
			r := a.handle(ctx, j.req)
			j.reply <- r
			if j.req.Cmd == ipc.CmdQuit {
				cancel()
			}
		}
	}
}

func (a *app) handle(ctx context.Context, req ipc.Request) ipc.Reply {
	switch req.Cmd {
	case ipc.CmdTrigger:
		reply := a.ctrl.SingleInteraction(ctx)
		if reply == "" {
			return ipc.Reply{OK: true, Message: "nothing heard"}
		}
		return ipc.Reply{OK: true, Message: reply}
	case ipc.CmdClear:
		a.engine.ClearHistory()
		return ipc.Reply{OK: true, Message: "history cleared"}
	case ipc.CmdFast, ipc.CmdFull:
		a.engine.SetMode(req.Cmd == ipc.CmdFast)
		return ipc.Reply{OK: true, Message: "mode " + a.engine.Mode().String()}
	case ipc.CmdStatus:
		return ipc.Reply{OK: true, Message: fmt.Sprintf("state=%s mode=%s history=%d",
			a.ctrl.State(), a.engine.Mode(), len(a.engine.History()))}
	case ipc.CmdQuit:
		return ipc.Reply{OK: true, Message: "bye"}
	default:
		log.Warn("Unknown command", "cmd", req.Cmd)
		return ipc.Reply{Message: "unknown command " + req.Cmd}
	}
}
