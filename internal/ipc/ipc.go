// Package ipc is the daemon's control channel: one JSON request and one
// JSON reply per unix socket connection.
package ipc

import (
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"sync"
	"time"
)

const (
	CmdTrigger = "trigger"
	CmdStop    = "stop"
	CmdClear   = "clear"
	CmdFast    = "fast"
	CmdFull    = "full"
	CmdStatus  = "status"
	CmdQuit    = "quit"
)

type Request struct {
	Cmd string `json:"cmd"`
	Arg string `json:"arg,omitempty"`
}

type Reply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

type Handler func(Request) Reply

type Server struct {
	ln      net.Listener
	handler Handler
	wg      sync.WaitGroup
	once    sync.Once
}

// Listen removes a stale socket at path and serves handler on it.
func Listen(path string, handler Handler) (*Server, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{ln: ln, handler: handler}
	s.wg.Add(1)
	go s.serve()

	log.Debug("Control socket listening", "path", path)
	return s, nil
}

func (s *Server) serve() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("Accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Minute))

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		log.Warn("Bad control message", "err", err)
		return
	}

	log.Debug("Control message", "cmd", req.Cmd, "arg", req.Arg)
	reply := s.handler(req)

	if err := json.NewEncoder(conn).Encode(reply); err != nil {
		log.Warn("Failed to reply", "cmd", req.Cmd, "err", err)
	}
}

// Close stops accepting connections and waits for in-flight handlers.
func (s *Server) Close() error {
	var err error
	s.once.Do(func() {
		err = s.ln.Close()
		s.wg.Wait()
	})
	return err
}

// Send delivers one command to the daemon at path and waits for its reply.
func Send(path, cmd, arg string) (Reply, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(Request{Cmd: cmd, Arg: arg}); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
