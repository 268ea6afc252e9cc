// Package bus mirrors conversation events to a websocket hub.
package bus

import (
	"encoding/json"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"alfred/internal/conversation"
)

const (
	KindState      = "state"
	KindTranscript = "transcript"
	KindResponse   = "response"
	KindError      = "error"

	queueSize    = 64
	writeTimeout = 5 * time.Second
)

type Message struct {
	From    string    `json:"from"`
	Kind    string    `json:"kind"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

type dialFunc func(url string) (*websocket.Conn, error)

func dial(url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	return conn, err
}

// Publisher is a conversation.Observer. Events are queued and written by
// a background goroutine; when the queue is full new events are dropped.
type Publisher struct {
	url  string
	from string
	dial dialFunc

	queue   chan Message
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	conn *websocket.Conn // owned by the writer goroutine
}

var _ conversation.Observer = (*Publisher)(nil)

func Dial(url string) (*Publisher, error) {
	return newPublisher(url, dial)
}

func newPublisher(url string, d dialFunc) (*Publisher, error) {
	conn, err := d(url)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	p := &Publisher{
		url:   url,
		from:  "alfred",
		dial:  d,
		queue:   make(chan Message, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		conn:    conn,
	}
	go p.writer()

	log.Info("Connected to bus", "url", url)
	return p, nil
}

func (p *Publisher) publish(kind, content string) {
	m := Message{From: p.from, Kind: kind, Content: content, At: time.Now().UTC()}

	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.queue <- m:
	default:
		log.Warn("Bus queue full, dropping event", "kind", kind)
	}
}

func (p *Publisher) StateChanged(s conversation.State) { p.publish(KindState, s.String()) }
func (p *Publisher) TranscriptReceived(text string)     { p.publish(KindTranscript, text) }
func (p *Publisher) ResponseReady(text string)          { p.publish(KindResponse, text) }
func (p *Publisher) ErrorOccurred(err error)            { p.publish(KindError, err.Error()) }

func (p *Publisher) writer() {
	defer close(p.stopped)
	defer func() {
		if p.conn != nil {
			_ = p.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			p.conn.Close()
		}
	}()

	for {
		select {
		case <-p.done:
			p.drain()
			return
		case m := <-p.queue:
			p.send(m)
		}
	}
}

func (p *Publisher) drain() {
	for {
		select {
		case m := <-p.queue:
			p.send(m)
		default:
			return
		}
	}
}

// send writes m, redialing once if the connection broke.
func (p *Publisher) send(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Error("Failed to encode bus message", "err", err)
		return
	}

	if p.conn != nil && p.write(data) == nil {
		return
	}

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}

	conn, err := p.dial(p.url)
	if err != nil {
		log.Warn("Bus redial failed", "url", p.url, "err", err)
		return
	}
	p.conn = conn

	if err := p.write(data); err != nil {
		log.Warn("Bus write failed", "kind", m.Kind, "err", err)
	}
}

func (p *Publisher) write(data []byte) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return p.conn.WriteMessage(websocket.TextMessage, data)
}

// Close flushes queued events and closes the connection.
func (p *Publisher) Close() {
	p.once.Do(func() { close(p.done) })
	<-p.stopped
}
