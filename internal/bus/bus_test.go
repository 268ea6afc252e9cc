package bus

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfred/internal/conversation"
)

func newHub(t *testing.T) (string, <-chan Message) {
	t.Helper()

	got := make(chan Message, 16)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var m Message
			if json.Unmarshal(data, &m) == nil {
				got <- m
			}
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), got
}

func next(t *testing.T, ch <-chan Message) Message {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message from publisher")
		return Message{}
	}
}

func TestPublisherMirrorsEvents(t *testing.T) {
	url, got := newHub(t)

	p, err := Dial(url)
	require.NoError(t, err)

	p.StateChanged(conversation.StateListening)
	p.TranscriptReceived("what now")
	p.ResponseReady("Ship it.")
	p.ErrorOccurred(errors.New("mic gone"))

	want := []struct{ kind, content string }{
		{KindState, "listening"},
		{KindTranscript, "what now"},
		{KindResponse, "Ship it."},
		{KindError, "mic gone"},
	}
	for _, w := range want {
		m := next(t, got)
		assert.Equal(t, "alfred", m.From)
		assert.Equal(t, w.kind, m.Kind)
		assert.Equal(t, w.content, m.Content)
		assert.False(t, m.At.IsZero())
	}

	p.Close()
	p.Close()

	// events after Close are ignored
	p.ResponseReady("late")
}

func TestDialFailure(t *testing.T) {
	_, err := Dial("ws://127.0.0.1:1/nowhere")
	assert.Error(t, err)
}

func TestPublisherRedialsOnce(t *testing.T) {
	url, got := newHub(t)

	var (
		mu    sync.Mutex
		conns []*websocket.Conn
	)
	p, err := newPublisher(url, func(u string) (*websocket.Conn, error) {
		conn, err := dial(u)
		if err == nil {
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
		return conn, err
	})
	require.NoError(t, err)
	defer p.Close()

	p.StateChanged(conversation.StateListening)
	next(t, got)

	// break the connection under the writer
	mu.Lock()
	require.NoError(t, conns[0].UnderlyingConn().Close())
	mu.Unlock()

	p.ResponseReady("after break")
	m := next(t, got)
	assert.Equal(t, "after break", m.Content)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, conns, 2)
}
