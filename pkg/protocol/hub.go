package protocol

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	subscriberQueue = 256
	writeTimeout    = 2 * time.Second
)

// Hub fans published frames out to every connected observer. Publishing
// never blocks: a subscriber whose queue is full loses the frame, and a
// subscriber whose connection errors is dropped. The engine side of the
// channel is strictly fire-and-forget.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]chan string
	tape     *Tape
	upgrader websocket.Upgrader
}

func NewHub(tape *Tape) *Hub {
	return &Hub{
		subs: make(map[string]chan string),
		tape: tape,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Publish sends one frame to all subscribers and records it on the tape.
func (h *Hub) Publish(line string) {
	if h.tape != nil {
		h.tape.Append(line)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- line:
		default:
			// slow subscriber, frame dropped
		}
	}
}

// Subscribers returns the current connection count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) subscribe() (string, chan string) {
	id := uuid.New().String()
	ch := make(chan string, subscriberQueue)
	h.mu.Lock()
	h.subs[id] = ch
	h.mu.Unlock()
	return id, ch
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

// ServeHTTP upgrades an observer connection and streams frames to it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Debugf("market upgrade failed: %v", err)
		return
	}
	id, ch := h.subscribe()
	zap.S().Infow("observer connected", "subscriber", id)

	defer func() {
		h.unsubscribe(id)
		conn.Close()
		zap.S().Infow("observer disconnected", "subscriber", id)
	}()

	// reader: observers send nothing; read to notice the close
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case line := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
				return
			}
		}
	}
}
