// Package transporttest provides a recording transport.Handler for tests.
package transporttest

import (
	"errors"
	"sync"

	"github.com/zeusync/spacewar/internal/core/transport"
)

var ErrRefused = errors.New("refused")

// Handler admits the tokens in Allowed and records every event.
type Handler struct {
	Allowed map[string]bool
	// Echo sends every received frame back on the same connection.
	Echo bool

	mu           sync.Mutex
	admitted     []string
	aborted      []string
	connected    []transport.Conn
	messages     [][]byte
	disconnected []transport.Conn
}

func NewHandler(tokens ...string) *Handler {
	h := &Handler{Allowed: make(map[string]bool)}
	for _, t := range tokens {
		h.Allowed[t] = true
	}
	return h
}

func (h *Handler) Admit(token string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.Allowed[token] {
		return ErrRefused
	}
	h.admitted = append(h.admitted, token)
	return nil
}

func (h *Handler) OnAbort(token string) {
	h.mu.Lock()
	h.aborted = append(h.aborted, token)
	h.mu.Unlock()
}

func (h *Handler) OnConnect(conn transport.Conn, _ string) {
	h.mu.Lock()
	h.connected = append(h.connected, conn)
	h.mu.Unlock()
}

func (h *Handler) OnMessage(conn transport.Conn, frame []byte) {
	h.mu.Lock()
	h.messages = append(h.messages, frame)
	h.mu.Unlock()
	if h.Echo {
		_ = conn.Send(frame)
	}
}

func (h *Handler) OnDisconnect(conn transport.Conn, _ error) {
	h.mu.Lock()
	h.disconnected = append(h.disconnected, conn)
	h.mu.Unlock()
}

func (h *Handler) Admitted() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.admitted...)
}

func (h *Handler) Connected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connected)
}

func (h *Handler) Disconnected() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.disconnected)
}

func (h *Handler) Messages() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.messages...)
}
