package websocket

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/transport"
)

// TokenHeader carries the admission token when it is not in the query string.
const TokenHeader = "X-Admission-Token"

type Config struct {
	WriteWait         time.Duration `yaml:"write_wait"`
	PongWait          time.Duration `yaml:"pong_wait"`
	MaxMessageSize    int64         `yaml:"max_message_size"`
	SendQueue         int           `yaml:"send_queue"`
	MaxMessagesPerSec int           `yaml:"max_messages_per_sec"`
}

func DefaultConfig() Config {
	return Config{
		WriteWait:         10 * time.Second,
		PongWait:          60 * time.Second,
		MaxMessageSize:    4096,
		SendQueue:         256,
		MaxMessagesPerSec: 50,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WriteWait <= 0 {
		c.WriteWait = def.WriteWait
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	if c.SendQueue <= 0 {
		c.SendQueue = def.SendQueue
	}
	return c
}

func (c Config) pingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// Listener upgrades admitted HTTP requests to websocket connections.
type Listener struct {
	handler  transport.Handler
	cfg      Config
	upgrader websocket.Upgrader
	logger   log.Log

	mu     sync.Mutex
	conns  map[string]*Conn
	closed atomic.Bool
	pumps  sync.WaitGroup
}

func NewListener(handler transport.Handler, cfg Config, logger log.Log) *Listener {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Listener{
		handler: handler,
		cfg:     cfg.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger.With(log.String("component", "websocket")),
		conns:  make(map[string]*Conn),
	}
}

// ServeHTTP admits the request token and upgrades. Refused tokens get 403 and no
// upgrade.
func (l *Listener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if l.closed.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		token = r.Header.Get(TokenHeader)
	}
	if token == "" {
		http.Error(w, transport.ErrMissingToken.Error(), http.StatusForbidden)
		return
	}
	if err := l.handler.Admit(token); err != nil {
		l.logger.Info("Admission refused", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}

	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.handler.OnAbort(token)
		l.logger.Warn("Upgrade failed", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		return
	}

	c := newConn(ws, l.cfg, l.logger)
	l.mu.Lock()
	l.conns[c.id] = c
	l.mu.Unlock()

	l.logger.Info("Connection established",
		log.String("conn_id", c.id),
		log.String("remote_addr", r.RemoteAddr))

	l.handler.OnConnect(c, token)

	l.pumps.Add(2)
	go func() {
		defer l.pumps.Done()
		c.writePump()
	}()
	go func() {
		defer l.pumps.Done()
		err := c.readPump(func(frame []byte) { l.handler.OnMessage(c, frame) })
		c.Close()

		l.mu.Lock()
		delete(l.conns, c.id)
		l.mu.Unlock()

		l.handler.OnDisconnect(c, err)
		l.logger.Info("Connection closed", log.String("conn_id", c.id), log.Error(err))
	}()
}

// Len is the number of open connections.
func (l *Listener) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

// Close refuses new requests, closes every connection and waits for their pumps.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.mu.Lock()
	conns := make([]*Conn, 0, len(l.conns))
	for _, c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	var all error
	for _, c := range conns {
		if err := c.Close(); err != nil && all == nil {
			all = errors.Wrapf(err, "close %s", c.id)
		}
	}
	l.pumps.Wait()
	return all
}
