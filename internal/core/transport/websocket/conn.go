package websocket

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/transport"
)

var _ transport.Conn = (*Conn)(nil)

// Conn is a server-side websocket peer. Writes go through a bounded queue drained
// by the write pump.
type Conn struct {
	id     string
	ws     *websocket.Conn
	cfg    Config
	logger log.Log

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	msgCount   int
	msgResetAt time.Time

	sent     atomic.Uint64
	received atomic.Uint64
	dropped  atomic.Uint64
}

func newConn(ws *websocket.Conn, cfg Config, logger log.Log) *Conn {
	id := uuid.New().String()
	return &Conn{
		id:     id,
		ws:     ws,
		cfg:    cfg,
		logger: logger.With(log.String("conn_id", id)),
		send:   make(chan []byte, cfg.SendQueue),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() string           { return c.id }
func (c *Conn) Kind() transport.Kind { return transport.KindWebSocket }
func (c *Conn) RemoteAddr() net.Addr { return c.ws.RemoteAddr() }
func (c *Conn) Dropped() uint64      { return c.dropped.Load() }

// Stats returns the number of frames written and delivered.
func (c *Conn) Stats() (sent, received uint64) {
	return c.sent.Load(), c.received.Load()
}

func (c *Conn) Send(frame []byte) error {
	select {
	case <-c.closed:
		return transport.ErrConnClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		c.dropped.Add(1)
		return transport.ErrQueueFull
	}
}

// Close stops both pumps. It is safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) readPump(deliver func([]byte)) error {
	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		msgType, frame, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Wrap(err, "failed to read message")
		}
		if msgType != websocket.BinaryMessage {
			c.logger.Debug("Ignoring non-binary message", log.Int("type", msgType))
			continue
		}

		if c.cfg.MaxMessagesPerSec > 0 {
			now := time.Now()
			if now.After(c.msgResetAt) {
				c.msgCount = 0
				c.msgResetAt = now.Add(time.Second)
			}
			c.msgCount++
			if c.msgCount > c.cfg.MaxMessagesPerSec {
				return transport.ErrRateLimited
			}
		}

		c.received.Add(1)
		deliver(frame)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.pingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.closed:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				c.logger.Debug("Write failed", log.Error(errors.Wrap(err, "failed to write message")))
				return
			}
			c.sent.Add(1)
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
