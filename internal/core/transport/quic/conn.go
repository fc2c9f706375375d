package quic

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/transport"
)

// Application error codes used when closing connections.
const (
	CodeNormal   quic.ApplicationErrorCode = 0
	CodeProtocol quic.ApplicationErrorCode = 0x400
	CodeRefused  quic.ApplicationErrorCode = 0x403
)

var _ transport.Conn = (*Conn)(nil)

// Conn is a server-side peer on a single bidirectional stream.
type Conn struct {
	id     string
	qc     *quic.Conn
	stream *quic.Stream
	cfg    Config
	logger log.Log

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	dropped atomic.Uint64
}

func newConn(qc *quic.Conn, stream *quic.Stream, cfg Config, logger log.Log) *Conn {
	id := uuid.New().String()
	return &Conn{
		id:     id,
		qc:     qc,
		stream: stream,
		cfg:    cfg,
		logger: logger.With(log.String("conn_id", id)),
		send:   make(chan []byte, cfg.SendQueue),
		closed: make(chan struct{}),
	}
}

func (c *Conn) ID() string           { return c.id }
func (c *Conn) Kind() transport.Kind { return transport.KindQUIC }
func (c *Conn) RemoteAddr() net.Addr { return c.qc.RemoteAddr() }
func (c *Conn) Dropped() uint64      { return c.dropped.Load() }

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

func (c *Conn) Close() error {
	return c.closeWith(CodeNormal, "bye")
}

func (c *Conn) closeWith(code quic.ApplicationErrorCode, reason string) error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.qc.CloseWithError(code, reason)
	})
	return err
}

func (c *Conn) readPump(deliver func([]byte)) error {
	for {
		frame, err := ReadFrame(c.stream, c.cfg.MaxFrameSize)
		if err != nil {
			select {
			case <-c.closed:
				return nil
			default:
				return err
			}
		}
		deliver(frame)
	}
}

func (c *Conn) writePump() {
	defer func() { _ = c.Close() }()
	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.send:
			if err := WriteFrame(c.stream, frame); err != nil {
				c.logger.Debug("Write failed", log.Error(err))
				return
			}
		}
	}
}
