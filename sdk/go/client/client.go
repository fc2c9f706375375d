// Package client is a Go client for the spacewar server. It performs the admission
// handshake, decodes server frames and mirrors the replicated entities.
package client

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/protocol"
	"github.com/zeusync/spacewar/internal/core/transport/quic"
	"github.com/zeusync/spacewar/internal/game"
)

type Config struct {
	MessageBufferSize int
	WriteTimeout      time.Duration
	Logger            log.Log
	// Decoders default to the game components.
	Decoders protocol.Decoders
}

func DefaultConfig() Config {
	return Config{
		MessageBufferSize: 256,
		WriteTimeout:      5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MessageBufferSize <= 0 {
		c.MessageBufferSize = def.MessageBufferSize
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.Logger == nil {
		c.Logger = log.NewNop()
	}
	if c.Decoders == nil {
		c.Decoders = game.Decoders()
	}
	return c
}

type link interface {
	Send(frame []byte) error
	Receive() ([]byte, error)
	Close() error
}

// Client is one admitted player connection.
type Client struct {
	link     link
	cfg      Config
	logger   log.Log
	mirror   *Mirror
	messages chan protocol.Message

	closed    atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	err       error

	dropped atomic.Uint64
}

// Dial connects to a websocket endpoint such as ws://host:8080/ws and presents token.
func Dial(ctx context.Context, url, token string, cfg Config) (*Client, error) {
	header := http.Header{}
	header.Set("X-Admission-Token", token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusForbidden {
			return nil, errors.Wrapf(ErrRefused, "dial %s", url)
		}
		return nil, errors.Wrapf(err, "dial %s", url)
	}
	cfg = cfg.withDefaults()
	return start(&wsLink{conn: conn, writeTimeout: cfg.WriteTimeout}, cfg), nil
}

// DialQUIC connects to a QUIC listener. The server certificate is not verified.
func DialQUIC(ctx context.Context, addr, token string, cfg Config) (*Client, error) {
	conn, err := quic.Dial(ctx, addr, token, nil)
	if err != nil {
		return nil, err
	}
	return start(conn, cfg.withDefaults()), nil
}

func start(l link, cfg Config) *Client {
	c := &Client{
		link:     l,
		cfg:      cfg,
		logger:   cfg.Logger.With(log.String("component", "client")),
		mirror:   NewMirror(),
		messages: make(chan protocol.Message, cfg.MessageBufferSize),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Ready tells the server the player is ready to spawn.
func (c *Client) Ready() error {
	return c.send(protocol.EncodeClientIsReady())
}

func (c *Client) SendInput(in protocol.Input) error {
	return c.send(protocol.EncodeInput(in))
}

func (c *Client) send(frame []byte) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.link.Send(frame)
}

// Messages delivers every decoded server message. Messages are dropped when the
// buffer is full; the mirror still sees them.
func (c *Client) Messages() <-chan protocol.Message {
	return c.messages
}

func (c *Client) Mirror() *Mirror {
	return c.mirror
}

// Done is closed when the connection ends. Err reports why.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

func (c *Client) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.link.Close()
	<-c.done
	return err
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		frame, err := c.link.Receive()
		if err != nil {
			if !c.closed.Load() {
				c.err = err
			}
			return
		}
		msg, err := protocol.DecodeServer(frame, c.cfg.Decoders)
		if err != nil {
			c.logger.Debug("Dropping malformed frame", log.Error(err))
			continue
		}
		c.mirror.Enqueue(msg)
		select {
		case c.messages <- msg:
		default:
			c.dropped.Add(1)
		}
	}
}

type wsLink struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

func (l *wsLink) Send(frame []byte) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = l.conn.SetWriteDeadline(time.Now().Add(l.writeTimeout))
	if err := l.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return errors.Wrap(err, "failed to write message")
	}
	return nil
}

func (l *wsLink) Receive() ([]byte, error) {
	for {
		typ, frame, err := l.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if typ == websocket.BinaryMessage {
			return frame, nil
		}
	}
}

func (l *wsLink) Close() error {
	l.writeMu.Lock()
	_ = l.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	l.writeMu.Unlock()
	return l.conn.Close()
}
