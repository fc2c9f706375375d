package quic

import (
	"context"
	"crypto/tls"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"

	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/transport"
)

type Config struct {
	MaxFrameSize     uint32        `yaml:"max_frame_size"`
	SendQueue        int           `yaml:"send_queue"`
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	KeepAlive        time.Duration `yaml:"keep_alive"`
}

func DefaultConfig() Config {
	return Config{
		MaxFrameSize:     64 * 1024,
		SendQueue:        256,
		HandshakeTimeout: 5 * time.Second,
		IdleTimeout:      30 * time.Second,
		KeepAlive:        15 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = def.MaxFrameSize
	}
	if c.SendQueue <= 0 {
		c.SendQueue = def.SendQueue
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	return c
}

func (c Config) quicConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout: c.HandshakeTimeout,
		MaxIdleTimeout:       c.IdleTimeout,
		KeepAlivePeriod:      c.KeepAlive,
	}
}

// Listener accepts QUIC connections. A client opens one bidirectional stream and
// sends its admission token as the first frame.
type Listener struct {
	handler transport.Handler
	cfg     Config
	ln      *quic.Listener
	logger  log.Log

	mu     sync.Mutex
	conns  map[string]*Conn
	closed atomic.Bool
	peers  sync.WaitGroup
}

// Listen binds addr. A nil tlsConf generates a self-signed certificate.
func Listen(addr string, handler transport.Handler, cfg Config, tlsConf *tls.Config, logger log.Log) (*Listener, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	cfg = cfg.withDefaults()
	if tlsConf == nil {
		var err error
		if tlsConf, err = GenerateSelfSignedTLS(); err != nil {
			return nil, errors.Wrap(err, "failed to create TLS config")
		}
	}

	ln, err := quic.ListenAddr(addr, tlsConf, cfg.quicConfig())
	if err != nil {
		return nil, errors.Wrap(err, "failed to start QUIC listener")
	}

	l := &Listener{
		handler: handler,
		cfg:     cfg,
		ln:      ln,
		logger:  logger.With(log.String("component", "quic"), log.String("listener_addr", ln.Addr().String())),
		conns:   make(map[string]*Conn),
	}
	l.logger.Info("QUIC listener created")
	return l, nil
}

func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Serve accepts connections until ctx is done or the listener is closed.
func (l *Listener) Serve(ctx context.Context) error {
	for {
		qc, err := l.ln.Accept(ctx)
		if err != nil {
			if l.closed.Load() || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "failed to accept QUIC connection")
		}

		l.peers.Add(1)
		go func() {
			defer l.peers.Done()
			l.handle(ctx, qc)
		}()
	}
}

func (l *Listener) handle(ctx context.Context, qc *quic.Conn) {
	remote := qc.RemoteAddr().String()

	hctx, cancel := context.WithTimeout(ctx, l.cfg.HandshakeTimeout)
	stream, err := qc.AcceptStream(hctx)
	cancel()
	if err != nil {
		l.logger.Debug("No stream opened", log.String("remote_addr", remote), log.Error(err))
		_ = qc.CloseWithError(CodeProtocol, "no stream")
		return
	}

	tokenFrame, err := ReadFrame(stream, l.cfg.MaxFrameSize)
	if err != nil {
		_ = qc.CloseWithError(CodeProtocol, "no token")
		return
	}
	token := string(tokenFrame)
	if err := l.handler.Admit(token); err != nil {
		l.logger.Info("Admission refused", log.String("remote_addr", remote), log.Error(err))
		_ = qc.CloseWithError(CodeRefused, err.Error())
		return
	}
	if l.closed.Load() {
		l.handler.OnAbort(token)
		_ = qc.CloseWithError(CodeNormal, "shutting down")
		return
	}

	c := newConn(qc, stream, l.cfg, l.logger)
	l.mu.Lock()
	l.conns[c.id] = c
	l.mu.Unlock()

	l.logger.Info("Connection established", log.String("conn_id", c.id), log.String("remote_addr", remote))
	l.handler.OnConnect(c, token)

	go c.writePump()
	err = c.readPump(func(frame []byte) { l.handler.OnMessage(c, frame) })
	_ = c.Close()

	l.mu.Lock()
	delete(l.conns, c.id)
	l.mu.Unlock()

	l.handler.OnDisconnect(c, err)
	l.logger.Info("Connection closed", log.String("conn_id", c.id), log.Error(err))
}

func (l *Listener) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

// Close stops accepting, closes every connection and waits for their handlers.
func (l *Listener) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := l.ln.Close()

	l.mu.Lock()
	conns := make([]*Conn, 0, len(l.conns))
	for _, c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()
	for _, c := range conns {
		_ = c.closeWith(CodeNormal, "shutting down")
	}

	l.peers.Wait()
	return err
}
