package quic

import (
	"context"
	"crypto/tls"
	"sync"

	"github.com/pkg/errors"
	"github.com/quic-go/quic-go"
)

// ClientConn is the client end of a framed QUIC stream.
type ClientConn struct {
	qc      *quic.Conn
	stream  *quic.Stream
	limit   uint32
	writeMu sync.Mutex
}

// Dial connects to addr and presents token. A nil tlsConf skips certificate
// verification.
func Dial(ctx context.Context, addr, token string, tlsConf *tls.Config) (*ClientConn, error) {
	if tlsConf == nil {
		tlsConf = InsecureClientTLS()
	}
	cfg := DefaultConfig()

	qc, err := quic.DialAddr(ctx, addr, tlsConf, cfg.quicConfig())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", addr)
	}
	stream, err := qc.OpenStreamSync(ctx)
	if err != nil {
		_ = qc.CloseWithError(CodeProtocol, "no stream")
		return nil, errors.Wrap(err, "failed to open stream")
	}

	c := &ClientConn{qc: qc, stream: stream, limit: cfg.MaxFrameSize}
	if err := c.Send([]byte(token)); err != nil {
		_ = qc.CloseWithError(CodeProtocol, "no token")
		return nil, err
	}
	return c, nil
}

func (c *ClientConn) Send(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return WriteFrame(c.stream, frame)
}

// Receive blocks for the next frame.
func (c *ClientConn) Receive() ([]byte, error) {
	return ReadFrame(c.stream, c.limit)
}

func (c *ClientConn) Close() error {
	return c.qc.CloseWithError(CodeNormal, "bye")
}
