package quic

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/spacewar/internal/core/transport"
	"github.com/zeusync/spacewar/internal/core/transport/transporttest"
)

func TestFrame_RoundTripAndLimit(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("hello")))
	assert.Equal(t, []byte{0, 0, 0, 5, 'h', 'e', 'l', 'l', 'o'}, buf.Bytes())

	frame, err := ReadFrame(bytes.NewReader(buf.Bytes()), 16)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), frame)

	_, err = ReadFrame(bytes.NewReader(buf.Bytes()), 4)
	assert.ErrorIs(t, err, transport.ErrFrameTooLarge)
}

func TestListener_TokenThenEcho(t *testing.T) {
	h := transporttest.NewHandler("good")
	h.Echo = true

	l, err := Listen("127.0.0.1:0", h, DefaultConfig(), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- l.Serve(ctx) }()

	c, err := Dial(ctx, l.Addr().String(), "good", nil)
	require.NoError(t, err)

	require.NoError(t, c.Send([]byte{9, 8, 7}))
	frame, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 8, 7}, frame)
	assert.Equal(t, []string{"good"}, h.Admitted())

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return h.Disconnected() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, l.Close())
	assert.NoError(t, <-served)
}

func TestListener_RefusedTokenClosesConnection(t *testing.T) {
	h := transporttest.NewHandler("good")

	l, err := Listen("127.0.0.1:0", h, DefaultConfig(), nil, nil)
	require.NoError(t, err)
	defer l.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	go func() { _ = l.Serve(ctx) }()

	c, err := Dial(ctx, l.Addr().String(), "bad", nil)
	require.NoError(t, err)

	_, err = c.Receive()
	assert.Error(t, err)
	assert.Equal(t, 0, h.Connected())
}
