package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/spacewar/internal/core/transport"
	"github.com/zeusync/spacewar/internal/core/transport/transporttest"
)

func serve(t *testing.T, h transport.Handler, cfg Config) (*Listener, string) {
	t.Helper()
	l := NewListener(h, cfg, nil)
	srv := httptest.NewServer(l)
	t.Cleanup(func() {
		_ = l.Close()
		srv.Close()
	})
	return l, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestListener_RefusesUnknownToken(t *testing.T) {
	h := transporttest.NewHandler("good")
	_, url := serve(t, h, DefaultConfig())

	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=bad", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Empty(t, h.Admitted())
}

func TestListener_EchoRoundTrip(t *testing.T) {
	h := transporttest.NewHandler("good")
	h.Echo = true
	l, url := serve(t, h, DefaultConfig())

	header := http.Header{}
	header.Set(TokenHeader, "good")
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)

	require.NoError(t, ws.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}))
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, frame, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	assert.Equal(t, []byte{1, 2, 3}, frame)
	assert.Equal(t, 1, l.Len())

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool { return h.Disconnected() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, l.Len())
}

func TestListener_RateLimitDisconnects(t *testing.T) {
	h := transporttest.NewHandler("good")
	cfg := DefaultConfig()
	cfg.MaxMessagesPerSec = 3
	_, url := serve(t, h, cfg)

	ws, _, err := websocket.DefaultDialer.Dial(url+"?token=good", nil)
	require.NoError(t, err)
	defer ws.Close()

	for i := 0; i < 5; i++ {
		if err := ws.WriteMessage(websocket.BinaryMessage, []byte{byte(i)}); err != nil {
			break
		}
	}
	require.Eventually(t, func() bool { return h.Disconnected() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, h.Messages(), 3)
}

func TestConn_SendDropsWhenQueueFull(t *testing.T) {
	c := &Conn{send: make(chan []byte, 1), closed: make(chan struct{})}

	require.NoError(t, c.Send([]byte{1}))
	assert.ErrorIs(t, c.Send([]byte{2}), transport.ErrQueueFull)
	assert.Equal(t, uint64(1), c.Dropped())

	close(c.closed)
	assert.ErrorIs(t, c.Send([]byte{3}), transport.ErrConnClosed)
}
