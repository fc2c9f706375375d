// Package transport abstracts the byte-message connections players use to reach the
// server. Every frame is one protocol message.
package transport

import (
	"errors"
	"net"
)

var (
	ErrConnClosed    = errors.New("connection closed")
	ErrQueueFull     = errors.New("send queue full")
	ErrRateLimited   = errors.New("message rate limit exceeded")
	ErrFrameTooLarge = errors.New("frame too large")
	ErrMissingToken  = errors.New("admission token missing")
)

// Kind names the carrier of a connection.
type Kind string

const (
	KindWebSocket Kind = "websocket"
	KindQUIC      Kind = "quic"
)

// Conn is an established, admitted peer.
type Conn interface {
	ID() string
	Kind() Kind
	RemoteAddr() net.Addr
	// Send queues a frame without blocking. A full queue drops the frame and
	// reports ErrQueueFull.
	Send(frame []byte) error
	Close() error
}

// Handler receives connection events from a listener.
//
// Admit runs before the connection is established. When it succeeds the listener
// calls exactly one of OnAbort (establishing failed) or OnConnect, and after
// OnConnect exactly one OnDisconnect. OnMessage calls for a connection are
// sequential and happen between OnConnect and OnDisconnect.
type Handler interface {
	Admit(token string) error
	OnAbort(token string)
	OnConnect(conn Conn, token string)
	OnMessage(conn Conn, frame []byte)
	OnDisconnect(conn Conn, err error)
}
