package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/replication"
	"github.com/zeusync/spacewar/internal/core/transport"
)

// Session is one admitted player. Fields after conn are guarded by the world lock.
type Session struct {
	id          string
	grant       Grant
	connectedAt time.Time
	conn        transport.Conn

	client    *replication.Client
	avatar    models.EntityID
	ready     bool
	respawnAt time.Duration
	kills     int
	deaths    int
	dropped   uint64

	closeOnce sync.Once
}

func newSession(conn transport.Conn, grant Grant) *Session {
	return &Session{
		id:          uuid.New().String(),
		grant:       grant,
		connectedAt: time.Now(),
		conn:        conn,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Team() uint8 {
	return s.grant.Team
}

func (s *Session) Grant() Grant {
	return s.grant
}

// flush hands queued frames to the connection in order. A full send queue drops the
// frame; a closed connection stops the flush.
func (s *Session) flush() {
	if s.client == nil {
		return
	}
	for _, frame := range s.client.Outbox().Drain() {
		if err := s.conn.Send(frame); err != nil {
			if errors.Is(err, transport.ErrQueueFull) {
				s.dropped++
				continue
			}
			return
		}
	}
}
