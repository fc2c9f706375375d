package server

import (
	"encoding/json"
	"net/http"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/system"
	"github.com/zeusync/spacewar/internal/game"
)

// WorldSnapshot is the body of /debug/world, encoded as msgpack.
type WorldSnapshot struct {
	Tick     uint64            `msgpack:"tick"`
	NowMs    int64             `msgpack:"now_ms"`
	Entities []EntitySnapshot  `msgpack:"entities"`
	Sessions []SessionSnapshot `msgpack:"sessions"`
}

type EntitySnapshot struct {
	ID   uint32   `msgpack:"id"`
	Tags []string `msgpack:"tags"`
	X    float64  `msgpack:"x,omitempty"`
	Y    float64  `msgpack:"y,omitempty"`
	Cell string   `msgpack:"cell,omitempty"`
}

type SessionSnapshot struct {
	ID      string `msgpack:"id"`
	Team    uint8  `msgpack:"team"`
	Avatar  uint32 `msgpack:"avatar"`
	Ready   bool   `msgpack:"ready"`
	Kills   int    `msgpack:"kills"`
	Deaths  int    `msgpack:"deaths"`
	Dropped uint64 `msgpack:"dropped"`
}

type health struct {
	Status   string `json:"status"`
	Ticks    uint64 `json:"ticks"`
	Sessions int    `json:"sessions"`
	Running  bool   `json:"running"`
}

// Handler returns the HTTP surface: the WebSocket endpoint, a health probe and a
// debug dump of the world.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.ws)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/debug/world", s.handleDebugWorld)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	m := s.loop.Metrics()
	body := health{
		Status:   "ok",
		Ticks:    m.Ticks,
		Sessions: len(s.Sessions()),
		Running:  s.loop.Running(),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("Failed to write health response", log.Error(err))
	}
}

func (s *Server) handleDebugWorld(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	data, err := msgpack.Marshal(s.Snapshot())
	if err != nil {
		s.logger.Error("Failed to encode world snapshot", log.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/msgpack")
	_, _ = w.Write(data)
}

// Snapshot captures the world under its lock.
func (s *Server) Snapshot() WorldSnapshot {
	var snap WorldSnapshot
	_ = s.world.Exec(func(w *system.World) error {
		snap.Tick = w.Ticks()
		snap.NowMs = w.Now().Milliseconds()

		for _, id := range w.EntityIDs() {
			e, ok := w.Entity(id)
			if !ok {
				continue
			}
			snap.Entities = append(snap.Entities, s.entitySnapshot(e))
		}

		for _, sess := range s.Sessions() {
			snap.Sessions = append(snap.Sessions, SessionSnapshot{
				ID:      sess.id,
				Team:    sess.grant.Team,
				Avatar:  uint32(sess.avatar),
				Ready:   sess.ready,
				Kills:   sess.kills,
				Deaths:  sess.deaths,
				Dropped: sess.dropped,
			})
		}
		return nil
	})
	return snap
}

func (s *Server) entitySnapshot(e *models.Entity) EntitySnapshot {
	es := EntitySnapshot{ID: uint32(e.ID())}
	for _, tag := range e.Tags() {
		es.Tags = append(es.Tags, tag.String())
	}
	if p, ok := game.Locate(e); ok {
		es.X, es.Y = p.X, p.Y
	}
	if c, ok := s.grid.Locate(e.ID()); ok {
		es.Cell = c.String()
	}
	return es
}
