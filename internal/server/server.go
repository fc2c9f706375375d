package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/spacewar/internal/config"
	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/protocol"
	"github.com/zeusync/spacewar/internal/core/replication"
	"github.com/zeusync/spacewar/internal/core/spatial"
	"github.com/zeusync/spacewar/internal/core/system"
	"github.com/zeusync/spacewar/internal/core/transport"
	"github.com/zeusync/spacewar/internal/core/transport/quic"
	"github.com/zeusync/spacewar/internal/core/transport/websocket"
	"github.com/zeusync/spacewar/internal/game"
	"github.com/zeusync/spacewar/internal/simulation"
)

var _ transport.Handler = (*Server)(nil)

const shutdownTimeout = 5 * time.Second

// Server hosts one match. It admits players over WebSocket and QUIC, feeds their
// input into the world and flushes replication frames after every tick.
//
// Lock order: world lock, then mu. mu is never held while calling into the world.
type Server struct {
	cfg    config.Config
	logger log.Log

	world     *system.World
	grid      *spatial.Grid
	game      *game.Systems
	repl      *replication.Engine
	loop      *simulation.Loop
	admission *Admission
	ws        *websocket.Listener

	mu       sync.Mutex
	pending  map[uint64]Grant
	sessions map[string]*Session // by connection id
	order    []*Session

	// guarded by the world lock
	countdownSent bool
	spawns        uint64

	running atomic.Bool
}

func New(
	cfg config.Config,
	logger log.Log,
	world *system.World,
	grid *spatial.Grid,
	systems *game.Systems,
	repl *replication.Engine,
	admission *Admission,
	loop *simulation.Loop,
) (*Server, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{
		cfg:       cfg,
		logger:    logger.With(log.String("component", "server")),
		world:     world,
		grid:      grid,
		game:      systems,
		repl:      repl,
		loop:      loop,
		admission: admission,
		pending:   make(map[uint64]Grant),
		sessions:  make(map[string]*Session),
	}
	s.ws = websocket.NewListener(s, cfg.Server.WebSocket, logger)

	if _, err := world.Bus().Subscribe(game.EventCasualty, s.onCasualty); err != nil {
		return nil, fmt.Errorf("subscribe casualties: %w", err)
	}
	loop.OnAfterTick(s.afterTick)

	if err := world.Exec(func(*system.World) error { return s.populate() }); err != nil {
		return nil, fmt.Errorf("populate world: %w", err)
	}
	return s, nil
}

func (s *Server) World() *system.World {
	return s.world
}

func (s *Server) Grid() *spatial.Grid {
	return s.grid
}

func (s *Server) Game() *game.Systems {
	return s.game
}

func (s *Server) Replication() *replication.Engine {
	return s.repl
}

func (s *Server) Loop() *simulation.Loop {
	return s.loop
}

func (s *Server) Admission() *Admission {
	return s.admission
}

// Tick advances the simulation by dt outside the running loop.
func (s *Server) Tick(dt time.Duration) {
	s.loop.Tick(dt)
}

// Sessions returns the connected sessions in connection order.
func (s *Server) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Session(nil), s.order...)
}

// Admit implements transport.Handler.
func (s *Server) Admit(token string) error {
	if limit := s.cfg.Server.MaxClients; limit > 0 {
		s.mu.Lock()
		n := len(s.sessions) + len(s.pending)
		s.mu.Unlock()
		if n >= limit {
			return ErrServerFull
		}
	}

	grant, err := s.admission.Admit(token)
	if err != nil {
		s.logger.Info("Admission refused", log.Error(err))
		return err
	}

	s.mu.Lock()
	s.pending[xxhash.Sum64String(token)] = grant
	s.mu.Unlock()
	return nil
}

// OnAbort implements transport.Handler.
func (s *Server) OnAbort(token string) {
	if grant, ok := s.takePending(token); ok {
		s.admission.Release(grant.Key)
	}
}

// OnConnect implements transport.Handler.
func (s *Server) OnConnect(conn transport.Conn, token string) {
	grant, ok := s.takePending(token)
	if !ok {
		s.logger.Warn("Connection without admission", log.String("conn_id", conn.ID()))
		_ = conn.Close()
		return
	}

	sess := newSession(conn, grant)
	err := s.world.Exec(func(*system.World) error {
		client, err := s.repl.AddClient(sess.id)
		if err != nil {
			return err
		}
		sess.client = client

		s.mu.Lock()
		s.sessions[conn.ID()] = sess
		s.order = append(s.order, sess)
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to register session", log.String("conn_id", conn.ID()), log.Error(err))
		s.admission.Release(grant.Key)
		_ = conn.Close()
		return
	}

	s.logger.Info("Player connected",
		log.String("session_id", sess.id),
		log.String("token", grant.Label()),
		log.Uint8("team", grant.Team),
		log.String("transport", string(conn.Kind())),
		log.Stringer("remote_addr", conn.RemoteAddr()),
	)
}

// OnMessage implements transport.Handler.
func (s *Server) OnMessage(conn transport.Conn, frame []byte) {
	sess, ok := s.session(conn.ID())
	if !ok {
		return
	}

	msg, err := protocol.DecodeClient(frame)
	if err != nil {
		s.logger.Debug("Invalid client frame", log.String("session_id", sess.id), log.Error(err))
		return
	}

	switch msg.Op {
	case protocol.OpClientIsReady:
		_ = s.world.Exec(func(*system.World) error {
			s.ready(sess)
			return nil
		})
	case protocol.OpUpdatePlayerInput:
		_ = s.world.Exec(func(w *system.World) error {
			if sess.avatar == models.NoEntity {
				return nil
			}
			if e, ok := w.Entity(sess.avatar); ok {
				game.ApplyInput(e, msg.Input)
			}
			return nil
		})
	}
}

// OnDisconnect implements transport.Handler.
func (s *Server) OnDisconnect(conn transport.Conn, cause error) {
	sess, ok := s.session(conn.ID())
	if !ok {
		return
	}

	sess.closeOnce.Do(func() {
		_ = s.world.Exec(func(w *system.World) error {
			s.repl.RemoveClient(sess.id)
			if sess.avatar != models.NoEntity {
				if err := w.Destroy(sess.avatar); err != nil && !errors.Is(err, models.ErrEntityNotFound) {
					s.logger.Warn("Failed to destroy avatar", log.Uint32("entity", uint32(sess.avatar)), log.Error(err))
				}
				sess.avatar = models.NoEntity
			}
			sess.respawnAt = 0

			s.mu.Lock()
			delete(s.sessions, conn.ID())
			for i, o := range s.order {
				if o == sess {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
			s.mu.Unlock()
			return nil
		})
		s.admission.Release(sess.grant.Key)

		fields := []log.Field{
			log.String("session_id", sess.id),
			log.Duration("duration", time.Since(sess.connectedAt)),
		}
		if cause != nil {
			fields = append(fields, log.Error(cause))
		}
		s.logger.Info("Player disconnected", fields...)
	})
}

// Run serves HTTP, optionally QUIC, and the simulation loop until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}
	defer s.running.Store(false)

	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}
	httpSrv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: shutdownTimeout}

	var ql *quic.Listener
	if s.cfg.Server.QUICAddr != "" {
		ql, err = quic.Listen(s.cfg.Server.QUICAddr, s, s.cfg.Server.QUIC, nil, s.logger)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("%w: %v", ErrListenerFailed, err)
		}
	}

	if err := s.loop.Start(); err != nil {
		_ = ln.Close()
		if ql != nil {
			_ = ql.Close()
		}
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if ql != nil {
		g.Go(func() error { return ql.Serve(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpSrv.Shutdown(shutdownCtx)
		_ = s.ws.Close()
		if ql != nil {
			_ = ql.Close()
		}
		_ = s.loop.Stop()
		return err
	})

	fields := []log.Field{log.String("addr", ln.Addr().String())}
	if ql != nil {
		fields = append(fields, log.String("quic_addr", ql.Addr().String()))
	}
	s.logger.Info("Server started", fields...)

	err = g.Wait()
	s.logger.Info("Server stopped")
	return err
}

func (s *Server) session(connID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[connID]
	return sess, ok
}

func (s *Server) takePending(token string) (Grant, bool) {
	key := xxhash.Sum64String(token)

	s.mu.Lock()
	defer s.mu.Unlock()
	grant, ok := s.pending[key]
	delete(s.pending, key)
	return grant, ok
}
