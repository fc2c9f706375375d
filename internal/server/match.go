package server

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/zeusync/spacewar/internal/core/events/bus"
	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/protocol"
	"github.com/zeusync/spacewar/internal/game"
	"github.com/zeusync/spacewar/pkg/vmath"
)

const (
	goldenAngle = math.Pi * (3 - 2.23606797749979)
	asteroidMin = 20.0
	asteroidMax = 50.0
)

// ready handles ClientIsReady: spawns the avatar, sends the initial snapshot and
// starts the countdown once every token is held by a ready player. World lock held.
func (s *Server) ready(sess *Session) {
	if sess.ready {
		s.logger.Debug("Duplicate ready", log.String("session_id", sess.id))
		return
	}
	if err := s.spawnAvatar(sess); err != nil {
		s.logger.Error("Failed to spawn avatar", log.String("session_id", sess.id), log.Error(err))
		return
	}
	sess.ready = true
	s.admission.MarkReady(sess.grant.Key)

	n, err := s.repl.Welcome(sess.id)
	if err != nil {
		s.logger.Error("Failed to welcome player", log.String("session_id", sess.id), log.Error(err))
		return
	}
	s.logger.Info("Player ready",
		log.String("session_id", sess.id),
		log.Uint32("avatar", uint32(sess.avatar)),
		log.Int("snapshot_entities", n),
	)

	if !s.countdownSent && s.admission.AllReady() {
		s.countdownSent = true
		s.repl.Broadcast(protocol.EncodeCountdown(s.cfg.Match.Countdown))
		s.logger.Info("Match countdown started", log.Duration("countdown", s.cfg.Match.Countdown))
	}
}

func (s *Server) spawnAvatar(sess *Session) error {
	at, heading := s.spawnPoint(sess.grant.Team)
	ship, err := s.game.Factory.SpawnShip(sess.grant.Team, at, heading)
	if err != nil {
		return err
	}
	if err := s.repl.Activate(sess.id, ship.ID()); err != nil {
		_ = s.world.Destroy(ship.ID())
		return err
	}
	sess.avatar = ship.ID()
	sess.respawnAt = 0
	return nil
}

// spawnPoint places ships on a ring around the world centre, facing inwards.
// Teams start on different bearings and successive spawns rotate along the ring.
func (s *Server) spawnPoint(team uint8) (vmath.Vec2, float64) {
	cfg := s.grid.Config()
	center := vmath.V2(cfg.Width/2, cfg.Height/2)
	r := 0.35 * math.Min(cfg.Width, cfg.Height)

	angle := vmath.WrapAngle(float64(team)*goldenAngle + float64(s.spawns)*0.37)
	s.spawns++

	at := center.Add(vmath.FromAngle(angle).Scale(r))
	return at, vmath.WrapAngle(angle + math.Pi)
}

// onCasualty schedules a respawn for the player whose ship was destroyed.
func (s *Server) onCasualty(ev bus.Event) error {
	c, ok := ev.Data().(game.Casualty)
	if !ok {
		return fmt.Errorf("unexpected casualty payload %T", ev.Data())
	}

	s.mu.Lock()
	sessions := append([]*Session(nil), s.order...)
	s.mu.Unlock()

	for _, sess := range sessions {
		switch {
		case sess.avatar == c.Entity:
			sess.avatar = models.NoEntity
			sess.deaths++
			sess.respawnAt = s.world.Now() + s.cfg.Match.RespawnDelay
			if sess.respawnAt == 0 {
				sess.respawnAt = 1
			}
		case c.Killer != models.NoEntity && sess.avatar == c.Killer:
			sess.kills++
		}
	}
	s.logger.Debug("Ship destroyed", log.Uint32("entity", uint32(c.Entity)), log.Uint32("killer", uint32(c.Killer)))
	return nil
}

// afterTick runs at the end of every tick with the world lock held.
func (s *Server) afterTick(time.Duration) {
	s.mu.Lock()
	sessions := append([]*Session(nil), s.order...)
	s.mu.Unlock()

	now := s.world.Now()
	for _, sess := range sessions {
		if sess.respawnAt != 0 && sess.avatar == models.NoEntity && now >= sess.respawnAt {
			s.respawn(sess)
		}
		sess.flush()
	}
}

func (s *Server) respawn(sess *Session) {
	if err := s.spawnAvatar(sess); err != nil {
		s.logger.Warn("Respawn failed", log.String("session_id", sess.id), log.Error(err))
		return
	}
	sess.client.Outbox().Push(protocol.EncodeAssign(sess.avatar))
	s.logger.Debug("Player respawned", log.String("session_id", sess.id), log.Uint32("avatar", uint32(sess.avatar)))
}

// populate spawns the configured gravity wells and a seeded asteroid field.
func (s *Server) populate() error {
	for i, w := range s.cfg.World.Wells {
		if _, err := s.game.Factory.SpawnGravityWell(vmath.V2(w.X, w.Y), w.Strength, w.Radius); err != nil {
			return fmt.Errorf("gravity well %d: %w", i, err)
		}
	}

	cfg := s.grid.Config()
	rng := rand.New(rand.NewPCG(uint64(s.cfg.World.Asteroids), 0x5eed))
	for i := 0; i < s.cfg.World.Asteroids; i++ {
		radius := asteroidMin + rng.Float64()*(asteroidMax-asteroidMin)
		at := vmath.V2(
			radius+rng.Float64()*(cfg.Width-2*radius),
			radius+rng.Float64()*(cfg.Height-2*radius),
		)
		velocity := vmath.FromAngle(rng.Float64() * 2 * math.Pi).Scale(20 + rng.Float64()*40)
		spin := rng.Float64() - 0.5
		if _, err := s.game.Factory.SpawnAsteroid(at, velocity, radius, spin); err != nil {
			return fmt.Errorf("asteroid %d: %w", i, err)
		}
	}

	s.logger.Info("World populated",
		log.Int("gravity_wells", len(s.cfg.World.Wells)),
		log.Int("asteroids", s.cfg.World.Asteroids),
		log.Int("entities", s.world.Len()),
	)
	return nil
}
