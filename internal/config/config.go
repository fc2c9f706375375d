// Package config loads the server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/replication"
	"github.com/zeusync/spacewar/internal/core/spatial"
	"github.com/zeusync/spacewar/internal/core/transport/quic"
	"github.com/zeusync/spacewar/internal/core/transport/websocket"
	"github.com/zeusync/spacewar/internal/game"
	"github.com/zeusync/spacewar/internal/simulation"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Log         LogConfig         `yaml:"log"`
	Server      ServerConfig      `yaml:"server"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	World       WorldConfig       `yaml:"world"`
	Replication ReplicationConfig `yaml:"replication"`
	Match       MatchConfig       `yaml:"match"`
	Tuning      game.Tuning       `yaml:"tuning"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type ServerConfig struct {
	// Addr serves /ws, /healthz and /debug/world.
	Addr string `yaml:"addr"`
	// QUICAddr enables the QUIC listener when set.
	QUICAddr   string           `yaml:"quic_addr"`
	MaxClients int              `yaml:"max_clients"`
	WebSocket  websocket.Config `yaml:"websocket"`
	QUIC       quic.Config      `yaml:"quic"`
}

type SimulationConfig struct {
	TickRate int `yaml:"tick_rate"`
	// MaxStep optionally caps the delta after a stall. Zero passes the measured
	// delta through unchanged.
	MaxStep time.Duration `yaml:"max_step"`
	// Strict panics on logic errors and failed audits.
	Strict bool `yaml:"strict"`
}

type WorldConfig struct {
	Width        float64      `yaml:"width"`
	Height       float64      `yaml:"height"`
	CellWidth    float64      `yaml:"cell_width"`
	CellHeight   float64      `yaml:"cell_height"`
	Neighborhood string       `yaml:"neighborhood"`
	Wells        []WellConfig `yaml:"gravity_wells"`
	Asteroids    int          `yaml:"asteroids"`
}

type WellConfig struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Strength float64 `yaml:"strength"`
	Radius   float64 `yaml:"radius"`
}

type ReplicationConfig struct {
	KeepAlive   time.Duration `yaml:"keep_alive"`
	OutboxLimit int           `yaml:"outbox_limit"`
}

type MatchConfig struct {
	Countdown    time.Duration `yaml:"countdown"`
	RespawnDelay time.Duration `yaml:"respawn_delay"`
	Tokens       []TokenConfig `yaml:"tokens"`
	// TicketSecret enables signed admission tickets when set.
	TicketSecret string `yaml:"ticket_secret"`
}

type TokenConfig struct {
	Value string `yaml:"value"`
	Team  uint8  `yaml:"team"`
}

// Default returns a complete configuration for a local two player match.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			Addr:       ":8080",
			MaxClients: 64,
			WebSocket:  websocket.DefaultConfig(),
			QUIC:       quic.DefaultConfig(),
		},
		Simulation: SimulationConfig{
			TickRate: 20,
		},
		World: WorldConfig{
			Width:        4000,
			Height:       4000,
			CellWidth:    500,
			CellHeight:   500,
			Neighborhood: spatial.Neighborhood3x3.String(),
			Wells:        []WellConfig{{X: 2000, Y: 2000}},
			Asteroids:    12,
		},
		Replication: ReplicationConfig{
			KeepAlive:   replication.DefaultConfig().KeepAlive,
			OutboxLimit: replication.DefaultConfig().OutboxLimit,
		},
		Match: MatchConfig{
			Countdown:    3 * time.Second,
			RespawnDelay: 2 * time.Second,
		},
		Tuning: game.DefaultTuning(),
	}
}

// Load reads path on top of the defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads YAML on top of the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level: %v", ErrInvalid, err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server addr is empty", ErrInvalid)
	}
	if c.Server.MaxClients < 0 {
		return fmt.Errorf("%w: max clients %d", ErrInvalid, c.Server.MaxClients)
	}
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("%w: tick rate %d", ErrInvalid, c.Simulation.TickRate)
	}
	if _, err := c.World.Grid(); err != nil {
		return fmt.Errorf("%w: world: %v", ErrInvalid, err)
	}
	if c.World.Asteroids < 0 {
		return fmt.Errorf("%w: asteroids %d", ErrInvalid, c.World.Asteroids)
	}
	if c.Replication.KeepAlive <= 0 {
		return fmt.Errorf("%w: keep alive %s", ErrInvalid, c.Replication.KeepAlive)
	}
	if c.Match.Countdown < 0 || c.Match.RespawnDelay < 0 {
		return fmt.Errorf("%w: negative match timer", ErrInvalid)
	}

	seen := make(map[string]struct{}, len(c.Match.Tokens))
	for i, t := range c.Match.Tokens {
		if t.Value == "" {
			return fmt.Errorf("%w: token %d is empty", ErrInvalid, i)
		}
		if _, dup := seen[t.Value]; dup {
			return fmt.Errorf("%w: token %d is a duplicate", ErrInvalid, i)
		}
		seen[t.Value] = struct{}{}
	}
	return nil
}

// Grid converts the world section into a validated grid configuration.
func (w WorldConfig) Grid() (spatial.Config, error) {
	n, err := spatial.ParseNeighborhood(w.Neighborhood)
	if err != nil {
		return spatial.Config{}, err
	}
	cfg := spatial.Config{
		Width:        w.Width,
		Height:       w.Height,
		CellWidth:    w.CellWidth,
		CellHeight:   w.CellHeight,
		Neighborhood: n,
	}
	return cfg, cfg.Validate()
}

func (s SimulationConfig) Loop() simulation.Config {
	return simulation.Config{
		Period:  time.Second / time.Duration(s.TickRate),
		MaxStep: s.MaxStep,
	}
}

func (r ReplicationConfig) Engine() replication.Config {
	return replication.Config{KeepAlive: r.KeepAlive, OutboxLimit: r.OutboxLimit}
}

// Logger builds the process logger.
func (l LogConfig) Logger() (*log.Logger, error) {
	level, err := log.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	if l.Development {
		return log.NewDevelopment(level), nil
	}
	return log.New(level), nil
}
