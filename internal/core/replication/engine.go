package replication

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/observability/log"
	"github.com/zeusync/spacewar/internal/core/protocol"
	"github.com/zeusync/spacewar/internal/core/spatial"
	"github.com/zeusync/spacewar/internal/core/system"
	"github.com/zeusync/spacewar/pkg/vmath"
)

var (
	ErrClientExists   = errors.New("replication client already registered")
	ErrClientNotFound = errors.New("replication client not found")
	ErrClientState    = errors.New("replication client in wrong state")
)

// Locator returns the world position of an entity.
type Locator func(e *models.Entity) (vmath.Vec2, bool)

type Config struct {
	// KeepAlive is the longest an unchanged visible entity goes without an Update.
	KeepAlive time.Duration
	// OutboxLimit bounds each client's queue; 0 means unbounded.
	OutboxLimit int
}

func DefaultConfig() Config {
	return Config{
		KeepAlive:   time.Second,
		OutboxLimit: 4096,
	}
}

// Stats counts the messages queued by the last pass.
type Stats struct {
	Clients   int
	Created   int
	Updated   int
	Destroyed int
}

var _ system.Updater = (*Engine)(nil)

// Engine diffs each active client's neighbourhood against what the client was
// last sent and queues Create, Update and Destroy frames. It runs as the last
// system of a tick.
type Engine struct {
	world  *system.World
	grid   *spatial.Grid
	locate Locator
	cfg    Config

	clients []*Client
	byID    map[string]*Client

	scratch []models.EntityID
	create  map[models.EntityID][]byte
	update  map[models.EntityID][]byte
	stats   Stats

	logger log.Log
}

func New(world *system.World, grid *spatial.Grid, locate Locator, cfg Config) *Engine {
	return &Engine{
		world:  world,
		grid:   grid,
		locate: locate,
		cfg:    cfg,
		byID:   make(map[string]*Client),
		create: make(map[models.EntityID][]byte),
		update: make(map[models.EntityID][]byte),
		logger: world.Logger().With(log.String("system", "replication")),
	}
}

func (r *Engine) Tag() models.Tag { return models.TagClientNetworking }
func (r *Engine) Name() string    { return "replication" }
func (r *Engine) Config() Config  { return r.cfg }

// LastStats returns the counters of the most recent pass.
func (r *Engine) LastStats() Stats { return r.stats }

// AddClient registers a connecting client. It receives nothing until activated.
func (r *Engine) AddClient(id string) (*Client, error) {
	if _, ok := r.byID[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrClientExists, id)
	}
	c := newClient(id, r.cfg.OutboxLimit)
	r.byID[id] = c
	r.clients = append(r.clients, c)
	return c, nil
}

func (r *Engine) Client(id string) (*Client, bool) {
	c, ok := r.byID[id]
	return c, ok
}

// Clients returns the registered clients in registration order.
func (r *Engine) Clients() []*Client {
	out := make([]*Client, len(r.clients))
	copy(out, r.clients)
	return out
}

// RemoveClient marks the client disconnected and forgets it. Removing an unknown
// client is a no-op.
func (r *Engine) RemoveClient(id string) bool {
	c, ok := r.byID[id]
	if !ok {
		return false
	}
	c.state = StateDisconnected
	clear(c.record)
	delete(r.byID, id)
	for i, candidate := range r.clients {
		if candidate == c {
			r.clients = append(r.clients[:i], r.clients[i+1:]...)
			break
		}
	}
	return true
}

// Activate binds the client to its avatar and starts replication. It may be
// called again later to move the client to a new avatar.
func (r *Engine) Activate(id string, avatar models.EntityID) error {
	c, ok := r.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	if c.state == StateDisconnected {
		return fmt.Errorf("%w: %s is %s", ErrClientState, id, c.state)
	}
	c.state = StateActive
	c.avatar = avatar
	r.refocus(c)
	return nil
}

// Welcome queues a WelcomePacket with every entity visible to the client and
// records them as sent, so the next pass does not create them again. Entities
// that do not fit in the packet are left to the next pass.
func (r *Engine) Welcome(id string) (int, error) {
	c, ok := r.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	if c.state != StateActive {
		return 0, fmt.Errorf("%w: %s is %s", ErrClientState, id, c.state)
	}

	visible, err := r.visible(c)
	if err != nil {
		return 0, err
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].ID() < visible[j].ID() })
	if len(visible) > protocol.MaxWelcomeEntities {
		visible = visible[:protocol.MaxWelcomeEntities]
	}

	stamp := r.world.Clock().Next()
	clear(c.record)
	for _, e := range visible {
		c.record[e.ID()] = sent{stamp: stamp, at: r.world.Now()}
	}
	c.outbox.Push(protocol.EncodeWelcome(c.avatar, visible))
	return len(visible), nil
}

// Broadcast queues frame for every active client.
func (r *Engine) Broadcast(frame []byte) {
	for _, c := range r.clients {
		if c.state == StateActive {
			c.outbox.Push(frame)
		}
	}
}

// Update runs one replication pass over every active client in registration order.
func (r *Engine) Update(float64) error {
	clear(r.create)
	clear(r.update)
	r.stats = Stats{}

	stamp := r.world.Clock().Next()
	now := r.world.Now()

	var all error
	for _, c := range r.clients {
		if c.state != StateActive {
			continue
		}
		r.stats.Clients++
		if err := r.replicate(c, stamp, now); err != nil {
			all = errors.Join(all, fmt.Errorf("client %s: %w", c.id, err))
		}
	}
	return all
}

func (r *Engine) replicate(c *Client, stamp models.Stamp, now time.Duration) error {
	visible, err := r.visible(c)
	if err != nil {
		return err
	}

	next := c.spare
	clear(next)

	for _, e := range visible {
		id := e.ID()
		prev, known := c.record[id]
		switch {
		case !known:
			c.outbox.Push(r.frame(r.create, e, protocol.EncodeCreate))
			next[id] = sent{stamp: stamp, at: now}
			r.stats.Created++
		case e.LastChanged() > prev.stamp || now-prev.at >= r.cfg.KeepAlive:
			c.outbox.Push(r.frame(r.update, e, protocol.EncodeUpdate))
			next[id] = sent{stamp: stamp, at: now}
			r.stats.Updated++
		default:
			next[id] = prev
		}
	}

	for id := range c.record {
		if _, still := next[id]; !still {
			c.outbox.Push(protocol.EncodeDestroy(id))
			r.stats.Destroyed++
		}
	}

	c.spare = c.record
	c.record = next
	return nil
}

// visible lists the live serializable entities in the client's neighbourhood.
// A client whose avatar is gone keeps watching the avatar's last position.
func (r *Engine) visible(c *Client) ([]*models.Entity, error) {
	r.refocus(c)
	if !c.hasFocus {
		return nil, nil
	}

	ids, err := r.grid.AppendNeighborhood(r.scratch[:0], c.focus)
	r.scratch = ids
	if err != nil {
		return nil, err
	}

	out := make([]*models.Entity, 0, len(ids))
	for _, id := range ids {
		e, ok := r.world.Entity(id)
		if !ok || !e.Serializable() {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Engine) refocus(c *Client) {
	if c.avatar == models.NoEntity {
		return
	}
	e, ok := r.world.Entity(c.avatar)
	if !ok {
		return
	}
	if p, ok := r.locate(e); ok {
		c.focus = p
		c.hasFocus = true
	}
}

// frame encodes e once per pass and shares the bytes across clients.
func (r *Engine) frame(cache map[models.EntityID][]byte, e *models.Entity, encode func(*models.Entity) []byte) []byte {
	if b, ok := cache[e.ID()]; ok {
		return b
	}
	b := encode(e)
	cache[e.ID()] = b
	return b
}
