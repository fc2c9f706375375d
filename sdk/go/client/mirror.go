package client

import (
	"sort"
	"sync"
	"time"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/internal/core/protocol"
	"github.com/zeusync/spacewar/pkg/encoding"
)

// Entity is the client-side copy of a replicated entity.
type Entity struct {
	ID         models.EntityID
	Components map[models.Tag]encoding.Marshaler
}

// Component returns the decoded component with tag.
func (e Entity) Component(tag models.Tag) (encoding.Marshaler, bool) {
	c, ok := e.Components[tag]
	return c, ok
}

// Mirror rebuilds the server's view from Create, Update and Destroy messages.
// Messages are queued as they arrive and only change the mirror when Apply runs,
// so a frame loop sees a stable state between Apply calls.
type Mirror struct {
	mu      sync.Mutex
	pending []protocol.Message

	local     models.EntityID
	entities  map[models.EntityID]Entity
	countdown time.Duration
	started   bool
}

func NewMirror() *Mirror {
	return &Mirror{entities: make(map[models.EntityID]Entity)}
}

func (m *Mirror) Enqueue(msg protocol.Message) {
	m.mu.Lock()
	m.pending = append(m.pending, msg)
	m.mu.Unlock()
}

// Pending is the number of queued messages.
func (m *Mirror) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Apply runs every queued message in arrival order and returns how many ran.
func (m *Mirror) Apply() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.pending)
	for _, msg := range m.pending {
		m.apply(msg)
	}
	clear(m.pending)
	m.pending = m.pending[:0]
	return n
}

func (m *Mirror) apply(msg protocol.Message) {
	switch msg.Op {
	case protocol.OpWelcomePacket:
		m.local = msg.Entity
		clear(m.entities)
		for _, s := range msg.Entities {
			m.entities[s.ID] = Entity{ID: s.ID, Components: s.Components}
		}
	case protocol.OpAssignLocalObject:
		m.local = msg.Entity
	case protocol.OpCreateObject, protocol.OpUpdateObject:
		for _, s := range msg.Entities {
			m.entities[s.ID] = Entity{ID: s.ID, Components: s.Components}
		}
	case protocol.OpDestroyObject:
		delete(m.entities, msg.Entity)
	case protocol.OpStartGameCountdown:
		m.countdown = msg.Countdown
		m.started = true
	}
}

// Local is the entity the player controls, or models.NoEntity.
func (m *Mirror) Local() models.EntityID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.local
}

func (m *Mirror) Entity(id models.EntityID) (Entity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entities[id]
	return e, ok
}

func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entities)
}

// IDs returns the mirrored ids in ascending order.
func (m *Mirror) IDs() []models.EntityID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]models.EntityID, 0, len(m.entities))
	for id := range m.entities {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Countdown returns the last announced countdown and whether one was received.
func (m *Mirror) Countdown() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countdown, m.started
}
