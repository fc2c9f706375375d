package replication

import (
	"fmt"
	"time"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/pkg/vmath"
)

type State uint8

const (
	StateConnecting State = iota
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

type sent struct {
	stamp models.Stamp
	at    time.Duration
}

// Client is the replication view of one connection: what it was last sent and
// where its outbound frames go.
type Client struct {
	id     string
	state  State
	avatar models.EntityID

	focus    vmath.Vec2
	hasFocus bool

	record map[models.EntityID]sent
	spare  map[models.EntityID]sent

	outbox *Outbox
}

func newClient(id string, outboxLimit int) *Client {
	return &Client{
		id:     id,
		state:  StateConnecting,
		record: make(map[models.EntityID]sent),
		spare:  make(map[models.EntityID]sent),
		outbox: NewOutbox(outboxLimit),
	}
}

func (c *Client) ID() string              { return c.id }
func (c *Client) State() State            { return c.state }
func (c *Client) Avatar() models.EntityID { return c.avatar }
func (c *Client) Outbox() *Outbox         { return c.outbox }

// Known reports whether the client was sent id and not told it was destroyed.
func (c *Client) Known(id models.EntityID) bool {
	_, ok := c.record[id]
	return ok
}

// KnownCount is the number of entities the client currently holds.
func (c *Client) KnownCount() int {
	return len(c.record)
}

// Focus is the point the client's neighbourhood is computed around.
func (c *Client) Focus() (vmath.Vec2, bool) {
	return c.focus, c.hasFocus
}
