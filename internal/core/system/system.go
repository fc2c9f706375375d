package system

import (
	"errors"
	"time"

	"github.com/zeusync/spacewar/internal/core/models"
)

var (
	ErrDuplicateSystem   = errors.New("system already registered for tag")
	ErrSystemNotFound    = errors.New("system not registered")
	ErrNoAttacher        = errors.New("system does not accept components")
	ErrAlreadyAttached   = errors.New("component already attached")
	ErrNotAttached       = errors.New("component not attached")
	ErrWrongComponent    = errors.New("component has wrong type for system")
	ErrDetachedComponent = errors.New("component has no owning entity")
)

// System is anything the dispatcher can hold. Each system owns exactly one capability tag.
type System interface {
	Tag() models.Tag
	Name() string
}

// Updater systems are invoked once per tick, in registration order.
// Systems that only hold passive data do not implement it.
type Updater interface {
	Update(dt float64) error
}

// Passive systems implement Updater but ask not to be ticked.
type Passive interface {
	Passive() bool
}

// Attacher systems keep a table of components keyed by entity id.
type Attacher interface {
	Attach(c models.Component) error
	Detach(id models.EntityID) error
}

// Metrics are per-system tick counters kept by the dispatcher.
type Metrics struct {
	ExecutionCount     uint64
	ErrorCount         uint64
	PanicCount         uint64
	TotalExecutionTime time.Duration
	MaxExecutionTime   time.Duration
	LastExecutionTime  time.Duration
	LastError          error
}
