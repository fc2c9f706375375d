package generic

import "sync"

// Pool is a typed sync.Pool with an optional reset hook applied on Put.
type Pool[T any] struct {
	pool  sync.Pool
	reset func(T)
}

func NewPool[T any](generate func() T) *Pool[T] {
	return &Pool[T]{
		pool: sync.Pool{
			New: func() any {
				return generate()
			},
		},
	}
}

// WithReset sets the hook that clears values before they go back to the pool.
func (p *Pool[T]) WithReset(reset func(T)) *Pool[T] {
	p.reset = reset
	return p
}

func (p *Pool[T]) Get() T {
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(value T) {
	if p.reset != nil {
		p.reset(value)
	}
	p.pool.Put(value)
}
