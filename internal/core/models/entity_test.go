package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/spacewar/pkg/encoding"
)

type marker struct {
	Base
	tag Tag
}

func (m *marker) Tag() Tag { return m.tag }

type payload struct {
	Base
	value uint8
}

func (p *payload) Tag() Tag { return TagAnimation }

func (p *payload) MarshalWire(w *encoding.Writer) { w.WriteUint8(p.value) }

func TestEntity_AddRemove(t *testing.T) {
	e := NewEntity(1, true, nil)
	m := &marker{tag: TagTeam}

	require.NoError(t, e.Add(m))
	assert.Same(t, e, m.Entity())
	assert.True(t, e.Has(TagTeam))

	err := e.Add(&marker{tag: TagTeam})
	assert.ErrorIs(t, err, ErrDuplicateTag)

	other := NewEntity(2, false, nil)
	assert.ErrorIs(t, other.Add(m), ErrComponentBound)

	removed, ok := e.Remove(TagTeam)
	require.True(t, ok)
	assert.Same(t, m, removed)
	assert.Nil(t, m.Entity())
	assert.False(t, e.Has(TagTeam))
}

func TestEntity_InvalidTag(t *testing.T) {
	e := NewEntity(1, false, nil)
	assert.ErrorIs(t, e.Add(&marker{tag: TagNone}), ErrInvalidTag)
	assert.ErrorIs(t, e.Add(&marker{tag: TagCount}), ErrInvalidTag)
}

func TestEntity_SerializableOrder(t *testing.T) {
	e := NewEntity(1, true, nil)
	require.NoError(t, e.Add(&marker{tag: TagCombat}))
	require.NoError(t, e.Add(&payload{value: 9}))

	var seen []Tag
	e.EachSerializable(func(s Serializable) { seen = append(seen, s.Tag()) })
	assert.Equal(t, []Tag{TagAnimation}, seen)
	assert.Equal(t, []Tag{TagAnimation, TagCombat}, e.Tags())

	p, ok := ComponentOf[*payload](e, TagAnimation)
	require.True(t, ok)
	assert.Equal(t, uint8(9), p.value)

	_, ok = ComponentOf[*payload](e, TagCombat)
	assert.False(t, ok)
}

func TestEntity_MarkChangedIsMonotonic(t *testing.T) {
	clock := &Clock{}
	a := NewEntity(1, true, clock)
	b := NewEntity(2, true, clock)

	before := a.LastChanged()
	assert.Greater(t, b.LastChanged(), before)

	a.MarkChanged()
	assert.Greater(t, a.LastChanged(), b.LastChanged())
	assert.Equal(t, clock.Last(), a.LastChanged())
}

func TestTag_String(t *testing.T) {
	assert.Equal(t, "position", TagPosition.String())
	assert.Equal(t, "tag(200)", Tag(200).String())
}
