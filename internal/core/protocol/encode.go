package protocol

import (
	"math"
	"time"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/pkg/encoding"
)

// WriteEntity writes an entity block: the id, then each serializable component
// as its tag byte followed by its payload, then a zero tag.
func WriteEntity(w *encoding.Writer, e *models.Entity) {
	w.WriteUint32(uint32(e.ID()))
	e.EachSerializable(func(c models.Serializable) {
		w.WriteUint8(uint8(c.Tag()))
		c.MarshalWire(w)
	})
	w.WriteUint8(uint8(models.TagNone))
}

func frame(op Opcode, body func(w *encoding.Writer)) []byte {
	w := encoding.AcquireWriter()
	defer encoding.ReleaseWriter(w)

	w.WriteUint8(uint8(op))
	if body != nil {
		body(w)
	}
	return w.Clone()
}

func EncodeClientIsReady() []byte {
	return frame(OpClientIsReady, nil)
}

// EncodeCountdown carries the remaining time in milliseconds.
func EncodeCountdown(remaining time.Duration) []byte {
	ms := remaining.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms > math.MaxInt32 {
		ms = math.MaxInt32
	}
	return frame(OpStartGameCountdown, func(w *encoding.Writer) {
		w.WriteInt32(int32(ms))
	})
}

func EncodeAssign(local models.EntityID) []byte {
	return frame(OpAssignLocalObject, func(w *encoding.Writer) {
		w.WriteUint32(uint32(local))
	})
}

// MaxWelcomeEntities is the most entities a WelcomePacket can carry; the count
// is a signed 16-bit field.
const MaxWelcomeEntities = math.MaxInt16

// EncodeWelcome carries the local entity id and the full state of every entity
// currently visible to the client. Entities past MaxWelcomeEntities are dropped.
func EncodeWelcome(local models.EntityID, visible []*models.Entity) []byte {
	if len(visible) > MaxWelcomeEntities {
		visible = visible[:MaxWelcomeEntities]
	}
	return frame(OpWelcomePacket, func(w *encoding.Writer) {
		w.WriteUint32(uint32(local))
		w.WriteInt16(int16(len(visible)))
		for _, e := range visible {
			WriteEntity(w, e)
		}
	})
}

func EncodeInput(in Input) []byte {
	return frame(OpUpdatePlayerInput, in.MarshalWire)
}

func EncodeCreate(e *models.Entity) []byte {
	return frame(OpCreateObject, func(w *encoding.Writer) { WriteEntity(w, e) })
}

func EncodeUpdate(e *models.Entity) []byte {
	return frame(OpUpdateObject, func(w *encoding.Writer) { WriteEntity(w, e) })
}

func EncodeDestroy(id models.EntityID) []byte {
	return frame(OpDestroyObject, func(w *encoding.Writer) {
		w.WriteUint32(uint32(id))
	})
}
