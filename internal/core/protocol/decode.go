package protocol

import (
	"fmt"
	"time"

	"github.com/zeusync/spacewar/internal/core/models"
	"github.com/zeusync/spacewar/pkg/encoding"
)

// ComponentDecoder reads one component payload, the tag byte already consumed.
type ComponentDecoder func(r *encoding.Reader) (encoding.Marshaler, error)

// Decoders maps component tags to their payload readers.
type Decoders map[models.Tag]ComponentDecoder

// EntityState is a decoded entity block.
type EntityState struct {
	ID         models.EntityID
	Components map[models.Tag]encoding.Marshaler
}

// Message is any decoded frame. Only the fields used by Op are set.
type Message struct {
	Op        Opcode
	Countdown time.Duration
	Entity    models.EntityID
	Entities  []EntityState
	Input     Input
}

// DecodeClient parses a frame received from a client.
func DecodeClient(frame []byte) (Message, error) {
	if len(frame) == 0 {
		return Message{}, ErrEmptyFrame
	}
	op := Opcode(frame[0])
	switch op {
	case OpClientIsReady:
		if len(frame) != 1 {
			return Message{}, fmt.Errorf("%s: %w", op, ErrTrailingBytes)
		}
		return Message{Op: op}, nil
	case OpUpdatePlayerInput:
		in, err := DecodeInput(frame[1:])
		if err != nil {
			return Message{}, fmt.Errorf("%s: %w", op, err)
		}
		return Message{Op: op, Input: in}, nil
	case OpStartGameCountdown, OpAssignLocalObject, OpWelcomePacket, OpCreateObject, OpUpdateObject, OpDestroyObject:
		return Message{}, fmt.Errorf("%w: %s", ErrUnexpectedOpcode, op)
	default:
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownOpcode, uint8(op))
	}
}

// DecodeServer parses a frame sent by the server.
func DecodeServer(frame []byte, decoders Decoders) (Message, error) {
	if len(frame) == 0 {
		return Message{}, ErrEmptyFrame
	}
	r := encoding.NewReader(frame[1:])
	msg := Message{Op: Opcode(frame[0])}

	switch msg.Op {
	case OpStartGameCountdown:
		msg.Countdown = time.Duration(r.ReadInt32()) * time.Millisecond
	case OpAssignLocalObject, OpDestroyObject:
		msg.Entity = models.EntityID(r.ReadUint32())
	case OpWelcomePacket:
		msg.Entity = models.EntityID(r.ReadUint32())
		count := int(r.ReadInt16())
		if count < 0 {
			return Message{}, fmt.Errorf("%w: %d", ErrNegativeCount, count)
		}
		if r.Err() == nil {
			msg.Entities = make([]EntityState, 0, count)
		}
		for i := 0; i < count && r.Err() == nil; i++ {
			state, err := ReadEntity(r, decoders)
			if err != nil {
				return Message{}, fmt.Errorf("%s entity %d: %w", msg.Op, i, err)
			}
			msg.Entities = append(msg.Entities, state)
		}
	case OpCreateObject, OpUpdateObject:
		state, err := ReadEntity(r, decoders)
		if err != nil {
			return Message{}, fmt.Errorf("%s: %w", msg.Op, err)
		}
		msg.Entities = []EntityState{state}
	case OpClientIsReady, OpUpdatePlayerInput:
		return Message{}, fmt.Errorf("%w: %s", ErrUnexpectedOpcode, msg.Op)
	default:
		return Message{}, fmt.Errorf("%w: %d", ErrUnknownOpcode, uint8(msg.Op))
	}

	if err := r.Err(); err != nil {
		return Message{}, fmt.Errorf("%s: %w", msg.Op, err)
	}
	if r.Remaining() != 0 {
		return Message{}, fmt.Errorf("%s: %w: %d bytes left", msg.Op, ErrTrailingBytes, r.Remaining())
	}
	return msg, nil
}

// ReadEntity reads one entity block. Component lists end at the zero tag.
func ReadEntity(r *encoding.Reader, decoders Decoders) (EntityState, error) {
	state := EntityState{
		ID:         models.EntityID(r.ReadUint32()),
		Components: make(map[models.Tag]encoding.Marshaler, 4),
	}
	for {
		tag := models.Tag(r.ReadUint8())
		if err := r.Err(); err != nil {
			return EntityState{}, err
		}
		if tag == models.TagNone {
			return state, nil
		}
		decode, ok := decoders[tag]
		if !ok {
			return EntityState{}, fmt.Errorf("%w: %s", ErrUnknownComponent, tag)
		}
		c, err := decode(r)
		if err != nil {
			return EntityState{}, fmt.Errorf("%s: %w", tag, err)
		}
		if err = r.Err(); err != nil {
			return EntityState{}, fmt.Errorf("%s: %w", tag, err)
		}
		state.Components[tag] = c
	}
}
