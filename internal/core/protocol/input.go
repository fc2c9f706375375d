package protocol

import (
	"fmt"

	"github.com/zeusync/spacewar/pkg/encoding"
)

// Axis is a control axis value in {-1, 0, +1}. On the wire it is one byte:
// 0 for -1, 1 for 0 and 2 for +1.
type Axis int8

func AxisFromWire(b byte) (Axis, error) {
	if b > 2 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidAxis, b)
	}
	return Axis(int8(b) - 1), nil
}

func (a Axis) Wire() byte {
	switch {
	case a < 0:
		return 0
	case a > 0:
		return 2
	default:
		return 1
	}
}

// Input is the UpdatePlayerInput payload: forward, strafe and turn axes followed
// by the attack flag. Strafe is positive to the ship's right.
type Input struct {
	Forward Axis
	Strafe  Axis
	Turn    Axis
	Attack  bool
}

const inputPayloadSize = 4

func (in Input) MarshalWire(w *encoding.Writer) {
	w.WriteUint8(in.Forward.Wire())
	w.WriteUint8(in.Strafe.Wire())
	w.WriteUint8(in.Turn.Wire())
	w.WriteBool(in.Attack)
}

// DecodeInput parses the payload that follows the UpdatePlayerInput opcode.
func DecodeInput(payload []byte) (Input, error) {
	if len(payload) != inputPayloadSize {
		return Input{}, fmt.Errorf("%w: input payload is %d bytes, want %d", ErrTrailingBytes, len(payload), inputPayloadSize)
	}
	var (
		in  Input
		err error
	)
	if in.Forward, err = AxisFromWire(payload[0]); err != nil {
		return Input{}, fmt.Errorf("forward: %w", err)
	}
	if in.Strafe, err = AxisFromWire(payload[1]); err != nil {
		return Input{}, fmt.Errorf("strafe: %w", err)
	}
	if in.Turn, err = AxisFromWire(payload[2]); err != nil {
		return Input{}, fmt.Errorf("turn: %w", err)
	}
	in.Attack = payload[3] != 0
	return in, nil
}
