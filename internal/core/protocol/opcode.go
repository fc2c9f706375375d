package protocol

import (
	"errors"
	"fmt"
)

// Opcode is the first byte of every frame.
type Opcode uint8

const (
	OpClientIsReady      Opcode = 1
	OpStartGameCountdown Opcode = 2
	OpAssignLocalObject  Opcode = 3
	OpWelcomePacket      Opcode = 4
	OpUpdatePlayerInput  Opcode = 5
	OpCreateObject       Opcode = 6
	OpUpdateObject       Opcode = 7
	OpDestroyObject      Opcode = 8
)

func (o Opcode) String() string {
	switch o {
	case OpClientIsReady:
		return "ClientIsReady"
	case OpStartGameCountdown:
		return "StartGameCountdown"
	case OpAssignLocalObject:
		return "AssignLocalObject"
	case OpWelcomePacket:
		return "WelcomePacket"
	case OpUpdatePlayerInput:
		return "UpdatePlayerInput"
	case OpCreateObject:
		return "CreateObject"
	case OpUpdateObject:
		return "UpdateObject"
	case OpDestroyObject:
		return "DestroyObject"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(o))
	}
}

// FromClient reports whether clients may send o.
func (o Opcode) FromClient() bool {
	return o == OpClientIsReady || o == OpUpdatePlayerInput
}

var (
	ErrEmptyFrame       = errors.New("empty frame")
	ErrUnknownOpcode    = errors.New("unknown opcode")
	ErrUnexpectedOpcode = errors.New("opcode not valid in this direction")
	ErrInvalidAxis      = errors.New("invalid input axis value")
	ErrUnknownComponent = errors.New("unknown component tag")
	ErrTrailingBytes    = errors.New("unexpected payload length")
	ErrNegativeCount    = errors.New("negative entity count")
)
