// Package state models the per-connection protocol state machine
// (HANDSHAKE, STATUS, LOGIN, CONFIG, PLAY) and the packet registries keyed
// by (state, direction, protocol version).
package state

import "fmt"

// ConnectionState is one stage of the connection state machine.
type ConnectionState uint8

const (
	Handshake ConnectionState = iota
	Status
	Login
	Config
	Play
	Closed
)

func (s ConnectionState) String() string {
	switch s {
	case Handshake:
		return "HANDSHAKE"
	case Status:
		return "STATUS"
	case Login:
		return "LOGIN"
	case Config:
		return "CONFIG"
	case Play:
		return "PLAY"
	case Closed:
		return "CLOSED"
	default:
		return fmt.Sprintf("ConnectionState(%d)", uint8(s))
	}
}
