// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package packet

import (
	"encoding/json"
	"fmt"

	"cosmossdk.io/math"
)

// State is the lifecycle position of a cross-chain packet.
type State int

const (
	Sent State = iota
	Committed
	Acknowledged
	TimedOut
	// Reverted applies to a send that failed before any packet left the
	// source chain.
	Reverted
)

func (s State) String() string {
	switch s {
	case Sent:
		return "sent"
	case Committed:
		return "committed"
	case Acknowledged:
		return "acknowledged"
	case TimedOut:
		return "timed-out"
	case Reverted:
		return "reverted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s State) IsTerminal() bool {
	switch s {
	case Acknowledged, TimedOut, Reverted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether [next] may directly follow [s].
func (s State) CanTransitionTo(next State) bool {
	switch s {
	case Sent:
		return next == Committed
	case Committed:
		return next == Acknowledged || next == TimedOut
	default:
		return false
	}
}

// Packet identifies a transfer between two chains.
type Packet struct {
	SourceChain      string   `json:"sourceChain"`
	DestinationChain string   `json:"destinationChain"`
	PortID           string   `json:"portID"`
	ChannelID        string   `json:"channelID"`
	Sequence         uint64   `json:"sequence"`
	Amount           math.Int `json:"amount"`
	SourceDenom      string   `json:"sourceDenom"`
	DestinationDenom string   `json:"destinationDenom"`
	// Timeout is the relayer-facing timeout value. Zero means no timeout.
	Timeout uint64 `json:"timeout"`
}
