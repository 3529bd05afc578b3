// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain provides uniform access to the ledgers under test regardless
// of whether a node is reached through gRPC, Comet JSON-RPC, REST or the EVM
// JSON-RPC surface.
package chain

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrUnsupportedTx    = errors.New("unsupported transaction kind")
	ErrUnsupportedDenom = errors.New("unsupported denom")
	ErrUnknownAccount   = errors.New("unknown account")
	ErrInvalidResponse  = errors.New("invalid response")
	ErrNotFound         = errors.New("not found")
)

// Client is the narrow interface the harness needs from a running ledger.
type Client interface {
	ChainID() string

	// Balance returns the amount of [denom] held by [address] as of the
	// latest committed block. Nothing is cached.
	Balance(ctx context.Context, address string, denom string) (math.Int, error)

	// Submit signs and broadcasts [tx] and blocks until it is included. A
	// transaction that executes and fails on chain is reported through the
	// receipt's status, not through the error.
	Submit(ctx context.Context, tx TxSpec) (*Receipt, error)

	// RawCall invokes an arbitrary method on the node's JSON-RPC surface.
	RawCall(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
}

// TxSpec is the set of transactions the harness knows how to submit.
type TxSpec interface {
	kind() string
}

var (
	_ TxSpec = (*NativeTransfer)(nil)
	_ TxSpec = (*CLIMessage)(nil)
	_ TxSpec = (*ContractCall)(nil)
)

// NativeTransfer moves [Amount] of [Denom] from the keyring account [From] to
// the address [To].
type NativeTransfer struct {
	From   string
	To     string
	Amount math.Int
	Denom  string
}

func (*NativeTransfer) kind() string {
	return "native transfer"
}

// CLIMessage is a transaction expressed as the arguments following `tx` on the
// chain's command line, e.g. {"ibc-transfer", "transfer", "transfer",
// "channel-0", "<receiver>", "10basecro"}.
type CLIMessage struct {
	From string
	Args []string
	// Gas overrides the client's default gas setting.
	Gas string
	// Fees overrides the client's default gas prices.
	Fees string
}

func (*CLIMessage) kind() string {
	return "cli message"
}

// ContractCall invokes [Method] of the contract at [To].
type ContractCall struct {
	From   string
	To     common.Address
	ABI    abi.ABI
	Method string
	Args   []interface{}
	// Value is the native amount attached to the call. May be nil.
	Value *big.Int
	// Gas is estimated when zero. Calls that are expected to revert must set
	// it, since estimation of a reverting call fails before broadcast.
	Gas uint64
	// Nonce pins the sender nonce. The pending nonce is used when nil.
	Nonce *uint64
}

func (*ContractCall) kind() string {
	return "contract call"
}
