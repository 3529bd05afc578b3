// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// PacketQuerierABI describes the view methods a relay-test contract exposes
// over the chain's IBC precompile.
const PacketQuerierABI = `[
	{"type":"function","name":"nativeHasCommit","stateMutability":"view",
	 "inputs":[{"name":"portID","type":"string"},{"name":"channelID","type":"string"},{"name":"sequence","type":"uint64"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"nativeQueryNextSeq","stateMutability":"view",
	 "inputs":[{"name":"portID","type":"string"},{"name":"channelID","type":"string"}],
	 "outputs":[{"name":"","type":"uint64"}]},
	{"type":"function","name":"getLastAckSeq","stateMutability":"view",
	 "inputs":[],
	 "outputs":[{"name":"","type":"uint256"}]}
]`

// PrecompileQuerier answers packet queries through a contract's views
// instead of the node's gRPC surface.
type PrecompileQuerier struct {
	client   *EVMClient
	contract common.Address
	abi      abi.ABI
}

func NewPrecompileQuerier(client *EVMClient, contract common.Address) (*PrecompileQuerier, error) {
	parsed, err := abi.JSON(strings.NewReader(PacketQuerierABI))
	if err != nil {
		return nil, err
	}
	return &PrecompileQuerier{
		client:   client,
		contract: contract,
		abi:      parsed,
	}, nil
}

func (q *PrecompileQuerier) HasCommitment(ctx context.Context, portID string, channelID string, sequence uint64) (bool, error) {
	out, err := q.client.CallContract(ctx, q.contract, q.abi, "nativeHasCommit", portID, channelID, sequence)
	if err != nil {
		return false, err
	}
	if len(out) != 1 {
		return false, fmt.Errorf("%w: nativeHasCommit returned %d values", ErrInvalidResponse, len(out))
	}
	exists, ok := out[0].(bool)
	if !ok {
		return false, fmt.Errorf("%w: nativeHasCommit returned %T", ErrInvalidResponse, out[0])
	}
	return exists, nil
}

func (q *PrecompileQuerier) NextSequenceSend(ctx context.Context, portID string, channelID string) (uint64, error) {
	out, err := q.client.CallContract(ctx, q.contract, q.abi, "nativeQueryNextSeq", portID, channelID)
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("%w: nativeQueryNextSeq returned %d values", ErrInvalidResponse, len(out))
	}
	seq, ok := out[0].(uint64)
	if !ok {
		return 0, fmt.Errorf("%w: nativeQueryNextSeq returned %T", ErrInvalidResponse, out[0])
	}
	return seq, nil
}

// LastAckSequence returns the sequence of the last acknowledgement the
// contract observed.
func (q *PrecompileQuerier) LastAckSequence(ctx context.Context) (uint64, error) {
	out, err := q.client.CallContract(ctx, q.contract, q.abi, "getLastAckSeq")
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("%w: getLastAckSeq returned %d values", ErrInvalidResponse, len(out))
	}
	seq, ok := out[0].(*big.Int)
	if !ok || !seq.IsUint64() {
		return 0, fmt.Errorf("%w: getLastAckSeq returned %v", ErrInvalidResponse, out[0])
	}
	return seq.Uint64(), nil
}
