// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const replayBlockMethod = "cronos_replayBlock"

// ReplayedTx is one entry of a replayed block.
type ReplayedTx struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
	BlockNumber *hexutil.Big   `json:"blockNumber"`
}

// ReplayBlock re-executes every transaction of block [height] on the node
// and returns one entry per transaction, including failed ones.
func (c *EVMClient) ReplayBlock(ctx context.Context, height uint64) ([]ReplayedTx, error) {
	raw, err := c.RawCall(ctx, replayBlockMethod, hexutil.EncodeUint64(height))
	if err != nil {
		return nil, err
	}
	return ParseReplayedBlock(raw)
}

func ParseReplayedBlock(raw json.RawMessage) ([]ReplayedTx, error) {
	var txs []ReplayedTx
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidResponse, replayBlockMethod, err)
	}
	return txs, nil
}
