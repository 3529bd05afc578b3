// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ava-labs/ibcnet/utils/rpc"

	json2 "github.com/gorilla/rpc/v2/json2"
)

// CometStatus is the subset of the Comet `status` result the harness reads.
type CometStatus struct {
	NodeInfo struct {
		Network string `json:"network"`
		Moniker string `json:"moniker"`
	} `json:"node_info"`
	SyncInfo struct {
		LatestBlockHeight string `json:"latest_block_height"`
		LatestBlockTime   string `json:"latest_block_time"`
		CatchingUp        bool   `json:"catching_up"`
	} `json:"sync_info"`
}

func (s *CometStatus) Height() (int64, error) {
	height, err := strconv.ParseInt(s.SyncInfo.LatestBlockHeight, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: latest_block_height %q", ErrInvalidResponse, s.SyncInfo.LatestBlockHeight)
	}
	return height, nil
}

// CometTxResult is the Comet `tx` result.
type CometTxResult struct {
	Hash     string `json:"hash"`
	Height   string `json:"height"`
	TxResult struct {
		Code      uint32 `json:"code"`
		Log       string `json:"log"`
		GasWanted string `json:"gas_wanted"`
		GasUsed   string `json:"gas_used"`
		Codespace string `json:"codespace"`
		Events    []struct {
			Type       string `json:"type"`
			Attributes []struct {
				Key   string `json:"key"`
				Value string `json:"value"`
			} `json:"attributes"`
		} `json:"events"`
	} `json:"tx_result"`
}

// Receipt converts the Comet result into a chain-agnostic receipt.
func (r *CometTxResult) Receipt() (*Receipt, error) {
	height, err := strconv.ParseInt(r.Height, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: height %q", ErrInvalidResponse, r.Height)
	}
	var gasUsed uint64
	if r.TxResult.GasUsed != "" {
		gasUsed, err = strconv.ParseUint(r.TxResult.GasUsed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: gas_used %q", ErrInvalidResponse, r.TxResult.GasUsed)
		}
	}

	receipt := &Receipt{
		TxHash:  r.Hash,
		Height:  height,
		Status:  StatusSuccess,
		Code:    r.TxResult.Code,
		RawLog:  r.TxResult.Log,
		GasUsed: gasUsed,
		Events:  make([]Event, 0, len(r.TxResult.Events)),
	}
	if r.TxResult.Code != 0 {
		receipt.Status = StatusFailed
	}
	for _, e := range r.TxResult.Events {
		event := Event{
			Type:       e.Type,
			Attributes: make([]Attribute, 0, len(e.Attributes)),
		}
		for _, attr := range e.Attributes {
			event.Attributes = append(event.Attributes, Attribute{Key: attr.Key, Value: attr.Value})
		}
		receipt.Events = append(receipt.Events, event)
	}
	return receipt, nil
}

// cometRPC talks to a node's Comet JSON-RPC endpoint.
type cometRPC struct {
	requester rpc.EndpointRequester
}

func newCometRPC(rawURI string) (*cometRPC, error) {
	requester, err := rpc.NewEndpointRequester(rawURI)
	if err != nil {
		return nil, fmt.Errorf("invalid comet rpc uri: %w", err)
	}
	return &cometRPC{requester: requester}, nil
}

func (c *cometRPC) call(ctx context.Context, method string, params interface{}, reply interface{}) error {
	if params == nil {
		params = struct{}{}
	}
	return c.requester.SendRequest(ctx, method, params, reply)
}

func (c *cometRPC) status(ctx context.Context) (*CometStatus, error) {
	status := &CometStatus{}
	if err := c.call(ctx, "status", nil, status); err != nil {
		return nil, err
	}
	return status, nil
}

// tx looks up an included transaction by its hex hash. Transactions that are
// not yet indexed return ErrNotFound.
func (c *cometRPC) tx(ctx context.Context, txHash string) (*CometTxResult, error) {
	hash, err := hex.DecodeString(strings.TrimPrefix(txHash, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid tx hash %q: %w", txHash, err)
	}
	params := map[string]interface{}{
		"hash":  base64.StdEncoding.EncodeToString(hash),
		"prove": false,
	}
	result := &CometTxResult{}
	if err := c.call(ctx, "tx", params, result); err != nil {
		var rpcErr *json2.Error
		if errors.As(err, &rpcErr) && isNotFound(rpcErr) {
			return nil, fmt.Errorf("%w: tx %s", ErrNotFound, txHash)
		}
		return nil, err
	}
	return result, nil
}

func isNotFound(err *json2.Error) bool {
	if strings.Contains(err.Message, "not found") {
		return true
	}
	data, _ := err.Data.(string)
	return strings.Contains(data, "not found")
}

func (c *cometRPC) raw(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	var p interface{} = struct{}{}
	switch len(params) {
	case 0:
	case 1:
		p = params[0]
	default:
		p = params
	}
	var result json.RawMessage
	if err := c.call(ctx, method, p, &result); err != nil {
		return nil, err
	}
	return result, nil
}
