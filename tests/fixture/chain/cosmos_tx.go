// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/tests/fixture/supervisor"
)

// TxBroadcastResponse is the JSON printed by `<binary> tx ... --output json`
// in sync broadcast mode.
type TxBroadcastResponse struct {
	Height    string `json:"height"`
	TxHash    string `json:"txhash"`
	Code      uint32 `json:"code"`
	Codespace string `json:"codespace"`
	RawLog    string `json:"raw_log"`
}

// ParseTxBroadcastResponse locates the broadcast result in CLI output. Some
// binaries print gas estimates before the result, so the last JSON line wins.
func ParseTxBroadcastResponse(lines []string) (*TxBroadcastResponse, error) {
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		resp := &TxBroadcastResponse{}
		if err := json.Unmarshal([]byte(line), resp); err != nil {
			continue
		}
		if resp.TxHash == "" {
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("%w: no tx response in output %q", ErrInvalidResponse, strings.Join(lines, "\n"))
}

func (c *CosmosClient) Submit(ctx context.Context, tx TxSpec) (*Receipt, error) {
	var (
		from string
		args []string
		gas  string
		fees string
	)
	switch tx := tx.(type) {
	case *NativeTransfer:
		account, err := c.keyring.Get(tx.From)
		if err != nil {
			return nil, err
		}
		from = tx.From
		args = []string{"bank", "send", account.Address, tx.To, tx.Amount.String() + tx.Denom}
	case *CLIMessage:
		from = tx.From
		args = tx.Args
		gas = tx.Gas
		fees = tx.Fees
	default:
		return nil, fmt.Errorf("%w: %s on %s", ErrUnsupportedTx, tx.kind(), c.config.ChainID)
	}

	resp, err := c.broadcast(ctx, from, args, gas, fees)
	if err != nil {
		return nil, err
	}
	if resp.Code != 0 {
		// Rejected by CheckTx, never included.
		c.log.Info("transaction rejected",
			zap.String("txHash", resp.TxHash),
			zap.Uint32("code", resp.Code),
			zap.String("rawLog", resp.RawLog),
		)
		return &Receipt{
			TxHash: resp.TxHash,
			Status: StatusFailed,
			Code:   resp.Code,
			RawLog: resp.RawLog,
		}, nil
	}
	return c.WaitForTx(ctx, resp.TxHash)
}

func (c *CosmosClient) broadcast(ctx context.Context, from string, txArgs []string, gas string, fees string) (*TxBroadcastResponse, error) {
	if c.config.Binary == "" {
		return nil, fmt.Errorf("%w: no cli binary for %s", ErrUnsupportedTx, c.config.ChainID)
	}

	args := append([]string{"tx"}, txArgs...)
	args = append(args,
		"--from", c.fromFlag(from),
		"--chain-id", c.config.ChainID,
		"--keyring-backend", c.config.KeyringBackend,
		"--broadcast-mode", "sync",
		"--output", "json",
		"-y",
	)
	args = append(args, c.commonFlags()...)

	if gas == "" {
		gas = c.config.Gas
	}
	if gas != "" {
		args = append(args, "--gas", gas)
		if gas == "auto" && c.config.GasAdjustment != "" {
			args = append(args, "--gas-adjustment", c.config.GasAdjustment)
		}
	}
	switch {
	case fees != "":
		args = append(args, "--fees", fees)
	case c.config.GasPrices != "":
		args = append(args, "--gas-prices", c.config.GasPrices)
	}

	result, err := supervisor.RunCommand(ctx, c.log, c.config.Binary, args...)
	if err != nil {
		return nil, err
	}
	return ParseTxBroadcastResponse(result.Stdout)
}

// fromFlag prefers the address of a keyring account so that harness account
// names need not match the CLI's key names. Unknown names are passed through.
func (c *CosmosClient) fromFlag(from string) string {
	if account, err := c.keyring.Get(from); err == nil && account.Address != "" {
		return account.Address
	}
	return from
}

func (c *CosmosClient) commonFlags() []string {
	var flags []string
	if c.config.RPCURI != "" {
		flags = append(flags, "--node", nodeFlag(c.config.RPCURI))
	}
	if c.config.Home != "" {
		flags = append(flags, "--home", c.config.Home)
	}
	return flags
}

// nodeFlag converts an http RPC uri to the tcp form the CLIs expect.
func nodeFlag(rpcURI string) string {
	if rest, ok := strings.CutPrefix(rpcURI, "http://"); ok {
		return "tcp://" + rest
	}
	return rpcURI
}

// WaitForTx blocks until the transaction is indexed and returns its receipt.
func (c *CosmosClient) WaitForTx(ctx context.Context, txHash string) (*Receipt, error) {
	if c.comet == nil {
		return nil, fmt.Errorf("%w for json-rpc on %s", errNoEndpoint, c.config.ChainID)
	}
	result, err := readiness.WaitFor(
		ctx,
		c.log,
		"inclusion of tx "+txHash,
		c.config.TxTimeout,
		c.config.TxPollInterval,
		func(ctx context.Context) (*CometTxResult, bool, error) {
			result, err := c.comet.tx(ctx, txHash)
			if errors.Is(err, ErrNotFound) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			return result, true, nil
		},
	)
	if err != nil {
		return nil, err
	}
	receipt, err := result.Receipt()
	if err != nil {
		return nil, err
	}
	c.log.Debug("transaction included",
		zap.String("txHash", receipt.TxHash),
		zap.Int64("height", receipt.Height),
		zap.Stringer("status", receipt.Status),
	)
	return receipt, nil
}

// Query runs `<binary> query <args> --output json` and returns the raw JSON.
func (c *CosmosClient) Query(ctx context.Context, args ...string) (json.RawMessage, error) {
	if c.config.Binary == "" {
		return nil, fmt.Errorf("%w: no cli binary for %s", errNoEndpoint, c.config.ChainID)
	}
	fullArgs := append([]string{"query"}, args...)
	fullArgs = append(fullArgs, "--output", "json")
	fullArgs = append(fullArgs, c.commonFlags()...)

	result, err := supervisor.RunCommand(ctx, c.log, c.config.Binary, fullArgs...)
	if err != nil {
		return nil, err
	}
	out := json.RawMessage(result.LastLine())
	if !json.Valid(out) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResponse, result.StdoutString())
	}
	return out, nil
}

// Exec runs an arbitrary subcommand of the chain CLI, e.g. to generate an
// unsigned transaction, and returns its stdout.
func (c *CosmosClient) Exec(ctx context.Context, args ...string) (string, error) {
	if c.config.Binary == "" {
		return "", fmt.Errorf("%w: no cli binary for %s", errNoEndpoint, c.config.ChainID)
	}
	fullArgs := append(append([]string{}, args...), c.commonFlags()...)
	result, err := supervisor.RunCommand(ctx, c.log, c.config.Binary, fullArgs...)
	if err != nil {
		return "", err
	}
	return result.StdoutString(), nil
}
