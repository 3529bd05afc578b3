// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	ethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/utils/logging"
)

var _ Client = (*EVMClient)(nil)

// EVMConfig locates the EVM JSON-RPC endpoint of a node.
type EVMConfig struct {
	ChainID string
	RPCURI  string
	// Denom is the native denom whose balance is the account's ether
	// balance, e.g. basetcro.
	Denom string

	ReceiptTimeout      time.Duration
	ReceiptPollInterval time.Duration
}

// EVMClient is a Client backed by an EVM JSON-RPC endpoint.
type EVMClient struct {
	log     logging.Logger
	config  EVMConfig
	keyring *Keyring
	rpc     *ethrpc.Client
	eth     *ethclient.Client

	chainIDLock sync.Mutex
	evmChainID  *big.Int
}

func DialEVM(ctx context.Context, log logging.Logger, config EVMConfig, keyring *Keyring) (*EVMClient, error) {
	if config.ReceiptTimeout == 0 {
		config.ReceiptTimeout = DefaultTxTimeout
	}
	if config.ReceiptPollInterval == 0 {
		config.ReceiptPollInterval = DefaultTxPollInterval
	}
	if keyring == nil {
		keyring = NewKeyring()
	}
	rpcClient, err := ethrpc.DialContext(ctx, config.RPCURI)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", config.RPCURI, err)
	}
	return &EVMClient{
		log:     log.With(zap.String("chainID", config.ChainID)),
		config:  config,
		keyring: keyring,
		rpc:     rpcClient,
		eth:     ethclient.NewClient(rpcClient),
	}, nil
}

func (c *EVMClient) ChainID() string {
	return c.config.ChainID
}

func (c *EVMClient) Eth() *ethclient.Client {
	return c.eth
}

func (c *EVMClient) Close() {
	c.rpc.Close()
}

// Balance accepts hex or bech32 addresses. Only the native denom is held in
// EVM state.
func (c *EVMClient) Balance(ctx context.Context, address string, denom string) (math.Int, error) {
	if denom != c.config.Denom {
		return math.Int{}, fmt.Errorf("%w: %q is not the evm denom of %s", ErrUnsupportedDenom, denom, c.config.ChainID)
	}
	addr, err := parseAddress(address)
	if err != nil {
		return math.Int{}, err
	}
	balance, err := c.eth.BalanceAt(ctx, addr, nil)
	if err != nil {
		return math.Int{}, fmt.Errorf("failed to query balance of %s: %w", addr, err)
	}
	return math.NewIntFromBigInt(balance), nil
}

func parseAddress(address string) (common.Address, error) {
	if common.IsHexAddress(address) {
		return common.HexToAddress(address), nil
	}
	return Bech32ToEth(address)
}

func (c *EVMClient) RawCall(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	var result json.RawMessage
	if err := c.rpc.CallContext(ctx, &result, method, params...); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

func (c *EVMClient) NonceAt(ctx context.Context, account string) (uint64, error) {
	a, err := c.keyring.Get(account)
	if err != nil {
		return 0, err
	}
	addr, err := a.EthAddress()
	if err != nil {
		return 0, err
	}
	return c.eth.NonceAt(ctx, addr, nil)
}

func (c *EVMClient) Submit(ctx context.Context, tx TxSpec) (*Receipt, error) {
	hash, err := c.Send(ctx, tx)
	if err != nil {
		return nil, err
	}
	return c.WaitForReceipt(ctx, hash, c.config.ReceiptTimeout)
}

// Send signs and broadcasts [tx] without waiting for inclusion. Unless the
// call pins a nonce, the account's pending nonce is used, so txs that must
// share a block should pin consecutive nonces.
func (c *EVMClient) Send(ctx context.Context, tx TxSpec) (common.Hash, error) {
	var (
		from  string
		to    common.Address
		value *big.Int
		data  []byte
		gas   uint64
		nonce *uint64
	)
	switch tx := tx.(type) {
	case *NativeTransfer:
		if tx.Denom != c.config.Denom {
			return common.Hash{}, fmt.Errorf("%w: %q is not the evm denom of %s", ErrUnsupportedDenom, tx.Denom, c.config.ChainID)
		}
		addr, err := parseAddress(tx.To)
		if err != nil {
			return common.Hash{}, err
		}
		from = tx.From
		to = addr
		value = tx.Amount.BigInt()
	case *ContractCall:
		packed, err := tx.ABI.Pack(tx.Method, tx.Args...)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to pack %s: %w", tx.Method, err)
		}
		from = tx.From
		to = tx.To
		value = tx.Value
		data = packed
		gas = tx.Gas
		nonce = tx.Nonce
	default:
		return common.Hash{}, fmt.Errorf("%w: %s on %s", ErrUnsupportedTx, tx.kind(), c.config.ChainID)
	}
	return c.signAndSend(ctx, from, &to, value, data, gas, nonce)
}

// signAndSend signs a legacy transaction from the keyring account [from]. A
// nil [to] creates a contract and a nil [pinnedNonce] uses the pending nonce.
func (c *EVMClient) signAndSend(
	ctx context.Context,
	from string,
	to *common.Address,
	value *big.Int,
	data []byte,
	gas uint64,
	pinnedNonce *uint64,
) (common.Hash, error) {
	if value == nil {
		value = new(big.Int)
	}

	account, err := c.keyring.Get(from)
	if err != nil {
		return common.Hash{}, err
	}
	key, err := account.ECDSAKey()
	if err != nil {
		return common.Hash{}, err
	}
	sender, err := account.EthAddress()
	if err != nil {
		return common.Hash{}, err
	}

	chainID, err := c.evmChainIDOf(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	var nonce uint64
	if pinnedNonce != nil {
		nonce = *pinnedNonce
	} else {
		nonce, err = c.eth.PendingNonceAt(ctx, sender)
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to get nonce of %s: %w", sender, err)
		}
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}
	if gas == 0 {
		gas, err = c.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:  sender,
			To:    to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
		}
	}

	signed, err := types.SignTx(
		types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: gasPrice,
			Gas:      gas,
			To:       to,
			Value:    value,
			Data:     data,
		}),
		types.LatestSignerForChainID(chainID),
		key,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign tx: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send tx: %w", err)
	}
	c.log.Debug("sent transaction",
		zap.Stringer("txHash", signed.Hash()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
	)
	return signed.Hash(), nil
}

func (c *EVMClient) evmChainIDOf(ctx context.Context) (*big.Int, error) {
	c.chainIDLock.Lock()
	defer c.chainIDLock.Unlock()

	if c.evmChainID != nil {
		return c.evmChainID, nil
	}
	chainID, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get evm chain id: %w", err)
	}
	c.evmChainID = chainID
	return chainID, nil
}

// WaitForReceipt polls for the receipt of [hash]. A transaction that is never
// executed yields readiness.ErrTimeout.
func (c *EVMClient) WaitForReceipt(ctx context.Context, hash common.Hash, timeout time.Duration) (*Receipt, error) {
	receipt, err := readiness.WaitFor(
		ctx,
		c.log,
		"receipt of "+hash.Hex(),
		timeout,
		c.config.ReceiptPollInterval,
		func(ctx context.Context) (*types.Receipt, bool, error) {
			receipt, err := c.eth.TransactionReceipt(ctx, hash)
			if errors.Is(err, ethereum.NotFound) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, err
			}
			return receipt, true, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return ReceiptFromEVM(receipt), nil
}

// ReceiptFromEVM maps an EVM receipt. Each log becomes an event of type
// "log" carrying the emitting address, topics and data.
func ReceiptFromEVM(r *types.Receipt) *Receipt {
	receipt := &Receipt{
		TxHash:  r.TxHash.Hex(),
		Status:  StatusFailed,
		GasUsed: r.GasUsed,
		Events:  make([]Event, 0, len(r.Logs)),
	}
	if r.BlockNumber != nil {
		receipt.Height = r.BlockNumber.Int64()
	}
	if r.Status == types.ReceiptStatusSuccessful {
		receipt.Status = StatusSuccess
	} else {
		receipt.Code = 1
	}
	for _, l := range r.Logs {
		event := Event{
			Type: "log",
			Attributes: []Attribute{
				{Key: "address", Value: l.Address.Hex()},
			},
		}
		for i, topic := range l.Topics {
			event.Attributes = append(event.Attributes, Attribute{
				Key:   fmt.Sprintf("topic%d", i),
				Value: topic.Hex(),
			})
		}
		event.Attributes = append(event.Attributes, Attribute{
			Key:   "data",
			Value: hexutil.Encode(l.Data),
		})
		receipt.Events = append(receipt.Events, event)
	}
	return receipt
}

// CallContract executes a read-only call and unpacks the outputs.
func (c *EVMClient) CallContract(ctx context.Context, to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &to,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}
	values, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s: %w", method, err)
	}
	return values, nil
}
