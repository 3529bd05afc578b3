// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/utils/logging"
)

type ethRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// fakeEVM answers the subset of eth_* methods the client uses.
type fakeEVM struct {
	lock          sync.Mutex
	methods       []string
	receiptStatus string
	// receiptDelay is the number of receipt lookups answered with null.
	receiptDelay int
	callResult   string
	sentNonces   []uint64
}

func (f *fakeEVM) handle(w http.ResponseWriter, r *http.Request) {
	var req ethRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	f.lock.Lock()
	defer f.lock.Unlock()
	f.methods = append(f.methods, req.Method)

	var result string
	switch req.Method {
	case "eth_getBalance":
		result = `"0x2540be400"` // 10^10
	case "eth_chainId":
		result = `"0x309"` // 777
	case "eth_getTransactionCount":
		result = `"0x5"`
	case "eth_gasPrice":
		result = `"0x3b9aca00"`
	case "eth_estimateGas":
		result = `"0x5208"`
	case "eth_sendRawTransaction":
		var raw hexutil.Bytes
		_ = json.Unmarshal(req.Params[0], &raw)
		tx := new(types.Transaction)
		if err := tx.UnmarshalBinary(raw); err == nil {
			f.sentNonces = append(f.sentNonces, tx.Nonce())
		}
		result = `"0x0000000000000000000000000000000000000000000000000000000000000001"`
	case "eth_getTransactionReceipt":
		if f.receiptDelay > 0 {
			f.receiptDelay--
			result = `null`
			break
		}
		var hash string
		_ = json.Unmarshal(req.Params[0], &hash)
		result = fmt.Sprintf(`{
			"transactionHash": %q,
			"blockNumber": "0x2a",
			"blockHash": "0x00000000000000000000000000000000000000000000000000000000000000aa",
			"transactionIndex": "0x0",
			"status": %q,
			"cumulativeGasUsed": "0x33450",
			"gasUsed": "0x33450",
			"logsBloom": "0x%s",
			"logs": [],
			"type": "0x0"
		}`, hash, f.receiptStatus, strings.Repeat("0", 512))
	case "eth_call":
		result = f.callResult
	case "cronos_replayBlock":
		result = `[
			{"transactionHash":"0x0000000000000000000000000000000000000000000000000000000000000001","status":"0x1","gasUsed":"0x5208","blockNumber":"0x2a"},
			{"transactionHash":"0x0000000000000000000000000000000000000000000000000000000000000002","status":"0x0","gasUsed":"0x5208","blockNumber":"0x2a"}
		]`
	default:
		_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":-32601,"message":"the method %s does not exist"}}`, req.ID, req.Method)
		return
	}
	_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result)
}

func (f *fakeEVM) calls(method string) int {
	f.lock.Lock()
	defer f.lock.Unlock()

	n := 0
	for _, m := range f.methods {
		if m == method {
			n++
		}
	}
	return n
}

func newTestEVMClient(t *testing.T, fake *fakeEVM) (*EVMClient, common.Address) {
	t.Helper()
	require := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(fake.handle))
	t.Cleanup(server.Close)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	addr := crypto.PubkeyToAddress(key.PublicKey)
	keyring := NewKeyring(Account{
		Name:       "signer2",
		Address:    addr.Hex(),
		PrivateKey: hex.EncodeToString(crypto.FromECDSA(key)),
	})

	c, err := DialEVM(context.Background(), logging.NoLog{}, EVMConfig{
		ChainID:             "cronos_777-1",
		RPCURI:              server.URL,
		Denom:               "basetcro",
		ReceiptTimeout:      5 * time.Second,
		ReceiptPollInterval: 10 * time.Millisecond,
	}, keyring)
	require.NoError(err)
	t.Cleanup(c.Close)
	return c, addr
}

func TestEVMBalance(t *testing.T) {
	require := require.New(t)

	c, addr := newTestEVMClient(t, &fakeEVM{})
	balance, err := c.Balance(context.Background(), addr.Hex(), "basetcro")
	require.NoError(err)
	require.True(balance.Equal(math.NewInt(10_000_000_000)))

	bech32Addr, err := EthToBech32(addr, "crc")
	require.NoError(err)
	balance, err = c.Balance(context.Background(), bech32Addr, "basetcro")
	require.NoError(err)
	require.True(balance.Equal(math.NewInt(10_000_000_000)))

	_, err = c.Balance(context.Background(), addr.Hex(), IBCDenom("transfer", "channel-0", "basecro"))
	require.ErrorIs(err, ErrUnsupportedDenom)
}

func TestEVMSubmitContractCall(t *testing.T) {
	tests := []struct {
		name           string
		receiptStatus  string
		gas            uint64
		expectedStatus Status
		expectEstimate bool
	}{
		{
			name:           "success with estimated gas",
			receiptStatus:  "0x1",
			expectedStatus: StatusSuccess,
			expectEstimate: true,
		},
		{
			name:           "reverted with explicit gas",
			receiptStatus:  "0x0",
			gas:            210000,
			expectedStatus: StatusFailed,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			fake := &fakeEVM{receiptStatus: test.receiptStatus, receiptDelay: 2}
			c, _ := newTestEVMClient(t, fake)

			parsed, err := abi.JSON(strings.NewReader(`[{"type":"function","name":"nativeTransfer","stateMutability":"nonpayable","inputs":[{"name":"receiver","type":"string"},{"name":"amount","type":"uint256"},{"name":"timeout","type":"uint64"}],"outputs":[]}]`))
			require.NoError(err)

			receipt, err := c.Submit(context.Background(), &ContractCall{
				From:   "signer2",
				To:     common.HexToAddress("0x00000000000000000000000000000000000000c3"),
				ABI:    parsed,
				Method: "nativeTransfer",
				Args:   []interface{}{"cro1receiver", big.NewInt(10), uint64(0)},
				Gas:    test.gas,
			})
			require.NoError(err)
			require.Equal(test.expectedStatus, receipt.Status)
			require.Equal(int64(42), receipt.Height)
			require.Equal(3, fake.calls("eth_getTransactionReceipt"))

			estimates := fake.calls("eth_estimateGas")
			if test.expectEstimate {
				require.Equal(1, estimates)
			} else {
				require.Zero(estimates)
			}
		})
	}
}

func TestEVMSendNonce(t *testing.T) {
	pinned := uint64(7)
	tests := []struct {
		name           string
		nonce          *uint64
		expectedNonce  uint64
		expectedLookup int
	}{
		{
			name:           "pending",
			expectedNonce:  5,
			expectedLookup: 1,
		},
		{
			name:          "pinned",
			nonce:         &pinned,
			expectedNonce: 7,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			fake := &fakeEVM{}
			c, _ := newTestEVMClient(t, fake)

			parsed, err := abi.JSON(strings.NewReader(`[{"type":"function","name":"test","stateMutability":"nonpayable","inputs":[{"name":"iterations","type":"uint256"}],"outputs":[]}]`))
			require.NoError(err)

			_, err = c.Send(context.Background(), &ContractCall{
				From:   "signer2",
				To:     common.HexToAddress("0x00000000000000000000000000000000000000c4"),
				ABI:    parsed,
				Method: "test",
				Args:   []interface{}{big.NewInt(400)},
				Gas:    500000,
				Nonce:  test.nonce,
			})
			require.NoError(err)
			require.Equal([]uint64{test.expectedNonce}, fake.sentNonces)
			require.Equal(test.expectedLookup, fake.calls("eth_getTransactionCount"))
		})
	}
}

func TestEVMSubmitUnsupported(t *testing.T) {
	c, _ := newTestEVMClient(t, &fakeEVM{})
	_, err := c.Submit(context.Background(), &CLIMessage{From: "signer2"})
	require.ErrorIs(t, err, ErrUnsupportedTx)
}

func TestEVMRawCallAndReplayBlock(t *testing.T) {
	require := require.New(t)

	c, _ := newTestEVMClient(t, &fakeEVM{})

	raw, err := c.RawCall(context.Background(), "eth_chainId")
	require.NoError(err)
	require.Equal(`"0x309"`, string(raw))

	txs, err := c.ReplayBlock(context.Background(), 42)
	require.NoError(err)
	require.Len(txs, 2)
	require.Equal(hexutil.Uint64(1), txs[0].Status)
	require.Equal(hexutil.Uint64(0), txs[1].Status)

	_, err = c.RawCall(context.Background(), "cronos_unknown")
	require.Error(err)
}

func TestPrecompileQuerier(t *testing.T) {
	require := require.New(t)

	// ABI encoding of a single true bool.
	fake := &fakeEVM{callResult: `"0x0000000000000000000000000000000000000000000000000000000000000001"`}
	c, _ := newTestEVMClient(t, fake)

	q, err := NewPrecompileQuerier(c, common.HexToAddress("0x00000000000000000000000000000000000000c3"))
	require.NoError(err)

	exists, err := q.HasCommitment(context.Background(), "transfer", "channel-0", 1)
	require.NoError(err)
	require.True(exists)

	next, err := q.NextSequenceSend(context.Background(), "transfer", "channel-0")
	require.NoError(err)
	require.Equal(uint64(1), next)

	last, err := q.LastAckSequence(context.Background())
	require.NoError(err)
	require.Equal(uint64(1), last)
}
