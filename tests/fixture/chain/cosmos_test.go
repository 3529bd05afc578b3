// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/utils/logging"
)

const broadcastOK = `{"height":"0","txhash":"9F0E4A1C","code":0,"codespace":"","raw_log":""}`

type cometRequest struct {
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
	ID     uint64                 `json:"id"`
}

// newFakeComet serves `status` and answers `tx` with not-found until
// [indexedAfter] lookups have been made.
func newFakeComet(t *testing.T, indexedAfter int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var lookups atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req cometRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var body string
		switch req.Method {
		case "status":
			body = fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":{"node_info":{"network":"chainmain-1"},"sync_info":{"latest_block_height":"%d","catching_up":false}}}`, req.ID, 40+lookups.Load())
		case "tx":
			if lookups.Add(1) <= indexedAfter {
				body = fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"error":{"code":-32603,"message":"Internal error","data":"tx (9F0E4A1C) not found"}}`, req.ID)
				break
			}
			body = fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"result":%s}`, req.ID, cometTxJSON)
		default:
			body = fmt.Sprintf(`{"jsonrpc":"2.0","id":%d,"error":{"code":-32601,"message":"Method not found"}}`, req.ID)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &lookups
}

// writeFakeCLI writes a script that records its arguments and prints [output].
func writeFakeCLI(t *testing.T, output string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	argsPath := filepath.Join(dir, "args")
	path := filepath.Join(dir, "chain-maind")
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" > %s\necho 'gas estimate: 81234'\necho '%s'\n", argsPath, output)
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path, argsPath
}

func newTestCosmosClient(t *testing.T, config CosmosConfig) *CosmosClient {
	t.Helper()

	config.ChainID = "chainmain-1"
	config.TxPollInterval = 10 * time.Millisecond
	config.TxTimeout = 5 * time.Second
	keyring := NewKeyring(Account{Name: "signer1", Address: "cro1signer"})
	c, err := NewCosmosClient(logging.NoLog{}, config, keyring)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestParseTxBroadcastResponse(t *testing.T) {
	tests := []struct {
		name        string
		lines       []string
		expectedErr error
		expected    string
	}{
		{
			name:     "single line",
			lines:    []string{broadcastOK},
			expected: "9F0E4A1C",
		},
		{
			name:     "progress before result",
			lines:    []string{"gas estimate: 81234", broadcastOK, ""},
			expected: "9F0E4A1C",
		},
		{
			name:        "no result",
			lines:       []string{"Error: key not found"},
			expectedErr: ErrInvalidResponse,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			resp, err := ParseTxBroadcastResponse(test.lines)
			require.ErrorIs(err, test.expectedErr)
			if test.expectedErr == nil {
				require.Equal(test.expected, resp.TxHash)
			}
		})
	}
}

func TestCosmosSubmitWaitsForInclusion(t *testing.T) {
	require := require.New(t)

	comet, lookups := newFakeComet(t, 2)
	cli, argsPath := writeFakeCLI(t, broadcastOK)
	c := newTestCosmosClient(t, CosmosConfig{
		Binary:    cli,
		RPCURI:    comet.URL,
		Home:      "/tmp/chainmain",
		GasPrices: "5000000000basecro",
	})

	receipt, err := c.Submit(context.Background(), &NativeTransfer{
		From:   "signer1",
		To:     "cro1receiver",
		Amount: math.NewInt(10),
		Denom:  "basecro",
	})
	require.NoError(err)
	require.True(receipt.Succeeded())
	require.Equal(int64(58), receipt.Height)
	require.Equal(int32(3), lookups.Load())

	args, err := os.ReadFile(argsPath)
	require.NoError(err)
	require.Contains(string(args), "tx bank send cro1signer cro1receiver 10basecro")
	require.Contains(string(args), "--from cro1signer")
	require.Contains(string(args), "--chain-id chainmain-1")
	require.Contains(string(args), "--gas-prices 5000000000basecro")
	require.Contains(string(args), "--node tcp://"+strings.TrimPrefix(comet.URL, "http://"))
}

func TestCosmosSubmitCheckTxRejection(t *testing.T) {
	require := require.New(t)

	comet, lookups := newFakeComet(t, 0)
	cli, _ := writeFakeCLI(t, `{"height":"0","txhash":"AB12","code":13,"raw_log":"insufficient fee"}`)
	c := newTestCosmosClient(t, CosmosConfig{
		Binary: cli,
		RPCURI: comet.URL,
	})

	receipt, err := c.Submit(context.Background(), &CLIMessage{
		From: "signer1",
		Args: []string{"ibc-transfer", "transfer", "transfer", "channel-0", "crc1receiver", "10basecro"},
	})
	require.NoError(err)
	require.False(receipt.Succeeded())
	require.Equal(uint32(13), receipt.Code)
	require.Zero(lookups.Load())
}

func TestCosmosSubmitUnsupported(t *testing.T) {
	c := newTestCosmosClient(t, CosmosConfig{})
	_, err := c.Submit(context.Background(), &ContractCall{From: "signer1"})
	require.ErrorIs(t, err, ErrUnsupportedTx)
}

func TestCosmosStatusAndRawCall(t *testing.T) {
	require := require.New(t)

	comet, _ := newFakeComet(t, 0)
	c := newTestCosmosClient(t, CosmosConfig{RPCURI: comet.URL})

	height, err := c.LatestHeight(context.Background())
	require.NoError(err)
	require.Equal(int64(40), height)

	raw, err := c.RawCall(context.Background(), "status")
	require.NoError(err)
	require.Contains(string(raw), "chainmain-1")

	_, err = c.RawCall(context.Background(), "cronos_unknown")
	require.Error(err)
}

func TestCosmosWaitForBlocks(t *testing.T) {
	tests := []struct {
		name        string
		advance     int32
		expectedErr error
	}{
		{
			name:    "blocks committed",
			advance: 2,
		},
		{
			name:        "chain halted",
			expectedErr: readiness.ErrTimeout,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			// The fake's height grows with its tx lookup count.
			comet, height := newFakeComet(t, 0)
			c := newTestCosmosClient(t, CosmosConfig{RPCURI: comet.URL})

			go func() {
				time.Sleep(50 * time.Millisecond)
				height.Add(test.advance)
			}()
			err := c.WaitForBlocks(context.Background(), 2, 500*time.Millisecond)
			require.ErrorIs(t, err, test.expectedErr)
		})
	}
}

func TestCosmosRESTBalance(t *testing.T) {
	require := require.New(t)

	denom := IBCDenom("transfer", "channel-0", "basetcro")
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cosmos/bank/v1beta1/balances/cro1receiver/by_denom" || r.URL.Query().Get("denom") != denom {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = fmt.Fprintf(w, `{"balance":{"denom":%q,"amount":"100000000000"}}`, denom)
	}))
	defer api.Close()

	c := newTestCosmosClient(t, CosmosConfig{APIURI: api.URL})
	balance, err := c.Balance(context.Background(), "cro1receiver", denom)
	require.NoError(err)
	require.Equal("100000000000", balance.String())

	_, err = c.Balance(context.Background(), "cro1other", denom)
	require.Error(err)
}

func TestCosmosBalanceWithoutEndpoint(t *testing.T) {
	c := newTestCosmosClient(t, CosmosConfig{})
	_, err := c.Balance(context.Background(), "cro1receiver", "basecro")
	require.ErrorIs(t, err, errNoEndpoint)
}
