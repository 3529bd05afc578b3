// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"cosmossdk.io/math"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"

	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/utils/logging"
	"github.com/ava-labs/ibcnet/utils/rpc"
)

const (
	DefaultTxTimeout      = time.Minute
	DefaultTxPollInterval = 500 * time.Millisecond
	DefaultKeyringBackend = "test"
)

var (
	_ Client = (*CosmosClient)(nil)

	errNoEndpoint = errors.New("no endpoint configured")
)

// CosmosConfig locates a Cosmos SDK node and its command line.
type CosmosConfig struct {
	ChainID string
	// Binary is the chain's CLI, e.g. chain-maind.
	Binary string
	// Home holds the CLI keyring.
	Home           string
	KeyringBackend string
	// RPCURI is the Comet JSON-RPC endpoint, e.g. http://127.0.0.1:26757.
	RPCURI string
	// GRPCAddress is a host:port. Balance falls back to APIURI when empty.
	GRPCAddress string
	// APIURI is the REST endpoint, e.g. http://127.0.0.1:26754.
	APIURI string

	Gas           string
	GasPrices     string
	GasAdjustment string

	TxTimeout      time.Duration
	TxPollInterval time.Duration
}

// CosmosClient queries a Cosmos SDK node over gRPC, Comet JSON-RPC and REST
// and submits transactions through the chain's CLI.
type CosmosClient struct {
	log     logging.Logger
	config  CosmosConfig
	keyring *Keyring
	comet   *cometRPC
	conn    *grpc.ClientConn
	http    *http.Client
}

func NewCosmosClient(log logging.Logger, config CosmosConfig, keyring *Keyring) (*CosmosClient, error) {
	if config.KeyringBackend == "" {
		config.KeyringBackend = DefaultKeyringBackend
	}
	if config.TxTimeout == 0 {
		config.TxTimeout = DefaultTxTimeout
	}
	if config.TxPollInterval == 0 {
		config.TxPollInterval = DefaultTxPollInterval
	}
	if keyring == nil {
		keyring = NewKeyring()
	}

	c := &CosmosClient{
		log:     log.With(zap.String("chainID", config.ChainID)),
		config:  config,
		keyring: keyring,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	if config.RPCURI != "" {
		comet, err := newCometRPC(config.RPCURI)
		if err != nil {
			return nil, err
		}
		c.comet = comet
	}
	if config.GRPCAddress != "" {
		conn, err := grpc.NewClient(config.GRPCAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to create grpc client for %s: %w", config.GRPCAddress, err)
		}
		c.conn = conn
	}
	return c, nil
}

func (c *CosmosClient) ChainID() string {
	return c.config.ChainID
}

func (c *CosmosClient) Config() CosmosConfig {
	return c.config
}

func (c *CosmosClient) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *CosmosClient) Balance(ctx context.Context, address string, denom string) (math.Int, error) {
	if c.conn != nil {
		return c.grpcBalance(ctx, address, denom)
	}
	if c.config.APIURI != "" {
		return c.restBalance(ctx, address, denom)
	}
	return math.Int{}, fmt.Errorf("%w for balance queries on %s", errNoEndpoint, c.config.ChainID)
}

func (c *CosmosClient) grpcBalance(ctx context.Context, address string, denom string) (math.Int, error) {
	resp, err := banktypes.NewQueryClient(c.conn).Balance(ctx, &banktypes.QueryBalanceRequest{
		Address: address,
		Denom:   denom,
	})
	if err != nil {
		return math.Int{}, fmt.Errorf("failed to query balance of %s: %w", address, err)
	}
	if resp.Balance == nil {
		return math.ZeroInt(), nil
	}
	return resp.Balance.Amount, nil
}

type restBalanceResponse struct {
	Balance struct {
		Denom  string `json:"denom"`
		Amount string `json:"amount"`
	} `json:"balance"`
}

func (c *CosmosClient) restBalance(ctx context.Context, address string, denom string) (math.Int, error) {
	endpoint, err := url.JoinPath(c.config.APIURI, "cosmos/bank/v1beta1/balances", address, "by_denom")
	if err != nil {
		return math.Int{}, err
	}
	endpoint += "?" + url.Values{"denom": []string{denom}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return math.Int{}, err
	}
	//nolint:bodyclose // body is closed via CleanlyCloseBody
	resp, err := c.http.Do(req)
	if err != nil {
		return math.Int{}, fmt.Errorf("failed to query balance of %s: %w", address, err)
	}
	defer rpc.CleanlyCloseBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return math.Int{}, fmt.Errorf("%w: %d querying balance of %s", rpc.ErrStatusCode, resp.StatusCode, address)
	}

	var balance restBalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
		return math.Int{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if balance.Balance.Amount == "" {
		return math.ZeroInt(), nil
	}
	amount, ok := math.NewIntFromString(balance.Balance.Amount)
	if !ok {
		return math.Int{}, fmt.Errorf("%w: amount %q", ErrInvalidResponse, balance.Balance.Amount)
	}
	return amount, nil
}

// RawCall passes through to the Comet JSON-RPC endpoint.
func (c *CosmosClient) RawCall(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	if c.comet == nil {
		return nil, fmt.Errorf("%w for json-rpc on %s", errNoEndpoint, c.config.ChainID)
	}
	return c.comet.raw(ctx, method, params...)
}

func (c *CosmosClient) Status(ctx context.Context) (*CometStatus, error) {
	if c.comet == nil {
		return nil, fmt.Errorf("%w for json-rpc on %s", errNoEndpoint, c.config.ChainID)
	}
	return c.comet.status(ctx)
}

func (c *CosmosClient) LatestHeight(ctx context.Context) (int64, error) {
	status, err := c.Status(ctx)
	if err != nil {
		return 0, err
	}
	return status.Height()
}

// WaitForBlocks blocks until [n] blocks past the current height are
// committed.
func (c *CosmosClient) WaitForBlocks(ctx context.Context, n int64, timeout time.Duration) error {
	start, err := c.LatestHeight(ctx)
	if err != nil {
		return err
	}
	return readiness.WaitForCondition(
		ctx,
		c.log,
		fmt.Sprintf("%d blocks on %s", n, c.config.ChainID),
		timeout,
		c.config.TxPollInterval,
		func(ctx context.Context) (bool, error) {
			height, err := c.LatestHeight(ctx)
			if err != nil {
				return false, err
			}
			return height >= start+n, nil
		},
	)
}

// HasCommitment reports whether a packet commitment is stored for the
// sequence on (port, channel).
func (c *CosmosClient) HasCommitment(ctx context.Context, portID string, channelID string, sequence uint64) (bool, error) {
	if c.conn == nil {
		return false, fmt.Errorf("%w for grpc on %s", errNoEndpoint, c.config.ChainID)
	}
	resp, err := channeltypes.NewQueryClient(c.conn).PacketCommitment(ctx, &channeltypes.QueryPacketCommitmentRequest{
		PortId:    portID,
		ChannelId: channelID,
		Sequence:  sequence,
	})
	if status.Code(err) == codes.NotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query packet commitment %s/%s/%d: %w", portID, channelID, sequence, err)
	}
	return len(resp.Commitment) > 0, nil
}

// NextSequenceSend returns the sequence the next packet sent on (port,
// channel) will be assigned.
func (c *CosmosClient) NextSequenceSend(ctx context.Context, portID string, channelID string) (uint64, error) {
	if c.conn == nil {
		return 0, fmt.Errorf("%w for grpc on %s", errNoEndpoint, c.config.ChainID)
	}
	resp, err := channeltypes.NewQueryClient(c.conn).NextSequenceSend(ctx, &channeltypes.QueryNextSequenceSendRequest{
		PortId:    portID,
		ChannelId: channelID,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query next sequence send %s/%s: %w", portID, channelID, err)
	}
	return resp.NextSequenceSend, nil
}
