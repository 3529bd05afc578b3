// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibcnet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"cosmossdk.io/math"
	"github.com/pelletier/go-toml"
	"go.uber.org/zap"

	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/tests/fixture/supervisor"
	"github.com/ava-labs/ibcnet/utils/logging"
	"github.com/ava-labs/ibcnet/utils/rpc"
)

const (
	relayerStatusSuccess = "success"
	relayerPollInterval  = 500 * time.Millisecond
)

var (
	ErrRelayerNotReady = errors.New("relayer not ready")
	ErrNoRelayer       = errors.New("network has no relayer")

	errNoStatusPort = errors.New("relayer config has no [rest] port")
)

// RelayerState is the response of the relayer's /state endpoint.
type RelayerState struct {
	Status string             `json:"status"`
	Result RelayerStateResult `json:"result"`
}

type RelayerStateResult struct {
	Chains  []json.RawMessage          `json:"chains"`
	Workers map[string]json.RawMessage `json:"workers"`
}

// RelayerCommandResult is the final JSON line printed by the relayer for a
// command run with --json.
type RelayerCommandResult struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result"`
}

// ChannelCreation records a channel created by the relayer.
type ChannelCreation struct {
	Channel ChannelSpec     `json:"channel"`
	Result  json.RawMessage `json:"result"`
}

// FTTransfer is a fungible token transfer triggered directly by the relayer.
type FTTransfer struct {
	DstChain  string
	SrcChain  string
	PortID    string
	ChannelID string
	Amount    math.Int
	Denom     string
	Receiver  string
	// TimeoutHeightOffset is passed as -o. Zero omits the flag.
	TimeoutHeightOffset uint64
	// Count is the number of messages to send. Defaults to 1.
	Count int
	Key   string
}

func (t FTTransfer) args() []string {
	count := t.Count
	if count == 0 {
		count = 1
	}
	args := []string{
		"tx", "raw", "ft-transfer",
		t.DstChain, t.SrcChain, t.PortID, t.ChannelID, t.Amount.String(),
	}
	if t.TimeoutHeightOffset > 0 {
		args = append(args, "-o", strconv.FormatUint(t.TimeoutHeightOffset, 10))
	}
	args = append(args,
		"-n", strconv.Itoa(count),
		"-d", t.Denom,
		"-r", t.Receiver,
	)
	if t.Key != "" {
		args = append(args, "-k", t.Key)
	}
	return args
}

// Relayer drives a hermes relayer through its command line and status
// endpoint.
type Relayer struct {
	log        logging.Logger
	binary     string
	configPath string
	key        string
	host       string
	port       uint16
	http       *http.Client
}

// NewRelayer reads the relayer's status port from its configuration.
func NewRelayer(log logging.Logger, host string, binary string, configPath string, key string) (*Relayer, error) {
	tree, err := toml.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read relayer config %s: %w", configPath, err)
	}
	port, err := statusPort(tree)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", configPath, err)
	}
	return &Relayer{
		log:        log.With(zap.String("component", relayerName)),
		binary:     binary,
		configPath: configPath,
		key:        key,
		host:       host,
		port:       port,
		http:       &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func statusPort(tree *toml.Tree) (uint16, error) {
	switch port := tree.Get("rest.port").(type) {
	case int64:
		if port <= 0 || port > 65535 {
			return 0, fmt.Errorf("invalid [rest] port %d", port)
		}
		return uint16(port), nil
	default:
		return 0, errNoStatusPort
	}
}

func (r *Relayer) Port() uint16 {
	return r.port
}

func (r *Relayer) ConfigPath() string {
	return r.configPath
}

// Status queries the relayer's /state endpoint.
func (r *Relayer) Status(ctx context.Context) (*RelayerState, error) {
	uri := fmt.Sprintf("http://%s/state", net.JoinHostPort(r.host, strconv.Itoa(int(r.port))))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query relayer state: %w", err)
	}
	defer rpc.CleanlyCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %d: %s", rpc.ErrStatusCode, resp.StatusCode, body)
	}
	state := &RelayerState{}
	if err := json.NewDecoder(resp.Body).Decode(state); err != nil {
		return nil, fmt.Errorf("failed to decode relayer state: %w", err)
	}
	return state, nil
}

// WaitForReady blocks until the status port accepts connections and the
// relayer reports success.
func (r *Relayer) WaitForReady(ctx context.Context, timeout time.Duration) error {
	start := time.Now()
	if err := readiness.WaitForPort(ctx, r.log, r.host, r.port, timeout); err != nil {
		return fmt.Errorf("%w: %w", ErrRelayerNotReady, err)
	}
	remaining := timeout - time.Since(start)
	if remaining <= 0 {
		remaining = relayerPollInterval
	}
	var lastStatus string
	err := readiness.WaitForCondition(ctx, r.log, "relayer status", remaining, relayerPollInterval, func(ctx context.Context) (bool, error) {
		state, err := r.Status(ctx)
		if err != nil {
			// Still starting
			r.log.Debug("relayer status unavailable", zap.Error(err))
			return false, nil
		}
		lastStatus = state.Status
		return state.Status == relayerStatusSuccess, nil
	})
	if err != nil {
		return fmt.Errorf("%w: last status %q: %w", ErrRelayerNotReady, lastStatus, err)
	}
	r.log.Info("relayer ready", zap.Uint16("port", r.port))
	return nil
}

// run invokes the relayer CLI with JSON output and decodes its final line.
func (r *Relayer) run(ctx context.Context, args ...string) (*RelayerCommandResult, error) {
	fullArgs := append([]string{"--json", "--config", r.configPath}, args...)
	result, err := supervisor.RunCommand(ctx, r.log, r.binary, fullArgs...)
	if err != nil {
		if result != nil {
			return nil, fmt.Errorf("%w: stdout: %s stderr: %s", err, result.StdoutString(), result.StderrString())
		}
		return nil, err
	}
	out := &RelayerCommandResult{}
	if err := json.Unmarshal([]byte(result.LastLine()), out); err != nil {
		return nil, fmt.Errorf("failed to decode relayer output %q: %w", result.LastLine(), err)
	}
	if out.Status != relayerStatusSuccess {
		return out, fmt.Errorf("%w: relayer returned %q: %s", supervisor.ErrCommandFailed, out.Status, out.Result)
	}
	return out, nil
}

// CreateChannel creates a channel, together with the clients and connection
// it needs, between two chains.
func (r *Relayer) CreateChannel(ctx context.Context, channel ChannelSpec) (*ChannelCreation, error) {
	r.log.Info("creating channel",
		zap.String("chainA", channel.ChainA),
		zap.String("chainB", channel.ChainB),
		zap.String("portA", channel.PortA),
		zap.String("portB", channel.PortB),
	)
	out, err := r.run(ctx,
		"create", "channel",
		channel.ChainA, channel.ChainB,
		"--port-a", channel.PortA,
		"--port-b", channel.PortB,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create channel %s-%s: %w", channel.ChainA, channel.ChainB, err)
	}
	return &ChannelCreation{
		Channel: channel,
		Result:  out.Result,
	}, nil
}

// Transfer triggers a token transfer directly through the relayer.
func (r *Relayer) Transfer(ctx context.Context, transfer FTTransfer) (*RelayerCommandResult, error) {
	if transfer.Key == "" {
		transfer.Key = r.key
	}
	r.log.Info("triggering relayer transfer",
		zap.String("src", transfer.SrcChain),
		zap.String("dst", transfer.DstChain),
		zap.String("channel", transfer.ChannelID),
		zap.Stringer("amount", transfer.Amount),
		zap.String("denom", transfer.Denom),
	)
	return r.run(ctx, transfer.args()...)
}

// StartCommand describes the long-running relayer service.
func (r *Relayer) StartCommand(logPath string) supervisor.CommandSpec {
	return supervisor.CommandSpec{
		Name:    relayerName,
		Path:    r.binary,
		Args:    []string{"--config", r.configPath, "start"},
		LogPath: logPath,
	}
}
