// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build unix

package ibcnet

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/tests/fixture/supervisor"
	"github.com/ava-labs/ibcnet/utils/logging"
)

// fakeRelayerScript records its arguments and prints progress followed by a
// JSON result, the way the relayer does with --json.
const fakeRelayerScript = `#!/bin/sh
echo "$@" > "$(dirname "$0")/args"
echo '{"timestamp":"now","level":"INFO","fields":{"message":"working"}}'
echo '{"result":{"a_side":{"channel_id":"channel-0"}},"status":"%s"}'
`

func writeRelayerConfig(t *testing.T, dir string, port uint16) string {
	t.Helper()

	path := filepath.Join(dir, relayerConfigFilename)
	config := fmt.Sprintf(`
[global]
log_level = 'info'

[rest]
enabled = true
host = '127.0.0.1'
port = %d

[[chains]]
id = 'cronos_777-1'
`, port)
	require.NoError(t, os.WriteFile(path, []byte(config), 0o600))
	return path
}

func writeFakeRelayer(t *testing.T, dir string, status string) string {
	t.Helper()

	path := filepath.Join(dir, "hermes")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(fakeRelayerScript, status)), 0o700))
	return path
}

func recordedArgs(t *testing.T, dir string) []string {
	t.Helper()

	bytes, err := os.ReadFile(filepath.Join(dir, "args"))
	require.NoError(t, err)
	return strings.Fields(string(bytes))
}

func serverPort(t *testing.T, server *httptest.Server) uint16 {
	t.Helper()

	_, rawPort, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.ParseUint(rawPort, 10, 16)
	require.NoError(t, err)
	return uint16(port)
}

func TestNewRelayerRequiresStatusPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, relayerConfigFilename)
	require.NoError(t, os.WriteFile(path, []byte("[global]\nlog_level = 'info'\n"), 0o600))

	_, err := NewRelayer(logging.NoLog{}, DefaultHost, "hermes", path, "")
	require.ErrorIs(t, err, errNoStatusPort)
}

func TestRelayerWaitForReady(t *testing.T) {
	require := require.New(t)

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/state" {
			http.NotFound(w, r)
			return
		}
		status := "error"
		if requests.Add(1) >= 3 {
			status = relayerStatusSuccess
		}
		fmt.Fprintf(w, `{"status":%q,"result":{"chains":["chainmain-1","cronos_777-1"],"workers":{"Client":[]}}}`, status)
	}))
	defer server.Close()

	dir := t.TempDir()
	relayer, err := NewRelayer(logging.NoLog{}, DefaultHost, "hermes", writeRelayerConfig(t, dir, serverPort(t, server)), "relayer")
	require.NoError(err)
	require.Equal(serverPort(t, server), relayer.Port())

	require.NoError(relayer.WaitForReady(context.Background(), 10*time.Second))
	require.GreaterOrEqual(requests.Load(), int32(3))

	state, err := relayer.Status(context.Background())
	require.NoError(err)
	require.Equal(relayerStatusSuccess, state.Status)
	require.Len(state.Result.Chains, 2)
	require.Contains(state.Result.Workers, "Client")
}

func TestRelayerWaitForReadyTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"error","result":{}}`)
	}))
	defer server.Close()

	relayer, err := NewRelayer(logging.NoLog{}, DefaultHost, "hermes", writeRelayerConfig(t, t.TempDir(), serverPort(t, server)), "")
	require.NoError(t, err)

	err = relayer.WaitForReady(context.Background(), time.Second)
	require.ErrorIs(t, err, ErrRelayerNotReady)
}

func TestRelayerCreateChannel(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	configPath := writeRelayerConfig(t, dir, 3000)
	relayer, err := NewRelayer(logging.NoLog{}, DefaultHost, writeFakeRelayer(t, dir, relayerStatusSuccess), configPath, "relayer")
	require.NoError(err)

	channel := ChannelSpec{ChainA: "cronos_777-1", ChainB: "chainmain-1", PortA: "transfer", PortB: "transfer"}
	created, err := relayer.CreateChannel(context.Background(), channel)
	require.NoError(err)
	require.Equal(channel, created.Channel)
	require.JSONEq(`{"a_side":{"channel_id":"channel-0"}}`, string(created.Result))

	require.Equal([]string{
		"--json", "--config", configPath,
		"create", "channel", "cronos_777-1", "chainmain-1",
		"--port-a", "transfer", "--port-b", "transfer",
	}, recordedArgs(t, dir))
}

func TestRelayerTransfer(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	configPath := writeRelayerConfig(t, dir, 3000)
	relayer, err := NewRelayer(logging.NoLog{}, DefaultHost, writeFakeRelayer(t, dir, relayerStatusSuccess), configPath, "relayer")
	require.NoError(err)

	_, err = relayer.Transfer(context.Background(), FTTransfer{
		DstChain:            "cronos_777-1",
		SrcChain:            "chainmain-1",
		PortID:              "transfer",
		ChannelID:           "channel-0",
		Amount:              math.NewInt(10),
		Denom:               "basecro",
		Receiver:            "crc1receiver",
		TimeoutHeightOffset: 1000,
	})
	require.NoError(err)

	require.Equal([]string{
		"--json", "--config", configPath,
		"tx", "raw", "ft-transfer",
		"cronos_777-1", "chainmain-1", "transfer", "channel-0", "10",
		"-o", "1000",
		"-n", "1",
		"-d", "basecro",
		"-r", "crc1receiver",
		"-k", "relayer",
	}, recordedArgs(t, dir))
}

func TestRelayerCommandFailure(t *testing.T) {
	dir := t.TempDir()
	relayer, err := NewRelayer(logging.NoLog{}, DefaultHost, writeFakeRelayer(t, dir, "error"), writeRelayerConfig(t, dir, 3000), "")
	require.NoError(t, err)

	_, err = relayer.CreateChannel(context.Background(), ChannelSpec{ChainA: "a", ChainB: "b", PortA: "transfer", PortB: "transfer"})
	require.ErrorIs(t, err, supervisor.ErrCommandFailed)
}

func TestRelayerStartCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := writeRelayerConfig(t, dir, 3000)
	relayer, err := NewRelayer(logging.NoLog{}, DefaultHost, "hermes", configPath, "")
	require.NoError(t, err)

	spec := relayer.StartCommand("relayer.log")
	require.Equal(t, relayerName, spec.Name)
	require.Equal(t, "hermes", spec.Path)
	require.Equal(t, []string{"--config", configPath, "start"}, spec.Args)
	require.Equal(t, "relayer.log", spec.LogPath)
}
