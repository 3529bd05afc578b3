// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build unix

package ibcnet

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/utils/logging"
	"github.com/ava-labs/ibcnet/version"
)

// fakeInitializer records its arguments and then stays up like a process
// supervisor would.
const fakeInitializer = `#!/bin/sh
echo "$@" > "$(dirname "$0")/init-args"
exec sleep 60
`

var errScenario = errors.New("scenario failed")

// listenPair binds two consecutive local ports and returns the first. The
// listeners accept connections without serving them, which is all readiness
// needs.
func listenPair(t *testing.T) uint16 {
	t.Helper()

	for i := 0; i < 20; i++ {
		first, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		port := first.Addr().(*net.TCPAddr).Port
		if port+NodePortStride > 1<<16 {
			_ = first.Close()
			continue
		}
		second, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port+1)))
		if err != nil {
			_ = first.Close()
			continue
		}
		t.Cleanup(func() {
			_ = first.Close()
			_ = second.Close()
		})
		return uint16(port)
	}
	t.Skip("no consecutive free ports")
	return 0
}

func freePort(t *testing.T) uint16 {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return uint16(port)
}

func writeScript(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "init")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o700))
	return path
}

func testSpec(t *testing.T, initializer string, basePort uint16) *Spec {
	return &Spec{
		Owner:        "test",
		RootDir:      t.TempDir(),
		ReadyTimeout: 10 * time.Second,
		StopTimeout:  5 * time.Second,
		// Only RPC and gRPC are awaited for a chain without an EVM
		Ports: PortOffsets{RPC: 0, GRPC: 1, API: 2, P2P: 3},
		Chains: []ChainSpec{
			{
				ChainID:     "chainmain-1",
				Binary:      "chain-maind",
				Denom:       "basecro",
				BasePort:    basePort,
				Initializer: &InitializerSpec{Path: initializer, Config: "chainmain.jsonnet"},
			},
		},
	}
}

func processGone(pid int) bool {
	return errors.Is(syscall.Kill(pid, 0), syscall.ESRCH)
}

func TestBringUpAndTeardown(t *testing.T) {
	require := require.New(t)

	initializer := writeScript(t, fakeInitializer)
	spec := testSpec(t, initializer, listenPair(t))
	spec.FileServer = &FileServerSpec{Chain: "chainmain-1", Port: freePort(t)}

	n, err := BringUp(context.Background(), logging.NoLog{}, spec)
	require.NoError(err)

	require.NotEmpty(n.UUID)
	require.Equal(version.String(version.GitCommit), n.Version)
	require.True(strings.HasSuffix(n.Dir, "-test"))
	require.Len(n.Processes, 1)
	pid := n.Processes[0].Pid
	require.False(processGone(pid))

	bytes, err := os.ReadFile(filepath.Join(filepath.Dir(initializer), "init-args"))
	require.NoError(err)
	require.Equal(
		"serve --config chainmain.jsonnet --data "+n.DataDir()+" --base_port "+strconv.Itoa(int(spec.Chains[0].BasePort)),
		strings.TrimSpace(string(bytes)),
	)

	c, err := n.Chain("chainmain-1")
	require.NoError(err)
	require.NotNil(c.Cosmos)
	require.Nil(c.EVM)
	require.Equal(c.Cosmos, c.Client())
	require.Equal(filepath.Join(n.DataDir(), "chainmain-1", "node0"), c.NodeDir(0))

	_, err = n.Chain("cronos_777-1")
	require.ErrorIs(err, ErrUnknownChain)
	_, err = n.Relayer()
	require.ErrorIs(err, ErrNoRelayer)

	fileServer := n.FileServer()
	require.NotNil(fileServer)
	require.Equal(filepath.Join(c.NodeDir(0), dataDirName, fileStreamerDirName), fileServer.Dir())
	require.DirExists(fileServer.Dir())

	persisted, err := ReadNetwork(logging.NoLog{}, n.Dir)
	require.NoError(err)
	require.Equal(n.UUID, persisted.UUID)
	require.Equal(n.Processes, persisted.Processes)

	n.Teardown(context.Background())
	require.True(processGone(pid))
	// Idempotent
	n.Teardown(context.Background())

	persisted, err = ReadNetwork(logging.NoLog{}, n.Dir)
	require.NoError(err)
	require.Empty(persisted.Processes)
}

func TestBringUpTearsDownOnFailure(t *testing.T) {
	require := require.New(t)

	spec := testSpec(t, writeScript(t, "#!/bin/sh\nexit 3\n"), freePort(t))
	spec.ReadyTimeout = 500 * time.Millisecond

	_, err := BringUp(context.Background(), logging.NoLog{}, spec)
	require.Error(err)
	require.Contains(err.Error(), "exited")

	entries, err := os.ReadDir(spec.RootDir)
	require.NoError(err)
	require.Len(entries, 1)
	persisted, err := ReadNetwork(logging.NoLog{}, filepath.Join(spec.RootDir, entries[0].Name()))
	require.NoError(err)
	require.Empty(persisted.Processes)
}

func TestBringUpRejectsInvalidSpec(t *testing.T) {
	_, err := BringUp(context.Background(), logging.NoLog{}, &Spec{RootDir: t.TempDir()})
	require.ErrorIs(t, err, ErrInvalidSpec)
}

func TestWithNetwork(t *testing.T) {
	require := require.New(t)

	spec := testSpec(t, writeScript(t, fakeInitializer), listenPair(t))

	var pid int
	err := WithNetwork(context.Background(), logging.NoLog{}, spec, func(_ context.Context, n *Network) error {
		pid = n.Processes[0].Pid
		require.False(processGone(pid))
		return errScenario
	})
	require.ErrorIs(err, errScenario)
	require.True(processGone(pid))
}

func TestWithNetworkPanic(t *testing.T) {
	require := require.New(t)

	spec := testSpec(t, writeScript(t, fakeInitializer), listenPair(t))

	var pid int
	require.Panics(func() {
		_ = WithNetwork(context.Background(), logging.NoLog{}, spec, func(_ context.Context, n *Network) error {
			pid = n.Processes[0].Pid
			panic(errScenario)
		})
	})
	require.NotZero(pid)
	require.True(processGone(pid))
}

func TestStopNetwork(t *testing.T) {
	require := require.New(t)

	spec := testSpec(t, writeScript(t, fakeInitializer), listenPair(t))
	n, err := BringUp(context.Background(), logging.NoLog{}, spec)
	require.NoError(err)
	defer n.Teardown(context.Background())

	pid := n.Processes[0].Pid
	require.NoError(StopNetwork(context.Background(), logging.NoLog{}, n.Dir))
	require.Eventually(func() bool {
		return processGone(pid)
	}, 5*time.Second, 10*time.Millisecond)

	persisted, err := ReadNetwork(logging.NoLog{}, n.Dir)
	require.NoError(err)
	require.Empty(persisted.Processes)
}

func TestTeardownOfReadNetwork(t *testing.T) {
	require := require.New(t)

	spec := testSpec(t, writeScript(t, fakeInitializer), listenPair(t))
	n, err := BringUp(context.Background(), logging.NoLog{}, spec)
	require.NoError(err)
	defer n.Teardown(context.Background())
	pid := n.Processes[0].Pid

	read, err := ReadNetwork(logging.NoLog{}, n.Dir)
	require.NoError(err)
	require.NotPanics(func() {
		read.Teardown(context.Background())
	})

	// The processes belong to the network that launched them
	require.False(processGone(pid))
	persisted, err := ReadNetwork(logging.NoLog{}, n.Dir)
	require.NoError(err)
	require.Equal(n.Processes, persisted.Processes)
}

func TestAttach(t *testing.T) {
	require := require.New(t)

	spec := testSpec(t, writeScript(t, fakeInitializer), listenPair(t))
	n, err := BringUp(context.Background(), logging.NoLog{}, spec)
	require.NoError(err)
	defer n.Teardown(context.Background())
	pid := n.Processes[0].Pid

	attached, err := Attach(context.Background(), logging.NoLog{}, n.Dir)
	require.NoError(err)
	require.Equal(n.UUID, attached.UUID)
	c, err := attached.Chain("chainmain-1")
	require.NoError(err)
	require.NotNil(c.Cosmos)
	require.Nil(attached.FileServer())

	// Processes belong to the starting network
	attached.Teardown(context.Background())
	require.False(processGone(pid))
	persisted, err := ReadNetwork(logging.NoLog{}, n.Dir)
	require.NoError(err)
	require.Len(persisted.Processes, 1)

	n.Teardown(context.Background())
	require.True(processGone(pid))
}

func TestAttachMissingNetwork(t *testing.T) {
	_, err := Attach(context.Background(), logging.NoLog{}, t.TempDir())
	require.Error(t, err)
}

func TestAttachIncompatibleVersion(t *testing.T) {
	dir := t.TempDir()
	contents := `{"uuid":"u","version":"ibcnet/v99.0.0","spec":{"chains":[]}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, defaultNetworkFilename), []byte(contents), 0o600))

	_, err := Attach(context.Background(), logging.NoLog{}, dir)
	require.ErrorIs(t, err, ErrIncompatibleNetwork)
}

func TestCheckVersion(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		expectedErr error
	}{
		{
			name: "unrecorded",
		},
		{
			name:    "current",
			version: version.String("abc"),
		},
		{
			name:        "newer major",
			version:     "ibcnet/v99.0.0",
			expectedErr: ErrIncompatibleNetwork,
		},
		{
			name:        "unparseable",
			version:     "tmpnet/v1.0.0",
			expectedErr: ErrIncompatibleNetwork,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			n := &Network{Version: test.version}
			require.ErrorIs(t, n.checkVersion(), test.expectedErr)
		})
	}
}
