// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibcnet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/tests/fixture/supervisor"
	"github.com/ava-labs/ibcnet/utils/logging"
	"github.com/ava-labs/ibcnet/utils/perms"
	"github.com/ava-labs/ibcnet/version"
)

// Additional time granted to teardown beyond the stop timeout for groups
// that need SIGKILL.
const teardownGrace = 10 * time.Second

var (
	ErrUnknownChain        = errors.New("unknown chain")
	ErrIncompatibleNetwork = errors.New("network was created by an incompatible version")
)

// ProcessRecord identifies a launched process group so that a later
// invocation can stop it.
type ProcessRecord struct {
	Name string `json:"name"`
	Pid  int    `json:"pid"`
}

// Chain is a started chain together with clients for its first node.
type Chain struct {
	Spec  ChainSpec
	Nodes []NodeEndpoints
	// Cosmos is always set. EVM is only set for EVM chains.
	Cosmos *chain.CosmosClient
	EVM    *chain.EVMClient

	dir string
}

// NodeDir is the data directory of node [index] as laid out by the
// initializer.
func (c *Chain) NodeDir(index int) string {
	return filepath.Join(c.dir, "node"+strconv.Itoa(index))
}

// Client returns the EVM client for EVM chains and the Cosmos client
// otherwise.
func (c *Chain) Client() chain.Client {
	if c.EVM != nil {
		return c.EVM
	}
	return c.Cosmos
}

func (c *Chain) close() {
	if c.Cosmos != nil {
		_ = c.Cosmos.Close()
	}
	if c.EVM != nil {
		c.EVM.Close()
	}
}

// Network is a set of chains, an optional relayer and an optional file
// server started together and torn down together.
type Network struct {
	UUID  string `json:"uuid"`
	Owner string `json:"owner,omitempty"`
	// Version of the harness that started the network.
	Version   string            `json:"version,omitempty"`
	Dir       string            `json:"dir"`
	Spec      *Spec             `json:"spec"`
	Processes []ProcessRecord   `json:"processes"`
	Channels  []ChannelCreation `json:"channels,omitempty"`

	log        logging.Logger
	supervisor *supervisor.Supervisor
	keyring    *chain.Keyring
	chains     map[string]*Chain
	relayer    *Relayer
	fileServer *FileServer
	// Attached networks were started by another invocation and their
	// processes are left running on teardown.
	attached bool

	teardownOnce sync.Once
}

// BringUp starts every chain, creates the configured channels, starts the
// relayer and the file server, and returns once all of them accept
// connections. A partially started network is torn down before an error is
// returned.
func BringUp(ctx context.Context, log logging.Logger, spec *Spec) (_ *Network, err error) {
	spec.SetDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	n := &Network{
		UUID:    uuid.NewString(),
		Owner:   spec.Owner,
		Version: version.String(version.GitCommit),
		Spec:    spec,
		keyring: chain.NewKeyring(spec.Accounts...),
		chains:  make(map[string]*Chain, len(spec.Chains)),
	}
	n.log = log.With(zap.String("networkUUID", n.UUID))
	n.supervisor = supervisor.New(n.log).WithStopTimeout(spec.StopTimeout)

	if err := n.create(); err != nil {
		return nil, err
	}
	defer func() {
		if err == nil {
			return
		}
		n.log.Error("failed to bring up network, tearing down",
			zap.String("dir", n.Dir),
			zap.Error(err),
		)
		stopCtx, cancel := context.WithTimeout(context.Background(), spec.StopTimeout+teardownGrace)
		defer cancel()
		n.Teardown(stopCtx)
	}()

	n.log.Info("starting network",
		zap.String("dir", n.Dir),
		zap.Int("chains", len(spec.Chains)),
	)
	start := time.Now()

	if err := n.startChains(); err != nil {
		return nil, err
	}
	readyCtx, cancel := context.WithTimeout(ctx, spec.ReadyTimeout)
	defer cancel()
	if err := n.waitForChains(readyCtx); err != nil {
		return nil, err
	}
	if err := n.connectClients(ctx); err != nil {
		return nil, err
	}
	if err := n.startRelayer(ctx); err != nil {
		return nil, err
	}
	if err := n.startFileServer(); err != nil {
		return nil, err
	}
	if err := n.Write(); err != nil {
		return nil, err
	}

	n.log.Info("started network",
		zap.String("dir", n.Dir),
		zap.Duration("elapsed", time.Since(start)),
	)
	return n, nil
}

// WithNetwork brings up a network, runs [fn] against it and tears the
// network down on every exit path of [fn], including panics.
func WithNetwork(ctx context.Context, log logging.Logger, spec *Spec, fn func(context.Context, *Network) error) error {
	n, err := BringUp(ctx, log, spec)
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), n.Spec.StopTimeout+teardownGrace)
		defer cancel()
		n.Teardown(stopCtx)
	}()
	return fn(ctx, n)
}

// Attach connects to the running network persisted in [dir], e.g. one
// started by ibcnetctl. Its chains and relayer must already be ready. The
// file server is not started since it belongs to the starting invocation.
func Attach(ctx context.Context, log logging.Logger, dir string) (*Network, error) {
	n, err := ReadNetwork(log, dir)
	if err != nil {
		return nil, err
	}
	if err := n.checkVersion(); err != nil {
		return nil, err
	}
	n.attached = true
	n.supervisor = supervisor.New(n.log).WithStopTimeout(n.Spec.StopTimeout)
	n.keyring = chain.NewKeyring(n.Spec.Accounts...)
	n.chains = make(map[string]*Chain, len(n.Spec.Chains))
	for _, spec := range n.Spec.Chains {
		n.chains[spec.ChainID] = n.newChain(spec)
	}

	readyCtx, cancel := context.WithTimeout(ctx, n.Spec.ReadyTimeout)
	defer cancel()
	if err := n.waitForChains(readyCtx); err != nil {
		return nil, err
	}
	if err := n.connectClients(ctx); err != nil {
		n.closeClients()
		return nil, err
	}
	if n.Spec.Relayer != nil {
		relayer, err := n.RelayerForPersisted()
		if err != nil {
			n.closeClients()
			return nil, err
		}
		if err := relayer.WaitForReady(ctx, n.Spec.ReadyTimeout); err != nil {
			n.closeClients()
			return nil, err
		}
		n.relayer = relayer
	}
	n.log.Info("attached to network", zap.String("dir", n.Dir))
	return n, nil
}

// Teardown stops the file server and then every launched process group. It
// runs at most once. Failures are logged and not returned. A network that
// was attached or only read from disk launched nothing and only releases its
// clients.
func (n *Network) Teardown(ctx context.Context) {
	n.teardownOnce.Do(func() {
		if n.attached || n.supervisor == nil {
			n.closeClients()
			return
		}
		n.log.Info("tearing down network", zap.String("dir", n.Dir))

		if n.fileServer != nil {
			if err := n.fileServer.Stop(ctx); err != nil {
				n.log.Warn("failed to stop file server", zap.Error(err))
			}
		}
		n.closeClients()
		if err := n.supervisor.TerminateAll(ctx); err != nil {
			n.log.Warn("failed to terminate processes", zap.Error(err))
		}

		n.Processes = nil
		if err := n.Write(); err != nil {
			n.log.Warn("failed to record stopped network", zap.Error(err))
		}
		n.log.Info("tore down network", zap.String("dir", n.Dir))
	})
}

func (n *Network) closeClients() {
	for _, c := range n.chains {
		c.close()
	}
}

func (n *Network) Chain(chainID string) (*Chain, error) {
	c, ok := n.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChain, chainID)
	}
	return c, nil
}

func (n *Network) Relayer() (*Relayer, error) {
	if n.relayer == nil {
		return nil, ErrNoRelayer
	}
	return n.relayer, nil
}

// FileServer is nil when none was configured.
func (n *Network) FileServer() *FileServer {
	return n.fileServer
}

func (n *Network) Keyring() *chain.Keyring {
	return n.keyring
}

// ContractArtifact loads the artifact registered under [name]. Names are
// case-insensitive.
func (n *Network) ContractArtifact(name string) (*chain.Artifact, error) {
	path, ok := n.Spec.Contracts[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("no artifact configured for contract %q", name)
	}
	return chain.LoadArtifact(path)
}

// RelayerConfigPath is the configured relayer config or the one the
// initializer writes into the data dir.
func (n *Network) RelayerConfigPath() string {
	if n.Spec.Relayer != nil && n.Spec.Relayer.Config != "" {
		return n.Spec.Relayer.Config
	}
	return filepath.Join(n.DataDir(), relayerConfigFilename)
}

// RelayerForPersisted returns a relayer handle for a network loaded with
// ReadNetwork.
func (n *Network) RelayerForPersisted() (*Relayer, error) {
	if n.relayer != nil {
		return n.relayer, nil
	}
	spec := n.Spec.Relayer
	if spec == nil {
		return nil, ErrNoRelayer
	}
	return NewRelayer(n.log, n.Spec.Host, spec.Binary, n.RelayerConfigPath(), spec.Key)
}

func (n *Network) DataDir() string {
	return filepath.Join(n.Dir, dataDirName)
}

func (n *Network) LogsDir() string {
	return filepath.Join(n.Dir, logsDirName)
}

// EnvFileContents is a shell statement targeting this network.
func (n *Network) EnvFileContents() string {
	return fmt.Sprintf("export %s=%s", NetworkDirEnvName, n.Dir)
}

func (n *Network) create() error {
	rootDir := n.Spec.RootDir
	if rootDir == "" {
		var err error
		rootDir, err = DefaultRootDir()
		if err != nil {
			return err
		}
	}
	if err := os.MkdirAll(rootDir, perms.ReadWriteExecute); err != nil {
		return fmt.Errorf("failed to create root network dir: %w", err)
	}

	// A time-based name ensures consistent directory ordering
	dirName := time.Now().Format("20060102-150405.999999")
	if n.Owner != "" {
		dirName = fmt.Sprintf("%s-%s", dirName, n.Owner)
	}
	networkDir := filepath.Join(rootDir, dirName)
	for _, dir := range []string{networkDir, filepath.Join(networkDir, dataDirName), filepath.Join(networkDir, logsDirName)} {
		if err := os.MkdirAll(dir, perms.ReadWriteExecute); err != nil {
			return fmt.Errorf("failed to create network dir: %w", err)
		}
	}
	canonicalDir, err := toCanonicalDir(networkDir)
	if err != nil {
		return err
	}
	n.Dir = canonicalDir
	return n.Write()
}

func (n *Network) startChains() error {
	for _, spec := range n.Spec.Chains {
		n.chains[spec.ChainID] = n.newChain(spec)

		if spec.Initializer == nil {
			n.log.Info("chain is started by another initializer",
				zap.String("chainID", spec.ChainID),
				zap.String("managedBy", spec.ManagedBy),
			)
			continue
		}
		args := []string{
			"serve",
			"--config", spec.Initializer.Config,
			"--data", n.DataDir(),
			"--base_port", strconv.Itoa(int(spec.BasePort)),
		}
		args = append(args, spec.Initializer.Args...)
		if _, err := n.supervisor.Launch(supervisor.CommandSpec{
			Name:    spec.ChainID,
			Path:    spec.Initializer.Path,
			Args:    args,
			Dir:     n.Dir,
			LogPath: filepath.Join(n.LogsDir(), spec.ChainID+".log"),
		}); err != nil {
			return err
		}
	}
	n.recordProcesses()
	return n.Write()
}

func (n *Network) newChain(spec ChainSpec) *Chain {
	c := &Chain{
		Spec: spec,
		dir:  filepath.Join(n.DataDir(), spec.ChainID),
	}
	for i := 0; i < spec.NumNodes; i++ {
		c.Nodes = append(c.Nodes, Endpoints(n.Spec.Host, spec.BasePort, i, n.Spec.Ports, spec.EVM))
	}
	return c
}

func (n *Network) recordProcesses() {
	processes := n.supervisor.Processes()
	n.Processes = make([]ProcessRecord, 0, len(processes))
	for _, p := range processes {
		n.Processes = append(n.Processes, ProcessRecord{
			Name: p.Name(),
			Pid:  p.Pid(),
		})
	}
}

// waitForChains blocks until every readiness port of every node accepts
// connections. [ctx] carries the overall deadline.
func (n *Network) waitForChains(ctx context.Context) error {
	deadline, _ := ctx.Deadline()
	for _, spec := range n.Spec.Chains {
		c := n.chains[spec.ChainID]
		for _, node := range c.Nodes {
			for _, port := range node.ReadinessPorts() {
				if err := readiness.WaitForPort(ctx, n.log, node.Host, port, time.Until(deadline)); err != nil {
					return fmt.Errorf("chain %s %s not ready: %w%s", spec.ChainID, node, err, n.exitedProcesses())
				}
			}
		}
		n.log.Info("chain ready",
			zap.String("chainID", spec.ChainID),
			zap.Int("nodes", len(c.Nodes)),
		)
	}
	return nil
}

// exitedProcesses describes launched processes that have already exited.
func (n *Network) exitedProcesses() string {
	var msg string
	for _, p := range n.supervisor.Processes() {
		if !p.Alive() {
			msg += fmt.Sprintf("; %s (pid %d) exited: %v", p.Name(), p.Pid(), p.ExitErr())
		}
	}
	return msg
}

func (n *Network) connectClients(ctx context.Context) error {
	for _, spec := range n.Spec.Chains {
		c := n.chains[spec.ChainID]
		node := c.Nodes[0]

		home := spec.Home
		if home == "" {
			home = c.NodeDir(0)
		}
		cosmos, err := chain.NewCosmosClient(n.log, chain.CosmosConfig{
			ChainID:        spec.ChainID,
			Binary:         spec.Binary,
			Home:           home,
			KeyringBackend: spec.KeyringBackend,
			RPCURI:         node.RPCURI(),
			GRPCAddress:    node.GRPCAddress(),
			APIURI:         node.APIURI(),
			GasPrices:      spec.GasPrices,
		}, n.keyring)
		if err != nil {
			return fmt.Errorf("failed to create client for %s: %w", spec.ChainID, err)
		}
		c.Cosmos = cosmos

		if !spec.EVM {
			continue
		}
		evm, err := chain.DialEVM(ctx, n.log, chain.EVMConfig{
			ChainID: spec.ChainID,
			RPCURI:  node.EVMRPCURI(),
			Denom:   spec.Denom,
		}, n.keyring)
		if err != nil {
			return fmt.Errorf("failed to dial evm of %s: %w", spec.ChainID, err)
		}
		c.EVM = evm
	}
	return nil
}

func (n *Network) startRelayer(ctx context.Context) error {
	spec := n.Spec.Relayer
	if spec == nil {
		return nil
	}
	relayer, err := NewRelayer(n.log, n.Spec.Host, spec.Binary, n.RelayerConfigPath(), spec.Key)
	if err != nil {
		return err
	}
	n.relayer = relayer

	for _, channel := range spec.Channels {
		created, err := relayer.CreateChannel(ctx, channel)
		if err != nil {
			return err
		}
		n.Channels = append(n.Channels, *created)
	}

	if !spec.Managed {
		if _, err := n.supervisor.Launch(relayer.StartCommand(filepath.Join(n.LogsDir(), relayerName+".log"))); err != nil {
			return err
		}
		n.recordProcesses()
		if err := n.Write(); err != nil {
			return err
		}
	}
	return relayer.WaitForReady(ctx, n.Spec.ReadyTimeout)
}

func (n *Network) startFileServer() error {
	spec := n.Spec.FileServer
	if spec == nil {
		return nil
	}
	dir := spec.Dir
	if dir == "" {
		c := n.chains[spec.Chain]
		dir = filepath.Join(c.NodeDir(spec.Node), dataDirName, fileStreamerDirName)
	}
	// The streamer may not have written anything yet
	if err := os.MkdirAll(dir, perms.ReadWriteExecute); err != nil {
		return fmt.Errorf("failed to create file server dir: %w", err)
	}
	fileServer, err := StartFileServer(n.log, dir, n.Spec.Host, spec.Port)
	if err != nil {
		return err
	}
	n.fileServer = fileServer
	return nil
}

// Write persists the network so that StopNetwork can find its processes.
func (n *Network) Write() error {
	bytes, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal network: %w", err)
	}
	return perms.WriteFile(filepath.Join(n.Dir, defaultNetworkFilename), bytes)
}

// ReadNetwork loads a network persisted in [dir]. The returned network can
// only be stopped; it has no clients.
func ReadNetwork(log logging.Logger, dir string) (*Network, error) {
	canonicalDir, err := toCanonicalDir(dir)
	if err != nil {
		return nil, err
	}
	bytes, err := os.ReadFile(filepath.Join(canonicalDir, defaultNetworkFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to read network: %w", err)
	}
	n := &Network{}
	if err := json.Unmarshal(bytes, n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal network: %w", err)
	}
	if n.Spec == nil {
		return nil, fmt.Errorf("%w: network in %s has no spec", ErrInvalidSpec, canonicalDir)
	}
	n.Spec.SetDefaults()
	n.Dir = canonicalDir
	n.log = log.With(zap.String("networkUUID", n.UUID))
	return n, nil
}

// checkVersion rejects networks whose persisted state this harness may not
// understand. Networks without a recorded version are accepted.
func (n *Network) checkVersion() error {
	if n.Version == "" {
		return nil
	}
	v, _, err := version.ParseApplication(n.Version)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIncompatibleNetwork, err)
	}
	if !version.Current.Compatible(v) {
		return fmt.Errorf("%w: %s", ErrIncompatibleNetwork, n.Version)
	}
	return nil
}

// StopNetwork stops the processes of the network persisted in [dir].
func StopNetwork(ctx context.Context, log logging.Logger, dir string) error {
	n, err := ReadNetwork(log, dir)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range n.Processes {
		if err := supervisor.TerminatePID(ctx, n.log.With(zap.String("name", p.Name)), p.Pid, n.Spec.StopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", p.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	n.Processes = nil
	return n.Write()
}

// DefaultRootDir is $IBCNET_ROOT_DIR or ~/.ibcnet/networks.
func DefaultRootDir() (string, error) {
	if dir := os.Getenv(RootDirEnvName); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".ibcnet", "networks"), nil
}

// Ensure a real and absolute network dir so that paths embedded in the
// persisted network remain valid regardless of symlink and working
// directory changes.
func toCanonicalDir(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(absDir)
}
