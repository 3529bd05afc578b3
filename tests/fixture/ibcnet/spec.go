// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibcnet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ava-labs/ibcnet/tests/fixture/chain"
)

var ErrInvalidSpec = errors.New("invalid network spec")

// Spec describes the chains, relayer and auxiliary services of a network.
type Spec struct {
	// Owner differentiates networks created at similar times.
	Owner string `mapstructure:"owner" json:"owner,omitempty"`
	// RootDir is the parent of the network directory. Defaults to
	// ~/.ibcnet/networks.
	RootDir      string        `mapstructure:"root_dir" json:"rootDir,omitempty"`
	Host         string        `mapstructure:"host" json:"host,omitempty"`
	ReadyTimeout time.Duration `mapstructure:"ready_timeout" json:"readyTimeout,omitempty"`
	StopTimeout  time.Duration `mapstructure:"stop_timeout" json:"stopTimeout,omitempty"`
	Ports        PortOffsets   `mapstructure:"ports" json:"ports"`

	Chains     []ChainSpec     `mapstructure:"chains" json:"chains"`
	Relayer    *RelayerSpec    `mapstructure:"relayer" json:"relayer,omitempty"`
	FileServer *FileServerSpec `mapstructure:"file_server" json:"fileServer,omitempty"`

	Accounts []chain.Account `mapstructure:"accounts" json:"accounts,omitempty"`
	// Contracts maps a contract name to the path of its compiled artifact.
	Contracts map[string]string `mapstructure:"contracts" json:"contracts,omitempty"`
}

type ChainSpec struct {
	ChainID string `mapstructure:"chain_id" json:"chainID"`
	// Binary is the chain's command line, used for transactions and queries.
	Binary        string `mapstructure:"binary" json:"binary"`
	Denom         string `mapstructure:"denom" json:"denom"`
	AccountPrefix string `mapstructure:"account_prefix" json:"accountPrefix,omitempty"`
	BasePort      uint16 `mapstructure:"base_port" json:"basePort"`
	NumNodes      int    `mapstructure:"num_nodes" json:"numNodes"`
	// EVM chains additionally expose an EVM JSON-RPC endpoint per node.
	EVM bool `mapstructure:"evm" json:"evm,omitempty"`
	// Home is the CLI home. Defaults to the first node's directory.
	Home           string `mapstructure:"home" json:"home,omitempty"`
	KeyringBackend string `mapstructure:"keyring_backend" json:"keyringBackend,omitempty"`
	GasPrices      string `mapstructure:"gas_prices" json:"gasPrices,omitempty"`

	// Initializer starts the chain's nodes. A chain without one is started
	// by the initializer of the chain named by ManagedBy.
	Initializer *InitializerSpec `mapstructure:"initializer" json:"initializer,omitempty"`
	ManagedBy   string           `mapstructure:"managed_by" json:"managedBy,omitempty"`
}

// InitializerSpec is invoked as
// `<path> serve --config <config> --data <dir> --base_port <port> [args...]`.
type InitializerSpec struct {
	Path   string   `mapstructure:"path" json:"path"`
	Config string   `mapstructure:"config" json:"config"`
	Args   []string `mapstructure:"args" json:"args,omitempty"`
}

type RelayerSpec struct {
	Binary string `mapstructure:"binary" json:"binary"`
	// Config is the relayer's TOML configuration. Defaults to
	// <network>/data/relayer.toml as written by the initializer.
	Config string `mapstructure:"config" json:"config,omitempty"`
	// Managed relayers are started by an initializer and are only checked
	// for readiness.
	Managed  bool          `mapstructure:"managed" json:"managed,omitempty"`
	Key      string        `mapstructure:"key" json:"key,omitempty"`
	Channels []ChannelSpec `mapstructure:"channels" json:"channels,omitempty"`
}

type ChannelSpec struct {
	ChainA string `mapstructure:"chain_a" json:"chainA"`
	ChainB string `mapstructure:"chain_b" json:"chainB"`
	PortA  string `mapstructure:"port_a" json:"portA"`
	PortB  string `mapstructure:"port_b" json:"portB"`
}

// FileServerSpec serves the file streamer output of a node over HTTP.
type FileServerSpec struct {
	Chain string `mapstructure:"chain" json:"chain"`
	Node  int    `mapstructure:"node" json:"node"`
	Port  uint16 `mapstructure:"port" json:"port"`
	// Dir overrides the served directory.
	Dir string `mapstructure:"dir" json:"dir,omitempty"`
}

// ReadSpec loads a spec from a YAML, JSON or TOML file. Values may be
// overridden by IBCNET_ prefixed environment variables, e.g.
// IBCNET_READY_TIMEOUT=5m.
func ReadSpec(path string) (*Spec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix(SpecEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"owner", "root_dir", "host", "ready_timeout", "stop_timeout"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read spec %s: %w", path, err)
	}

	spec := &Spec{}
	if err := v.Unmarshal(spec); err != nil {
		return nil, fmt.Errorf("failed to decode spec %s: %w", path, err)
	}
	spec.SetDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// SetDefaults fills unset values.
func (s *Spec) SetDefaults() {
	if s.Host == "" {
		s.Host = DefaultHost
	}
	if s.ReadyTimeout == 0 {
		s.ReadyTimeout = DefaultReadyTimeout
	}
	if s.StopTimeout == 0 {
		s.StopTimeout = DefaultStopTimeout
	}
	if s.Ports.isZero() {
		s.Ports = DefaultPortOffsets()
	}
	for i := range s.Chains {
		if s.Chains[i].NumNodes == 0 {
			s.Chains[i].NumNodes = DefaultNodeCount
		}
	}
	if s.Relayer != nil {
		for i := range s.Relayer.Channels {
			if s.Relayer.Channels[i].PortA == "" {
				s.Relayer.Channels[i].PortA = DefaultPortID
			}
			if s.Relayer.Channels[i].PortB == "" {
				s.Relayer.Channels[i].PortB = DefaultPortID
			}
		}
	}
	if len(s.Contracts) > 0 {
		contracts := make(map[string]string, len(s.Contracts))
		for name, path := range s.Contracts {
			contracts[strings.ToLower(name)] = path
		}
		s.Contracts = contracts
	}
	if s.FileServer != nil && s.FileServer.Port == 0 {
		s.FileServer.Port = DefaultFileServerPort
	}
}

func (s *Spec) Chain(chainID string) (ChainSpec, bool) {
	for _, c := range s.Chains {
		if c.ChainID == chainID {
			return c, true
		}
	}
	return ChainSpec{}, false
}

// Validate reports the first inconsistency in the spec.
func (s *Spec) Validate() error {
	if len(s.Chains) == 0 {
		return fmt.Errorf("%w: no chains", ErrInvalidSpec)
	}
	if s.Ports.maxOffset() >= NodePortStride {
		return fmt.Errorf("%w: port offsets must be below %d", ErrInvalidSpec, NodePortStride)
	}

	type portRange struct {
		chainID string
		lo, hi  int
	}
	var (
		seen   = make(map[string]bool, len(s.Chains))
		ranges = make([]portRange, 0, len(s.Chains))
	)
	for _, c := range s.Chains {
		switch {
		case c.ChainID == "":
			return fmt.Errorf("%w: chain without chain_id", ErrInvalidSpec)
		case seen[c.ChainID]:
			return fmt.Errorf("%w: duplicate chain %q", ErrInvalidSpec, c.ChainID)
		case c.Binary == "":
			return fmt.Errorf("%w: chain %q has no binary", ErrInvalidSpec, c.ChainID)
		case c.BasePort == 0:
			return fmt.Errorf("%w: chain %q has no base_port", ErrInvalidSpec, c.ChainID)
		case c.NumNodes < 1:
			return fmt.Errorf("%w: chain %q needs at least one node", ErrInvalidSpec, c.ChainID)
		case int(c.BasePort)+c.NumNodes*NodePortStride > 1<<16:
			return fmt.Errorf("%w: ports of chain %q exceed 65535", ErrInvalidSpec, c.ChainID)
		case (c.Initializer == nil) == (c.ManagedBy == ""):
			return fmt.Errorf("%w: chain %q needs exactly one of initializer or managed_by", ErrInvalidSpec, c.ChainID)
		case c.Initializer != nil && c.Initializer.Path == "":
			return fmt.Errorf("%w: initializer of chain %q has no path", ErrInvalidSpec, c.ChainID)
		}
		seen[c.ChainID] = true

		r := portRange{
			chainID: c.ChainID,
			lo:      int(c.BasePort),
			hi:      int(c.BasePort) + c.NumNodes*NodePortStride,
		}
		for _, other := range ranges {
			if r.lo < other.hi && other.lo < r.hi {
				return fmt.Errorf("%w: ports of chains %q and %q overlap", ErrInvalidSpec, r.chainID, other.chainID)
			}
		}
		ranges = append(ranges, r)
	}

	for _, c := range s.Chains {
		if c.ManagedBy == "" {
			continue
		}
		manager, ok := s.Chain(c.ManagedBy)
		if !ok || manager.Initializer == nil {
			return fmt.Errorf("%w: chain %q is managed by %q which has no initializer", ErrInvalidSpec, c.ChainID, c.ManagedBy)
		}
	}

	if s.Relayer != nil {
		if s.Relayer.Binary == "" {
			return fmt.Errorf("%w: relayer has no binary", ErrInvalidSpec)
		}
		for _, ch := range s.Relayer.Channels {
			if !seen[ch.ChainA] || !seen[ch.ChainB] {
				return fmt.Errorf("%w: channel %s-%s references an unknown chain", ErrInvalidSpec, ch.ChainA, ch.ChainB)
			}
		}
	}

	if fs := s.FileServer; fs != nil && fs.Dir == "" {
		c, ok := s.Chain(fs.Chain)
		if !ok {
			return fmt.Errorf("%w: file server references unknown chain %q", ErrInvalidSpec, fs.Chain)
		}
		if fs.Node < 0 || fs.Node >= c.NumNodes {
			return fmt.Errorf("%w: file server references node %d of %q", ErrInvalidSpec, fs.Node, fs.Chain)
		}
	}

	names := make(map[string]bool, len(s.Accounts))
	for _, a := range s.Accounts {
		if a.Name == "" || names[a.Name] {
			return fmt.Errorf("%w: account names must be unique and non-empty", ErrInvalidSpec)
		}
		names[a.Name] = true
	}
	return nil
}
