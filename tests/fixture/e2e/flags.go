// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package e2e

import (
	"flag"
	"fmt"
	"os"

	"github.com/ava-labs/ibcnet/tests/fixture/ibcnet"
	"github.com/ava-labs/ibcnet/utils/logging"
)

const (
	IBCSpecEnvName     = "IBCNET_E2E_IBC_SPEC"
	ReplaySpecEnvName  = "IBCNET_E2E_REPLAY_SPEC"
	PrimarySpecEnvName = "IBCNET_E2E_PRIMARY_SPEC"
	ReplicaSpecEnvName = "IBCNET_E2E_REPLICA_SPEC"
)

type FlagVars struct {
	ibcSpec     string
	networkDir  string
	replaySpec  string
	primarySpec string
	replicaSpec string
	logLevel    string
	logDir      string
}

// IBCSpec is the spec of the network shared by the transfer scenarios.
func (v *FlagVars) IBCSpec() string {
	return v.ibcSpec
}

// NetworkDir, when set, targets an already started IBC network instead of
// starting one from IBCSpec. Falls back to the env so that the output of
// `ibcnetctl start-network` can be used as is.
func (v *FlagVars) NetworkDir() string {
	if len(v.networkDir) > 0 {
		return v.networkDir
	}
	return os.Getenv(ibcnet.NetworkDirEnvName)
}

func (v *FlagVars) ReplaySpec() string {
	return v.replaySpec
}

func (v *FlagVars) PrimarySpec() string {
	return v.primarySpec
}

func (v *FlagVars) ReplicaSpec() string {
	return v.replicaSpec
}

func (v *FlagVars) LogLevel() string {
	return v.logLevel
}

func (v *FlagVars) LogDir() string {
	return v.logDir
}

func RegisterFlags() *FlagVars {
	vars := FlagVars{}
	flag.StringVar(
		&vars.ibcSpec,
		"ibc-spec",
		os.Getenv(IBCSpecEnvName),
		fmt.Sprintf("[optional] the spec of the network targeted by the transfer scenarios. Also possible to configure via the %s env variable.", IBCSpecEnvName),
	)
	flag.StringVar(
		&vars.networkDir,
		"network-dir",
		"",
		fmt.Sprintf("[optional] the dir of a started network to target instead of starting one from --ibc-spec. Useful for speeding up test development. Also possible to configure via the %s env variable.", ibcnet.NetworkDirEnvName),
	)
	flag.StringVar(
		&vars.replaySpec,
		"replay-spec",
		os.Getenv(ReplaySpecEnvName),
		fmt.Sprintf("[optional] the spec of the network targeted by the block replay scenario. Also possible to configure via the %s env variable.", ReplaySpecEnvName),
	)
	flag.StringVar(
		&vars.primarySpec,
		"primary-spec",
		os.Getenv(PrimarySpecEnvName),
		fmt.Sprintf("[optional] the spec of the primary network of the query-only scenario. Also possible to configure via the %s env variable.", PrimarySpecEnvName),
	)
	flag.StringVar(
		&vars.replicaSpec,
		"replica-spec",
		os.Getenv(ReplicaSpecEnvName),
		fmt.Sprintf("[optional] the spec of the replica network of the query-only scenario. Also possible to configure via the %s env variable.", ReplicaSpecEnvName),
	)
	flag.StringVar(
		&vars.logLevel,
		"log-level",
		logging.Info.String(),
		"the minimum level of harness logs",
	)
	flag.StringVar(
		&vars.logDir,
		"log-dir",
		"",
		"[optional] a dir to additionally write harness logs to",
	)

	return &vars
}
