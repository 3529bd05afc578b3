// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package e2e

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ava-labs/ibcnet/tests"
	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/ibcnet"
	"github.com/ava-labs/ibcnet/tests/fixture/packet"
	"github.com/ava-labs/ibcnet/utils/logging"

	ginkgo "github.com/onsi/ginkgo/v2"
)

// Env is used to access shared test fixture. Intended to be initialized from
// BeforeSuite. Not exported to limit access to the shared env to GetEnv.
var env *TestEnvironment

type TestEnvironment struct {
	flagVars *FlagVars
	log      logging.Logger
	registry *prometheus.Registry
	verifier *packet.Verifier

	// Shared by the transfer scenarios. Nil when neither an ibc spec nor a
	// network dir was provided.
	ibcNetwork *ibcnet.Network
}

// InitSharedTestEnvironment must be called from BeforeSuite. The shared IBC
// network, if configured, is started or attached to here and released when
// the suite ends.
func InitSharedTestEnvironment(flagVars *FlagVars) {
	require := require.New(ginkgo.GinkgoT())
	require.Nil(env, "env already initialized")

	log, err := tests.NewLogger("e2e", logging.AutoString, flagVars.LogLevel(), flagVars.LogDir())
	require.NoError(err)

	registry := prometheus.NewRegistry()
	config := packet.DefaultConfig()
	config.Registerer = registry
	verifier, err := packet.NewVerifier(log, config)
	require.NoError(err)

	te := &TestEnvironment{
		flagVars: flagVars,
		log:      log,
		registry: registry,
		verifier: verifier,
	}

	switch {
	case len(flagVars.NetworkDir()) > 0:
		network, err := ibcnet.Attach(ContextWithTimeout(ibcnet.DefaultNetworkTimeout), log, flagVars.NetworkDir())
		require.NoError(err)
		tests.Warnf("Attached to a network started at %s", network.Dir)
		ginkgo.DeferCleanup(func() {
			network.Teardown(context.Background())
		})
		te.ibcNetwork = network
	case len(flagVars.IBCSpec()) > 0:
		te.ibcNetwork = te.StartNetwork(flagVars.IBCSpec())
	default:
		tests.Warnf("No ibc spec or network dir provided, transfer scenarios will be skipped")
	}

	env = te
}

func GetEnv() *TestEnvironment {
	require.NotNil(ginkgo.GinkgoT(), env, "env not initialized")
	return env
}

func (te *TestEnvironment) Log() logging.Logger {
	return te.log
}

func (te *TestEnvironment) FlagVars() *FlagVars {
	return te.flagVars
}

// Verifier is shared so that its metrics cover the whole suite.
func (te *TestEnvironment) Verifier() *packet.Verifier {
	return te.verifier
}

// IBCNetwork returns the shared network or skips the calling spec.
func (te *TestEnvironment) IBCNetwork() *ibcnet.Network {
	if te.ibcNetwork == nil {
		ginkgo.Skip("requires --ibc-spec or --network-dir")
	}
	return te.ibcNetwork
}

// StartNetwork brings up the network described by [specPath] and registers
// its teardown with ginkgo, so that it is released at the end of the
// enclosing node on every exit path.
func (te *TestEnvironment) StartNetwork(specPath string) *ibcnet.Network {
	require := require.New(ginkgo.GinkgoT())

	spec, err := ibcnet.ReadSpec(specPath)
	require.NoError(err)

	tests.Stepf("starting network from %s", specPath)
	network, err := ibcnet.BringUp(ContextWithTimeout(ibcnet.DefaultNetworkTimeout), te.log, spec)
	require.NoError(err)
	ginkgo.DeferCleanup(func() {
		tests.Outf("Shutting down network %s\n", network.Dir)
		ctx, cancel := context.WithTimeout(context.Background(), ibcnet.DefaultNetworkTimeout)
		defer cancel()
		network.Teardown(ctx)
	})

	tests.Successf("Successfully started network at %s", network.Dir)
	return network
}

// Chain looks up a chain of [network] or skips the calling spec when the
// network does not define it.
func (te *TestEnvironment) Chain(network *ibcnet.Network, chainID string) *ibcnet.Chain {
	c, err := network.Chain(chainID)
	if err != nil {
		ginkgo.Skip(err.Error())
	}
	return c
}

// Address returns the configured address of a keyring account or skips the
// calling spec when the account is missing.
func (te *TestEnvironment) Address(network *ibcnet.Network, account string) string {
	address, err := network.Keyring().Address(account)
	if err != nil {
		ginkgo.Skip(err.Error())
	}
	return address
}

// Artifact loads a contract artifact or skips the calling spec when the
// network has none registered under [name].
func (te *TestEnvironment) Artifact(network *ibcnet.Network, name string) *chain.Artifact {
	artifact, err := network.ContractArtifact(name)
	if err != nil {
		ginkgo.Skip(err.Error())
	}
	return artifact
}

// ReportMetrics logs the verifier metrics gathered over the suite.
func (te *TestEnvironment) ReportMetrics() {
	families, err := te.registry.Gather()
	require.NoError(ginkgo.GinkgoT(), err)
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			fields := []zap.Field{zap.String("name", family.GetName())}
			for _, label := range metric.GetLabel() {
				fields = append(fields, zap.String(label.GetName(), label.GetValue()))
			}
			switch {
			case metric.GetCounter() != nil:
				fields = append(fields, zap.Float64("value", metric.GetCounter().GetValue()))
			case metric.GetHistogram() != nil:
				fields = append(fields,
					zap.Uint64("count", metric.GetHistogram().GetSampleCount()),
					zap.Float64("sum", metric.GetHistogram().GetSampleSum()),
				)
			}
			te.log.Info("verifier metric", fields...)
		}
	}
}
