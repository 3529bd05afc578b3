// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package e2e

import (
	"context"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/tests"
	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/packet"

	ginkgo "github.com/onsi/ginkgo/v2"
)

const (
	// A long default timeout used to timeout failed operations but
	// unlikely to induce flaking due to unexpected resource
	// contention.
	DefaultTimeout = 2 * time.Minute

	DefaultPollingInterval = time.Second
)

// Helper simplifying use of a timed context by canceling the context on ginkgo teardown.
func ContextWithTimeout(duration time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), duration)
	ginkgo.DeferCleanup(cancel)
	return ctx
}

// Helper simplifying use of a timed context configured with the default timeout.
func DefaultContext() context.Context {
	return ContextWithTimeout(DefaultTimeout)
}

// Snapshot records the current balance of [address] in [denom].
func Snapshot(client chain.Client, address string, denom string) packet.BalanceSnapshot {
	snapshot, err := packet.TakeSnapshot(DefaultContext(), client, address, denom)
	require.NoError(ginkgo.GinkgoT(), err)
	tests.Outf(" balance of %s on %s: %s%s\n", address, client.ChainID(), snapshot.Amount, denom)
	return snapshot
}

// RequireBalanceIncrease waits for the balance recorded in [before] to change
// and checks that it grew by exactly [expected].
func RequireBalanceIncrease(client chain.Client, before packet.BalanceSnapshot, expected math.Int) {
	require := require.New(ginkgo.GinkgoT())

	after, err := packet.WaitForBalanceChange(
		DefaultContext(),
		GetEnv().Log(),
		client,
		before,
		DefaultTimeout,
		DefaultPollingInterval,
	)
	require.NoError(err)
	delta, err := packet.Delta(before, after)
	require.NoError(err)
	require.True(delta.Equal(expected), "expected %s to grow by %s, got %s", before.Address, expected, delta)
}

// Submit submits [tx] and checks that it executed successfully.
func Submit(client chain.Client, tx chain.TxSpec) *chain.Receipt {
	receipt, err := client.Submit(DefaultContext(), tx)
	require.NoError(ginkgo.GinkgoT(), err)
	require.True(ginkgo.GinkgoT(), receipt.Succeeded(), "tx %s failed: %s", receipt.TxHash, receipt.RawLog)
	tests.Outf(" tx %s included at height %d\n", receipt.TxHash, receipt.Height)
	return receipt
}

// DeployContract deploys [artifact] from the keyring account [from].
func DeployContract(client *chain.EVMClient, from string, artifact *chain.Artifact, args ...interface{}) common.Address {
	address, receipt, err := client.Deploy(DefaultContext(), from, artifact, args...)
	require.NoError(ginkgo.GinkgoT(), err)
	require.True(ginkgo.GinkgoT(), receipt.Succeeded(), "deployment of %s failed", artifact.Name)
	tests.Stepf("deployed %s at %s", artifact.Name, address)
	return address
}
