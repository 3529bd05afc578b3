// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Implements the query-only replica scenario: a replica node follows a
// primary through the file streamer output the primary's file server
// exposes.
package queryonly

import (
	"context"
	"fmt"
	"net/http"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/tests"
	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/e2e"
	"github.com/ava-labs/ibcnet/tests/fixture/ibcnet"
	"github.com/ava-labs/ibcnet/tests/fixture/readiness"

	ginkgo "github.com/onsi/ginkgo/v2"
)

const (
	ChainID = "cronos_777-1"
	Denom   = "basetcro"

	sender    = "validator"
	recipient = "community"
)

var _ = e2e.DescribePrivate("[QueryOnly]", func() {
	ginkgo.It("serves the primary's blocks to a replica", func() {
		require := require.New(ginkgo.GinkgoT())
		env := e2e.GetEnv()

		primarySpec, replicaSpec := env.FlagVars().PrimarySpec(), env.FlagVars().ReplicaSpec()
		if len(primarySpec) == 0 || len(replicaSpec) == 0 {
			ginkgo.Skip("requires --primary-spec and --replica-spec")
		}

		ginkgo.By("starting the primary and its file server")
		primary := env.StartNetwork(primarySpec)
		fileServer := primary.FileServer()
		require.NotNil(fileServer, "the primary spec must configure a file server")
		tests.Outf(" serving %s at %s\n", fileServer.Dir(), fileServer.URL())

		ginkgo.By("starting the replica")
		replica := env.StartNetwork(replicaSpec)

		primaryEVM := requireEVM(env, primary)
		replicaEVM := requireEVM(env, replica)

		recipientAccount, err := primary.Keyring().Get(recipient)
		require.NoError(err)
		recipientAddress, err := recipientAccount.EthAddress()
		require.NoError(err)

		ginkgo.By("sending value on the primary")
		before := e2e.Snapshot(primaryEVM, recipientAddress.Hex(), Denom)
		receipt := e2e.Submit(primaryEVM, &chain.NativeTransfer{
			From:   sender,
			To:     recipientAddress.Hex(),
			Amount: math.NewInt(1000),
			Denom:  Denom,
		})
		after := e2e.Snapshot(primaryEVM, recipientAddress.Hex(), Denom)
		require.True(after.Amount.Equal(before.Amount.AddRaw(1000)))

		ginkgo.By("checking the file server exposes the block")
		url := fmt.Sprintf("%s/%s", fileServer.URL(), ibcnet.DataFileName(uint64(receipt.Height)))
		require.NoError(readiness.WaitForCondition(
			e2e.DefaultContext(),
			env.Log(),
			"streamed block "+url,
			e2e.DefaultTimeout,
			e2e.DefaultPollingInterval,
			func(ctx context.Context) (bool, error) {
				req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
				if err != nil {
					return false, err
				}
				resp, err := http.DefaultClient.Do(req)
				if err != nil {
					return false, nil
				}
				_ = resp.Body.Close()
				return resp.StatusCode == http.StatusOK, nil
			},
		))

		ginkgo.By("waiting for the replica to catch up")
		require.NoError(readiness.WaitForCondition(
			e2e.DefaultContext(),
			env.Log(),
			fmt.Sprintf("replica at height %d", receipt.Height),
			e2e.DefaultTimeout,
			e2e.DefaultPollingInterval,
			func(ctx context.Context) (bool, error) {
				height, err := replicaEVM.BlockNumber(ctx)
				if err != nil {
					return false, nil
				}
				return height >= uint64(receipt.Height), nil
			},
		))
		replicated := e2e.Snapshot(replicaEVM, recipientAddress.Hex(), Denom)
		require.True(replicated.Amount.Equal(after.Amount), "replica reports %s, primary %s", replicated.Amount, after.Amount)
	})
})

func requireEVM(env *e2e.TestEnvironment, network *ibcnet.Network) *chain.EVMClient {
	c := env.Chain(network, ChainID)
	require.NotNil(ginkgo.GinkgoT(), c.EVM, "%s must be an evm chain", ChainID)
	return c.EVM
}
