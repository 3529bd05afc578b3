// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Implements the block replay scenario, which needs a chain whose block gas
// limit admits only one of two heavy transactions.
package replay

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/tests"
	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/e2e"
	"github.com/ava-labs/ibcnet/tests/fixture/readiness"

	ginkgo "github.com/onsi/ginkgo/v2"
)

const (
	ChainID = "cronos_777-1"

	deployer = "community"
	sender   = "validator"

	MessageCallContract = "TestMessageCall"

	iterations = 400
	maxRounds  = 10

	// The second transaction of a round may be included and fail, in which
	// case no receipt is ever served for it.
	secondReceiptTimeout = time.Minute
)

var _ = e2e.DescribePrivate("[Replay]", func() {
	ginkgo.It("replays a block holding two transactions", func() {
		require := require.New(ginkgo.GinkgoT())
		env := e2e.GetEnv()

		specPath := env.FlagVars().ReplaySpec()
		if len(specPath) == 0 {
			ginkgo.Skip("requires --replay-spec")
		}
		network := env.StartNetwork(specPath)
		c := env.Chain(network, ChainID)
		if c.EVM == nil {
			ginkgo.Skip(ChainID + " is not an evm chain")
		}
		evm := c.EVM

		artifact := env.Artifact(network, MessageCallContract)
		contract := e2e.DeployContract(evm, deployer, artifact)
		callAt := func(n uint64) *chain.ContractCall {
			return &chain.ContractCall{
				From:   sender,
				To:     contract,
				ABI:    artifact.ABI,
				Method: "test",
				Args:   []interface{}{big.NewInt(iterations)},
				Nonce:  &n,
			}
		}

		var (
			nonce      uint64
			receipt1   *chain.Receipt
			noReceipt2 bool
		)
		for round := 1; round <= maxRounds && !noReceipt2; round++ {
			var err error
			nonce, err = evm.NonceAt(e2e.DefaultContext(), sender)
			require.NoError(err)

			// Both are sent with consecutive nonces before either is mined so
			// that they can share a block.
			hashes := make([]common.Hash, 2)
			for i := range hashes {
				hashes[i], err = evm.Send(e2e.DefaultContext(), callAt(nonce+uint64(i)))
				require.NoError(err)
			}

			receipt1, err = evm.WaitForReceipt(e2e.DefaultContext(), hashes[0], e2e.DefaultTimeout)
			require.NoError(err)
			receipt2, err := evm.WaitForReceipt(e2e.DefaultContext(), hashes[1], secondReceiptTimeout)
			switch {
			case errors.Is(err, readiness.ErrTimeout):
				tests.Outf(" second tx of round %d was included without a receipt\n", round)
				noReceipt2 = true
			case err != nil:
				require.NoError(err)
			case receipt1.Height == receipt2.Height:
				require.FailNow("second tx was served a receipt", "both txs succeeded in block %d", receipt1.Height)
			default:
				tests.Outf(" round %d: txs were included in blocks %d and %d, retrying\n", round, receipt1.Height, receipt2.Height)
			}
		}
		require.True(noReceipt2, "failed to include both txs in one block after %d rounds", maxRounds)

		ginkgo.By("checking both transactions consumed a nonce")
		next, err := evm.NonceAt(e2e.DefaultContext(), sender)
		require.NoError(err)
		require.Equal(nonce+2, next)

		ginkgo.By("replaying the block")
		replayed, err := evm.ReplayBlock(e2e.DefaultContext(), uint64(receipt1.Height))
		require.NoError(err)
		require.Len(replayed, 2)
		for _, tx := range replayed {
			tests.Outf(" replayed %s status %d gas %d\n", tx.TxHash, tx.Status, tx.GasUsed)
		}
	})
})
