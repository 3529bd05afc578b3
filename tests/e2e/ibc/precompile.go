// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibc

import (
	"math/big"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/tests"
	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/e2e"
	"github.com/ava-labs/ibcnet/tests/fixture/ibcnet"
	"github.com/ava-labs/ibcnet/tests/fixture/packet"

	ginkgo "github.com/onsi/ginkgo/v2"
)

const (
	transferMethod       = "nativeTransfer"
	transferRevertMethod = "nativeTransferRevert"

	// Estimation of a reverting call fails, so its gas is fixed.
	revertGas = 210_000

	// A timeout this short expires before the relayer can deliver.
	shortTimeout = 10
)

func verifyPrecompileTransfers(
	network *ibcnet.Network,
	cosmosChain *ibcnet.Chain,
	evmChain *ibcnet.Chain,
	sender common.Address,
	receiver string,
) {
	require := require.New(ginkgo.GinkgoT())
	env := e2e.GetEnv()
	artifact := env.Artifact(network, TestIBCContract)

	ginkgo.By("deploying the precompile test contract")
	contract := e2e.DeployContract(evmChain.EVM, EVMCommunity, artifact)
	querier, err := chain.NewPrecompileQuerier(evmChain.EVM, contract)
	require.NoError(err)

	dstAmount := math.NewInt(2)
	srcAmount := packet.ScaleAmount(dstAmount, scale)
	newScenario := func(name string, method string, timeout int64, gas uint64, expected packet.State) packet.Scenario {
		return packet.Scenario{
			Name:             name,
			Source:           evmChain.EVM,
			Destination:      cosmosChain.Client(),
			Querier:          querier,
			PortID:           PortID,
			ChannelID:        ChannelID,
			Sender:           sender.Hex(),
			Receiver:         receiver,
			SourceDenom:      EVMDenom,
			DestinationDenom: CosmosDenom,
			Amount:           srcAmount,
			Divisor:          scale,
			Timeout:          uint64(timeout),
			// The community account pays the fees so that they do not show
			// up in the sender's delta.
			Tx: &chain.ContractCall{
				From:   EVMCommunity,
				To:     contract,
				ABI:    artifact.ABI,
				Method: method,
				Args: []interface{}{
					PortID,
					ChannelID,
					sender,
					receiver,
					srcAmount.BigInt(),
					EVMDenom,
					CosmosDenom,
					scale.BigInt(),
					big.NewInt(timeout),
				},
				Gas: gas,
			},
			Expected: expected,
		}
	}

	ginkgo.By("transferring without a timeout")
	report, err := env.Verifier().VerifyOutcome(e2e.DefaultContext(), newScenario("acknowledged", transferMethod, 0, 0, packet.Acknowledged))
	require.NoError(err)
	require.True(report.CommitmentCleared)
	require.True(report.SourceDelta.Equal(srcAmount.Neg()))
	require.True(report.DestinationDelta.Equal(dstAmount))
	requireAckDiff(report, 1)
	logReport(report)

	ginkgo.By("transferring with a timeout that expires")
	report, err = env.Verifier().VerifyOutcome(e2e.DefaultContext(), newScenario("timed out", transferMethod, shortTimeout, 0, packet.TimedOut))
	require.NoError(err)
	require.True(report.SourceDelta.IsZero())
	require.True(report.DestinationDelta.IsZero())
	requireAckDiff(report, 0)
	logReport(report)

	ginkgo.By("transferring with a reverting call")
	report, err = env.Verifier().VerifyOutcome(e2e.DefaultContext(), newScenario("reverted", transferRevertMethod, 0, revertGas, packet.Reverted))
	require.NoError(err)
	require.False(report.Receipt.Succeeded())
	require.Equal(report.SequenceBefore, report.SequenceAfter)
	logReport(report)
}

// requireAckDiff checks the gap between the contract's last acknowledged
// sequence and the next send sequence right after the send was included.
func requireAckDiff(report *packet.Report, diff uint64) {
	require := require.New(ginkgo.GinkgoT())
	require.NotNil(report.LastAckSequence, "the test contract does not record acks")
	require.Equal(report.SequenceAfter, *report.LastAckSequence+diff,
		"expected last ack %d + %d to equal next sequence %d", *report.LastAckSequence, diff, report.SequenceAfter)
}

func logReport(report *packet.Report) {
	tests.Successf("%s: %s via %v after %d commitment polls",
		report.Scenario,
		report.Outcome,
		report.Path,
		report.CommitmentPollAttempts,
	)
}
