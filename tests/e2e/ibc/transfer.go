// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibc

import (
	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/tests"
	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/e2e"
	"github.com/ava-labs/ibcnet/tests/fixture/ibcnet"
	"github.com/ava-labs/ibcnet/tests/fixture/packet"

	ginkgo "github.com/onsi/ginkgo/v2"
)

func transferThroughRelayer(relayer *ibcnet.Relayer, evmChain *ibcnet.Chain, receiver string) {
	require := require.New(ginkgo.GinkgoT())

	ginkgo.By("checking the relayer reports success")
	state, err := relayer.Status(e2e.DefaultContext())
	require.NoError(err)
	require.Equal("success", state.Status)

	amount := math.NewInt(10)
	before := e2e.Snapshot(evmChain.Client(), receiver, EVMDenom)

	ginkgo.By("sending a raw fungible token transfer with the relayer")
	_, err = relayer.Transfer(e2e.DefaultContext(), ibcnet.FTTransfer{
		DstChain:            EVMChainID,
		SrcChain:            CosmosChainID,
		PortID:              PortID,
		ChannelID:           ChannelID,
		Amount:              amount,
		Denom:               CosmosDenom,
		Receiver:            receiver,
		TimeoutHeightOffset: 1000,
		Count:               1,
	})
	require.NoError(err)

	ginkgo.By("waiting for the scaled amount to arrive")
	e2e.RequireBalanceIncrease(evmChain.Client(), before, packet.ScaleAmount(amount, scale))
}

func transferWithCLI(evmChain *ibcnet.Chain, cosmosChain *ibcnet.Chain, receiver string) {
	dstAmount := math.NewInt(2)
	srcAmount := packet.ScaleAmount(dstAmount, scale)
	before := e2e.Snapshot(cosmosChain.Client(), receiver, CosmosDenom)

	ginkgo.By("submitting an ibc-transfer message with the evm chain's cli")
	e2e.Submit(evmChain.Cosmos, &chain.CLIMessage{
		From: EVMSigner,
		Args: []string{
			"ibc-transfer", "transfer",
			PortID, ChannelID,
			receiver,
			srcAmount.String() + EVMDenom,
		},
	})

	ginkgo.By("waiting for the descaled amount to arrive")
	e2e.RequireBalanceIncrease(cosmosChain.Client(), before, dstAmount)
}

func transferWithBridgeContract(network *ibcnet.Network, evmChain *ibcnet.Chain, cosmosChain *ibcnet.Chain, receiver string) {
	artifact := e2e.GetEnv().Artifact(network, CroBridgeContract)
	dstAmount := math.NewInt(2)
	srcAmount := packet.ScaleAmount(dstAmount, scale)

	ginkgo.By("deploying the bridge contract")
	bridge := e2e.DeployContract(evmChain.EVM, EVMCommunity, artifact)

	before := e2e.Snapshot(cosmosChain.Client(), receiver, CosmosDenom)

	ginkgo.By("sending value through the bridge contract")
	receipt := e2e.Submit(evmChain.EVM, &chain.ContractCall{
		From:   EVMSigner,
		To:     bridge,
		ABI:    artifact.ABI,
		Method: "send_cro_to_crypto_org",
		Args:   []interface{}{receiver},
		Value:  srcAmount.BigInt(),
	})
	tests.Outf(" bridge call used %d gas\n", receipt.GasUsed)

	ginkgo.By("waiting for the descaled amount to arrive")
	e2e.RequireBalanceIncrease(cosmosChain.Client(), before, dstAmount)
}
