// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Implements transfer scenarios between a Cosmos chain and an EVM chain
// connected by a relayer.
package ibc

import (
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/tests"
	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/e2e"
	"github.com/ava-labs/ibcnet/tests/fixture/ibcnet"

	ginkgo "github.com/onsi/ginkgo/v2"
)

const (
	CosmosChainID = "chainmain-1"
	EVMChainID    = "cronos_777-1"

	PortID       = "transfer"
	ChannelID    = "channel-0"
	ConnectionID = "connection-0"

	CosmosDenom = "basecro"
	EVMDenom    = "basetcro"

	// Keyring accounts the spec must define. EVM accounts carry private keys.
	EVMSigner    = "signer2"
	EVMCommunity = "community"
	CosmosSigner = "chainmain-signer2"

	defaultEVMPrefix = "crc"

	TestIBCContract   = "TestIbc"
	CroBridgeContract = "CroBridge"
)

// EVM amounts carry 10 more decimals than their Cosmos counterparts.
var scale = math.NewIntWithDecimal(1, 10)

var _ = e2e.DescribeIBC("transfers", ginkgo.Ordered, func() {
	var (
		network      *ibcnet.Network
		cosmosChain  *ibcnet.Chain
		evmChain     *ibcnet.Chain
		evmSigner    common.Address
		evmReceiver  string
		cosmosSigner string
	)

	ginkgo.BeforeAll(func() {
		env := e2e.GetEnv()
		network = env.IBCNetwork()
		cosmosChain = env.Chain(network, CosmosChainID)
		evmChain = env.Chain(network, EVMChainID)
		if evmChain.EVM == nil {
			ginkgo.Skip(EVMChainID + " is not an evm chain")
		}

		evmSigner, evmReceiver = evmAccount(network, evmChain, EVMSigner)
		cosmosSigner = env.Address(network, CosmosSigner)
		tests.Stepf("evm signer %s (%s), cosmos signer %s", evmSigner, evmReceiver, cosmosSigner)
	})

	// Funds the evm signer for the scenarios that follow.
	ginkgo.It("transfers from the cosmos chain to the evm chain through the relayer", func() {
		relayer, err := network.Relayer()
		require.NoError(ginkgo.GinkgoT(), err)
		transferThroughRelayer(relayer, evmChain, evmReceiver)
	})

	ginkgo.It("sends, acknowledges, times out and reverts precompile transfers", func() {
		verifyPrecompileTransfers(network, cosmosChain, evmChain, evmSigner, cosmosSigner)
	})

	ginkgo.It("transfers from the evm chain to the cosmos chain with the cli", func() {
		transferWithCLI(evmChain, cosmosChain, cosmosSigner)
	})

	ginkgo.It("transfers from the evm chain to the cosmos chain with the bridge contract", func() {
		transferWithBridgeContract(network, evmChain, cosmosChain, cosmosSigner)
	})

	ginkgo.It("controls an interchain account on the cosmos chain", func() {
		controlInterchainAccount(evmChain, cosmosChain, evmReceiver, cosmosSigner)
	})
})

// evmAccount returns the EVM and bech32 addresses of a keyring account.
func evmAccount(network *ibcnet.Network, c *ibcnet.Chain, name string) (common.Address, string) {
	require := require.New(ginkgo.GinkgoT())

	account, err := network.Keyring().Get(name)
	if err != nil {
		ginkgo.Skip(err.Error())
	}
	address, err := account.EthAddress()
	require.NoError(err)

	prefix := c.Spec.AccountPrefix
	if prefix == "" {
		prefix = defaultEVMPrefix
	}
	bech32Address, err := chain.EthToBech32(address, prefix)
	require.NoError(err)
	return address, bech32Address
}
