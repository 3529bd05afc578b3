// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ibc

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/ava-labs/ibcnet/tests"
	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/e2e"
	"github.com/ava-labs/ibcnet/tests/fixture/ibcnet"
	"github.com/ava-labs/ibcnet/tests/fixture/packet"
	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/utils/perms"

	ginkgo "github.com/onsi/ginkgo/v2"
)

const (
	channelStateOpen = "STATE_OPEN"

	registerGas  = "400000"
	registerFees = "100000000basetcro"
)

var (
	icaFunding  = math.NewInt(100_000_000)
	icaWithdraw = math.NewInt(50_000_000)
)

type connectionChannels struct {
	Channels []struct {
		ChannelID string `json:"channel_id"`
		PortID    string `json:"port_id"`
		State     string `json:"state"`
	} `json:"channels"`
}

type interchainAccountAddress struct {
	Address string `json:"interchainAccountAddress"`
}

// controlInterchainAccount registers an account on the cosmos chain that is
// owned by [owner] on the evm chain and spends from it with a transaction
// submitted on the evm chain.
func controlInterchainAccount(evmChain *ibcnet.Chain, cosmosChain *ibcnet.Chain, owner string, cosmosSigner string) {
	require := require.New(ginkgo.GinkgoT())
	controller := evmChain.Cosmos
	host := cosmosChain.Cosmos

	ginkgo.By("registering an interchain account")
	receipt := e2e.Submit(controller, &chain.CLIMessage{
		From: EVMSigner,
		Args: []string{"icaauth", "register-account", ConnectionID},
		Gas:  registerGas,
		Fees: registerFees,
	})
	portID, ok := receipt.Attribute("channel_open_init", "port_id")
	require.True(ok, "no channel_open_init port_id in registration")
	channelID, ok := receipt.Attribute("channel_open_init", "channel_id")
	require.True(ok, "no channel_open_init channel_id in registration")
	tests.Outf(" interchain account channel %s/%s\n", portID, channelID)

	ginkgo.By("waiting for the interchain account channel to open")
	require.NoError(readiness.WaitForCondition(
		e2e.DefaultContext(),
		e2e.GetEnv().Log(),
		"interchain account channel "+channelID+" open",
		e2e.DefaultTimeout,
		e2e.DefaultPollingInterval,
		func(ctx context.Context) (bool, error) {
			raw, err := controller.Query(ctx, "ibc", "channel", "connections", ConnectionID)
			if err != nil {
				return false, err
			}
			var channels connectionChannels
			if err := json.Unmarshal(raw, &channels); err != nil {
				return false, err
			}
			for _, c := range channels.Channels {
				if c.ChannelID == channelID {
					return c.State == channelStateOpen, nil
				}
			}
			return false, nil
		},
	))

	ginkgo.By("querying the interchain account address")
	raw, err := controller.Query(e2e.DefaultContext(), "icaauth", "interchain-account-address", ConnectionID, owner)
	require.NoError(err)
	var ica interchainAccountAddress
	require.NoError(json.Unmarshal(raw, &ica))
	require.NotEmpty(ica.Address)
	tests.Outf(" interchain account %s\n", ica.Address)

	before := e2e.Snapshot(host, ica.Address, CosmosDenom)
	require.True(before.Amount.IsZero(), "a new interchain account must be empty")

	ginkgo.By("funding the interchain account on the host chain")
	e2e.Submit(host, &chain.NativeTransfer{
		From:   CosmosSigner,
		To:     ica.Address,
		Amount: icaFunding,
		Denom:  CosmosDenom,
	})
	require.NoError(host.WaitForBlocks(e2e.DefaultContext(), 1, e2e.DefaultTimeout))
	funded := e2e.Snapshot(host, ica.Address, CosmosDenom)
	require.True(funded.Amount.Equal(icaFunding), "expected %s, got %s", icaFunding, funded.Amount)

	ginkgo.By("generating a transfer from the interchain account")
	generated, err := host.Exec(e2e.DefaultContext(),
		"tx", "bank", "send", ica.Address, cosmosSigner, icaWithdraw.String()+CosmosDenom,
		"--generate-only",
		"--chain-id", CosmosChainID,
		"--output", "json",
	)
	require.NoError(err)
	lines := strings.Split(strings.TrimSpace(generated), "\n")
	msgPath := filepath.Join(ginkgo.GinkgoT().TempDir(), "generated_tx.json")
	require.NoError(perms.WriteFile(msgPath, []byte(lines[len(lines)-1])))

	ginkgo.By("submitting the transfer on behalf of the interchain account")
	receipt = e2e.Submit(controller, &chain.CLIMessage{
		From: EVMSigner,
		Args: []string{"icaauth", "submit-tx", ConnectionID, msgPath},
	})
	sequence, ok := receipt.Attribute("send_packet", "packet_sequence")
	require.True(ok, "no send_packet in submission")
	tests.Outf(" interchain account packet sequence %s\n", sequence)

	ginkgo.By("waiting for the host chain to execute the transfer")
	after, err := packet.WaitForBalanceChange(
		e2e.DefaultContext(),
		e2e.GetEnv().Log(),
		host,
		funded,
		e2e.DefaultTimeout,
		e2e.DefaultPollingInterval,
	)
	require.NoError(err)
	delta, err := packet.Delta(funded, after)
	require.NoError(err)
	require.True(delta.Equal(icaWithdraw.Neg()), "expected -%s, got %s", icaWithdraw, delta)

	ginkgo.By("checking the controller packet was acknowledged")
	seq, err := strconv.ParseUint(sequence, 10, 64)
	require.NoError(err)
	cleared, attempts, err := e2e.GetEnv().Verifier().WaitForCommitmentCleared(e2e.DefaultContext(), controller, portID, channelID, seq)
	require.NoError(err)
	require.True(cleared, "commitment %s/%s/%d still present after %d polls", portID, channelID, seq, attempts)
}
