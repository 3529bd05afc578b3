// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestIBCDenom(t *testing.T) {
	tests := []struct {
		port    string
		channel string
		base    string
	}{
		{port: "transfer", channel: "channel-0", base: "basecro"},
		{port: "transfer", channel: "channel-7", base: "basetcro"},
	}
	for _, test := range tests {
		t.Run(test.channel+"/"+test.base, func(t *testing.T) {
			hash := sha256.Sum256([]byte(test.port + "/" + test.channel + "/" + test.base))
			expected := "ibc/" + strings.ToUpper(hex.EncodeToString(hash[:]))
			require.Equal(t, expected, IBCDenom(test.port, test.channel, test.base))
		})
	}
}

func TestBech32RoundTrip(t *testing.T) {
	require := require.New(t)

	addr := common.HexToAddress("0x378c50D9264C63F3F92B806d4ee56E9D86FfB3Ec")
	encoded, err := EthToBech32(addr, "crc")
	require.NoError(err)
	require.True(strings.HasPrefix(encoded, "crc1"))

	decoded, err := Bech32ToEth(encoded)
	require.NoError(err)
	require.Equal(addr, decoded)
}

func TestBech32ToEthInvalid(t *testing.T) {
	_, err := Bech32ToEth("crc1notbech32")
	require.Error(t, err)
}

func TestKeyring(t *testing.T) {
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.NoError(err)
	expectedAddr := crypto.PubkeyToAddress(key.PublicKey)

	keyring := NewKeyring(
		Account{
			Name:       "signer2",
			Address:    expectedAddr.Hex(),
			PrivateKey: "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
		},
		Account{
			Name:    "relayer",
			Address: "cro1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqnrql8a",
		},
	)
	require.Equal([]string{"relayer", "signer2"}, keyring.Names())

	signer, err := keyring.Get("signer2")
	require.NoError(err)
	addr, err := signer.EthAddress()
	require.NoError(err)
	require.Equal(expectedAddr, addr)

	relayer, err := keyring.Get("relayer")
	require.NoError(err)
	_, err = relayer.ECDSAKey()
	require.Error(err)

	_, err = keyring.Get("community")
	require.ErrorIs(err, ErrUnknownAccount)
}
