// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const bridgeABI = `[{"inputs":[{"internalType":"string","name":"recipient","type":"string"}],"name":"send_cro_to_crypto_org","outputs":[],"stateMutability":"payable","type":"function"}]`

func TestParseArtifact(t *testing.T) {
	tests := []struct {
		name        string
		artifact    string
		expectedErr error
		expectedLen int
	}{
		{
			name:        "hardhat",
			artifact:    `{"contractName":"CroBridge","abi":` + bridgeABI + `,"bytecode":"0x6080604052"}`,
			expectedLen: 5,
		},
		{
			name:        "forge",
			artifact:    `{"abi":` + bridgeABI + `,"bytecode":{"object":"0x60806040"}}`,
			expectedLen: 4,
		},
		{
			name:        "unprefixed",
			artifact:    `{"abi":` + bridgeABI + `,"bytecode":"6080"}`,
			expectedLen: 2,
		},
		{
			name:        "empty bytecode",
			artifact:    `{"abi":` + bridgeABI + `,"bytecode":"0x"}`,
			expectedErr: errNoBytecode,
		},
		{
			name:        "not json",
			artifact:    `abi`,
			expectedErr: ErrInvalidResponse,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			artifact, err := ParseArtifact([]byte(test.artifact))
			require.ErrorIs(err, test.expectedErr)
			if test.expectedErr != nil {
				return
			}
			require.Len(artifact.Bytecode, test.expectedLen)
			require.Contains(artifact.ABI.Methods, "send_cro_to_crypto_org")
		})
	}
}
