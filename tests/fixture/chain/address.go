// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/cosmos/ibc-go/v8/modules/apps/transfer/types"
	"github.com/ethereum/go-ethereum/common"
)

var errAddressLength = errors.New("unexpected address length")

// EthToBech32 renders the 20 address bytes under the given human readable
// prefix, e.g. "crc" for cronos accounts.
func EthToBech32(addr common.Address, prefix string) (string, error) {
	converted, err := bech32.ConvertBits(addr.Bytes(), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("failed to convert address bits: %w", err)
	}
	return bech32.Encode(prefix, converted)
}

// Bech32ToEth is the inverse of EthToBech32. The prefix is not checked.
func Bech32ToEth(address string) (common.Address, error) {
	_, data, err := bech32.Decode(address)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to decode %q: %w", address, err)
	}
	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to convert address bits: %w", err)
	}
	if len(converted) != common.AddressLength {
		return common.Address{}, fmt.Errorf("%w: %d", errAddressLength, len(converted))
	}
	return common.BytesToAddress(converted), nil
}

// IBCDenom returns the voucher denom minted on the receiving chain for
// [baseDenom] arriving over (port, channel): "ibc/" followed by the upper-case
// hex SHA-256 of "<port>/<channel>/<baseDenom>".
func IBCDenom(portID string, channelID string, baseDenom string) string {
	return types.ParseDenomTrace(types.GetPrefixedDenom(portID, channelID, baseDenom)).IBCDenom()
}
