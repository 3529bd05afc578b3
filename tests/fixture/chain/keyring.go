// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"crypto/ecdsa"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is a named signer known to the harness. Cosmos CLI keys only need
// a name and an address; EVM signers additionally carry a hex private key.
type Account struct {
	Name       string `json:"name" mapstructure:"name"`
	Address    string `json:"address" mapstructure:"address"`
	PrivateKey string `json:"privateKey,omitempty" mapstructure:"private_key"`
}

// ECDSAKey decodes the account's private key.
func (a Account) ECDSAKey() (*ecdsa.PrivateKey, error) {
	if a.PrivateKey == "" {
		return nil, fmt.Errorf("account %q has no private key", a.Name)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(a.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key for account %q: %w", a.Name, err)
	}
	return key, nil
}

// EthAddress returns the EVM address of the account. When a private key is
// present it is authoritative.
func (a Account) EthAddress() (common.Address, error) {
	if a.PrivateKey != "" {
		key, err := a.ECDSAKey()
		if err != nil {
			return common.Address{}, err
		}
		return crypto.PubkeyToAddress(key.PublicKey), nil
	}
	if common.IsHexAddress(a.Address) {
		return common.HexToAddress(a.Address), nil
	}
	return Bech32ToEth(a.Address)
}

// Keyring is an explicit table of accounts passed to clients at construction.
type Keyring struct {
	accounts map[string]Account
}

func NewKeyring(accounts ...Account) *Keyring {
	k := &Keyring{
		accounts: make(map[string]Account, len(accounts)),
	}
	for _, account := range accounts {
		k.accounts[account.Name] = account
	}
	return k
}

func (k *Keyring) Get(name string) (Account, error) {
	account, ok := k.accounts[name]
	if !ok {
		return Account{}, fmt.Errorf("%w: %q", ErrUnknownAccount, name)
	}
	return account, nil
}

// Address returns the configured address of the named account.
func (k *Keyring) Address(name string) (string, error) {
	account, err := k.Get(name)
	if err != nil {
		return "", err
	}
	return account.Address, nil
}

func (k *Keyring) Names() []string {
	names := make([]string, 0, len(k.accounts))
	for name := range k.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
