// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package chain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

var errNoBytecode = errors.New("artifact has no bytecode")

// Artifact is a compiled contract in the layout emitted by hardhat and
// forge: {"abi": [...], "bytecode": "0x..."}.
type Artifact struct {
	Name     string
	ABI      abi.ABI
	Bytecode []byte
}

type rawArtifact struct {
	ContractName string          `json:"contractName"`
	ABI          json.RawMessage `json:"abi"`
	// forge nests the bytecode under "object"
	Bytecode json.RawMessage `json:"bytecode"`
}

func LoadArtifact(path string) (*Artifact, error) {
	bytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
	}
	return ParseArtifact(bytes)
}

func ParseArtifact(bytes []byte) (*Artifact, error) {
	var raw rawArtifact
	if err := json.Unmarshal(bytes, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	parsedABI, err := abi.JSON(strings.NewReader(string(raw.ABI)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse abi: %w", err)
	}

	var code string
	if err := json.Unmarshal(raw.Bytecode, &code); err != nil {
		var nested struct {
			Object string `json:"object"`
		}
		if err := json.Unmarshal(raw.Bytecode, &nested); err != nil {
			return nil, fmt.Errorf("%w: bytecode: %w", ErrInvalidResponse, err)
		}
		code = nested.Object
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	bytecode, err := hexutil.Decode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if len(bytecode) == 0 {
		return nil, errNoBytecode
	}
	return &Artifact{
		Name:     raw.ContractName,
		ABI:      parsedABI,
		Bytecode: bytecode,
	}, nil
}

// Deploy creates an instance of [artifact] signed by the keyring account
// [from] and waits for the creation receipt.
func (c *EVMClient) Deploy(ctx context.Context, from string, artifact *Artifact, args ...interface{}) (common.Address, *Receipt, error) {
	packedArgs, err := artifact.ABI.Pack("", args...)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("failed to pack constructor of %s: %w", artifact.Name, err)
	}
	data := append(append([]byte{}, artifact.Bytecode...), packedArgs...)

	hash, err := c.signAndSend(ctx, from, nil, nil, data, 0, nil)
	if err != nil {
		return common.Address{}, nil, err
	}
	receipt, err := c.WaitForReceipt(ctx, hash, c.config.ReceiptTimeout)
	if err != nil {
		return common.Address{}, nil, err
	}
	if !receipt.Succeeded() {
		return common.Address{}, receipt, fmt.Errorf("deployment of %s failed in %s", artifact.Name, receipt.TxHash)
	}

	evmReceipt, err := c.eth.TransactionReceipt(ctx, hash)
	if err != nil {
		return common.Address{}, receipt, fmt.Errorf("failed to fetch receipt of %s: %w", hash, err)
	}
	c.log.Info("deployed contract",
		zap.String("contract", artifact.Name),
		zap.Stringer("address", evmReceipt.ContractAddress),
		zap.String("txHash", receipt.TxHash),
	)
	return evmReceipt.ContractAddress, receipt, nil
}
