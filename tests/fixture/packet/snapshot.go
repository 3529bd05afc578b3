// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package packet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"go.uber.org/zap"

	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/utils/logging"
)

var errSnapshotMismatch = errors.New("snapshots describe different balances")

// BalanceSnapshot is a balance observed at a point in time.
type BalanceSnapshot struct {
	ChainID    string    `json:"chainID"`
	Address    string    `json:"address"`
	Denom      string    `json:"denom"`
	Amount     math.Int  `json:"amount"`
	ObservedAt time.Time `json:"observedAt"`
}

func TakeSnapshot(ctx context.Context, client chain.Client, address string, denom string) (BalanceSnapshot, error) {
	amount, err := client.Balance(ctx, address, denom)
	if err != nil {
		return BalanceSnapshot{}, err
	}
	return BalanceSnapshot{
		ChainID:    client.ChainID(),
		Address:    address,
		Denom:      denom,
		Amount:     amount,
		ObservedAt: time.Now(),
	}, nil
}

// Delta returns after - before. Both snapshots must describe the same
// (chain, address, denom).
func Delta(before BalanceSnapshot, after BalanceSnapshot) (math.Int, error) {
	if before.ChainID != after.ChainID || before.Address != after.Address || before.Denom != after.Denom {
		return math.Int{}, fmt.Errorf("%w: %s/%s/%s vs %s/%s/%s",
			errSnapshotMismatch,
			before.ChainID, before.Address, before.Denom,
			after.ChainID, after.Address, after.Denom,
		)
	}
	return after.Amount.Sub(before.Amount), nil
}

// WaitForBalanceChange polls until the balance differs from [before] and
// returns the first differing snapshot.
func WaitForBalanceChange(
	ctx context.Context,
	log logging.Logger,
	client chain.Client,
	before BalanceSnapshot,
	timeout time.Duration,
	interval time.Duration,
) (BalanceSnapshot, error) {
	return readiness.WaitFor(
		ctx,
		log,
		fmt.Sprintf("balance change of %s in %s on %s", before.Address, before.Denom, before.ChainID),
		timeout,
		interval,
		func(ctx context.Context) (BalanceSnapshot, bool, error) {
			after, err := TakeSnapshot(ctx, client, before.Address, before.Denom)
			if err != nil {
				return BalanceSnapshot{}, false, err
			}
			changed := !after.Amount.Equal(before.Amount)
			if changed {
				log.Debug("balance changed",
					zap.String("chainID", before.ChainID),
					zap.String("address", before.Address),
					zap.Stringer("before", before.Amount),
					zap.Stringer("after", after.Amount),
				)
			}
			return after, changed, nil
		},
	)
}
