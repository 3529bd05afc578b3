// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package readiness implements bounded polling for state transitions that
// are driven by processes the harness does not control.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/ava-labs/ibcnet/utils/logging"
)

// PortPollInterval is the fixed retry interval used when waiting for a TCP
// listener.
const PortPollInterval = 100 * time.Millisecond

var (
	ErrTimeout           = errors.New("timed out")
	ErrAttemptsExhausted = fmt.Errorf("%w: attempts exhausted", ErrTimeout)
	errInvalidAttempts   = errors.New("attempts must be positive")
)

// Observer reads a value. [done] reports whether the awaited state has been
// reached. A non-nil error aborts the wait.
type Observer[T any] func(ctx context.Context) (value T, done bool, err error)

// WaitForPort blocks until a TCP connection to host:port succeeds or the
// timeout elapses.
func WaitForPort(ctx context.Context, log logging.Logger, host string, port uint16, timeout time.Duration) error {
	address := net.JoinHostPort(host, strconv.Itoa(int(port)))
	return WaitForCondition(
		ctx,
		log,
		"port "+address,
		timeout,
		PortPollInterval,
		func(ctx context.Context) (bool, error) {
			dialer := net.Dialer{Timeout: PortPollInterval}
			conn, err := dialer.DialContext(ctx, "tcp", address)
			if err != nil {
				// Refused, reset and unreachable all mean not yet.
				return false, nil
			}
			_ = conn.Close()
			return true, nil
		},
	)
}

// WaitForCondition invokes [condition] every [interval] until it returns true
// or [timeout] elapses. A condition that is already true is evaluated exactly
// once.
func WaitForCondition(
	ctx context.Context,
	log logging.Logger,
	description string,
	timeout time.Duration,
	interval time.Duration,
	condition func(ctx context.Context) (bool, error),
) error {
	_, err := WaitFor(ctx, log, description, timeout, interval, func(ctx context.Context) (struct{}, bool, error) {
		done, err := condition(ctx)
		return struct{}{}, done, err
	})
	return err
}

// WaitFor polls [observe] until it reports done and returns the value it
// observed at that point.
func WaitFor[T any](
	ctx context.Context,
	log logging.Logger,
	description string,
	timeout time.Duration,
	interval time.Duration,
	observe Observer[T],
) (T, error) {
	var (
		observed T
		attempts int
		start    = time.Now()
	)
	err := wait.PollUntilContextTimeout(ctx, interval, timeout, true, func(ctx context.Context) (bool, error) {
		attempts++
		value, done, err := observe(ctx)
		if err != nil {
			return false, err
		}
		observed = value
		return done, nil
	})
	switch {
	case err == nil:
		log.Debug("condition satisfied",
			zap.String("condition", description),
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", time.Since(start)),
		)
		return observed, nil
	case wait.Interrupted(err):
		var zero T
		return zero, fmt.Errorf("%w after %s waiting for %s (%d attempts)", ErrTimeout, timeout, description, attempts)
	default:
		var zero T
		return zero, fmt.Errorf("failed waiting for %s: %w", description, err)
	}
}

// Retry evaluates [observe] at most [attempts] times, sleeping [interval]
// between evaluations. It returns the last observed value and the number of
// evaluations performed. Exhaustion wraps ErrAttemptsExhausted and still
// returns the last observed value.
func Retry[T any](
	ctx context.Context,
	description string,
	attempts int,
	interval time.Duration,
	observe Observer[T],
) (T, int, error) {
	var (
		last       T
		performed  int
		observeErr error
	)
	if attempts <= 0 {
		return last, 0, errInvalidAttempts
	}

	backoff := wait.Backoff{
		Duration: interval,
		Factor:   1,
		Steps:    attempts,
	}
	err := wait.ExponentialBackoffWithContext(ctx, backoff, func(ctx context.Context) (bool, error) {
		performed++
		value, done, err := observe(ctx)
		if err != nil {
			observeErr = err
			return false, err
		}
		last = value
		return done, nil
	})
	switch {
	case err == nil:
		return last, performed, nil
	case observeErr != nil:
		return last, performed, fmt.Errorf("failed checking %s: %w", description, observeErr)
	case ctx.Err() != nil:
		return last, performed, fmt.Errorf("%w for %s: %w", ErrTimeout, description, ctx.Err())
	default:
		return last, performed, fmt.Errorf("%w for %s after %d attempts", ErrAttemptsExhausted, description, attempts)
	}
}
