// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package packet verifies the lifecycle of cross-chain packets by observing
// commitments, sequences and balances on the chains involved.
package packet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ava-labs/ibcnet/tests/fixture/chain"
	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/utils/logging"
)

const (
	DefaultCommitmentPollAttempts = 10
	DefaultCommitmentPollInterval = time.Second
	DefaultMetricsNamespace       = "ibcnet"
)

var (
	ErrUnexpectedStatus  = errors.New("unexpected receipt status")
	ErrSequenceMismatch  = errors.New("unexpected sequence advance")
	ErrCommitmentPending = errors.New("packet commitment still pending")
	ErrAmbiguousOutcome  = errors.New("balance deltas match no known outcome")
	ErrUnexpectedOutcome = errors.New("unexpected packet outcome")
	ErrBalanceMismatch   = errors.New("unexpected balance change")
	ErrInvalidScenario   = errors.New("invalid scenario")
)

// Querier exposes the packet bookkeeping of the source chain.
type Querier interface {
	HasCommitment(ctx context.Context, portID string, channelID string, sequence uint64) (bool, error)
	NextSequenceSend(ctx context.Context, portID string, channelID string) (uint64, error)
}

// AckQuerier is implemented by sources that record the sequence of the last
// acknowledgement they were called back for.
type AckQuerier interface {
	LastAckSequence(ctx context.Context) (uint64, error)
}

type Config struct {
	CommitmentPollAttempts int
	CommitmentPollInterval time.Duration

	MetricsNamespace string
	// Registerer receives the verifier's metrics. A private registry is used
	// when nil.
	Registerer prometheus.Registerer
}

func DefaultConfig() Config {
	return Config{
		CommitmentPollAttempts: DefaultCommitmentPollAttempts,
		CommitmentPollInterval: DefaultCommitmentPollInterval,
		MetricsNamespace:       DefaultMetricsNamespace,
	}
}

// Scenario describes a single transfer and the outcome it must produce.
//
// [Sender] should not pay the transaction fee in [SourceDenom], otherwise the
// fee shows up in the source delta.
type Scenario struct {
	Name        string
	Source      chain.Client
	Destination chain.Client
	Querier     Querier

	PortID    string
	ChannelID string

	Sender           string
	Receiver         string
	SourceDenom      string
	DestinationDenom string
	Amount           math.Int
	// Ratio is the number of destination base units per source base unit.
	// Transfers towards a chain with fewer decimals set Divisor instead, the
	// number of source base units per destination base unit. Exactly one of
	// them must be positive.
	Ratio   math.Int
	Divisor math.Int
	Timeout uint64

	Tx       chain.TxSpec
	Expected State
}

func (s *Scenario) validate() error {
	switch {
	case s.Source == nil || s.Destination == nil || s.Querier == nil:
		return fmt.Errorf("%w %q: source, destination and querier are required", ErrInvalidScenario, s.Name)
	case s.Tx == nil:
		return fmt.Errorf("%w %q: no transaction", ErrInvalidScenario, s.Name)
	case s.Amount.IsNil() || !s.Amount.IsPositive():
		return fmt.Errorf("%w %q: amount must be positive", ErrInvalidScenario, s.Name)
	case positive(s.Ratio) == positive(s.Divisor):
		return fmt.Errorf("%w %q: exactly one of ratio and divisor must be positive", ErrInvalidScenario, s.Name)
	case positive(s.Divisor) && !s.Amount.Mod(s.Divisor).IsZero():
		return fmt.Errorf("%w %q: amount %s is not a multiple of divisor %s", ErrInvalidScenario, s.Name, s.Amount, s.Divisor)
	case !s.Expected.IsTerminal():
		return fmt.Errorf("%w %q: expected state %s is not terminal", ErrInvalidScenario, s.Name, s.Expected)
	default:
		return nil
	}
}

func positive(i math.Int) bool {
	return !i.IsNil() && i.IsPositive()
}

// Credited is the amount the receiver gains once the packet is acknowledged.
func (s *Scenario) Credited() math.Int {
	if positive(s.Divisor) {
		return s.Amount.Quo(s.Divisor)
	}
	return ScaleAmount(s.Amount, s.Ratio)
}

// Packet returns the packet the scenario sends once its sequence is known.
func (s *Scenario) Packet(sequence uint64) Packet {
	return Packet{
		SourceChain:      s.Source.ChainID(),
		DestinationChain: s.Destination.ChainID(),
		PortID:           s.PortID,
		ChannelID:        s.ChannelID,
		Sequence:         sequence,
		Amount:           s.Amount,
		SourceDenom:      s.SourceDenom,
		DestinationDenom: s.DestinationDenom,
		Timeout:          s.Timeout,
	}
}

// Report records everything observed while verifying a scenario.
type Report struct {
	Scenario string         `json:"scenario"`
	Outcome  State          `json:"outcome"`
	Path     []State        `json:"path"`
	Packet   *Packet        `json:"packet,omitempty"`
	Receipt  *chain.Receipt `json:"receipt"`

	SequenceBefore uint64 `json:"sequenceBefore"`
	SequenceAfter  uint64 `json:"sequenceAfter"`
	// LastAckSequence is read together with SequenceAfter when the querier
	// implements AckQuerier.
	LastAckSequence *uint64 `json:"lastAckSequence,omitempty"`

	CommitmentCleared      bool `json:"commitmentCleared"`
	CommitmentPollAttempts int  `json:"commitmentPollAttempts"`

	SourceBefore      BalanceSnapshot `json:"sourceBefore"`
	SourceAfter       BalanceSnapshot `json:"sourceAfter"`
	DestinationBefore BalanceSnapshot `json:"destinationBefore"`
	DestinationAfter  BalanceSnapshot `json:"destinationAfter"`
	SourceDelta       math.Int        `json:"sourceDelta"`
	DestinationDelta  math.Int        `json:"destinationDelta"`
}

type Verifier struct {
	log     logging.Logger
	config  Config
	metrics *metrics
}

func NewVerifier(log logging.Logger, config Config) (*Verifier, error) {
	if config.CommitmentPollAttempts <= 0 {
		config.CommitmentPollAttempts = DefaultCommitmentPollAttempts
	}
	if config.CommitmentPollInterval <= 0 {
		config.CommitmentPollInterval = DefaultCommitmentPollInterval
	}
	if config.MetricsNamespace == "" {
		config.MetricsNamespace = DefaultMetricsNamespace
	}
	registerer := config.Registerer
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	m, err := newMetrics(config.MetricsNamespace, registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return &Verifier{
		log:     log,
		config:  config,
		metrics: m,
	}, nil
}

// ObserveCommit reports whether a commitment exists for the packet.
func (v *Verifier) ObserveCommit(ctx context.Context, q Querier, portID string, channelID string, sequence uint64) (bool, error) {
	exists, err := q.HasCommitment(ctx, portID, channelID, sequence)
	if err != nil {
		return false, err
	}
	v.log.Debug("observed packet commitment",
		zap.String("portID", portID),
		zap.String("channelID", channelID),
		zap.Uint64("sequence", sequence),
		zap.Bool("exists", exists),
	)
	return exists, nil
}

// ObserveNextSequence returns the sequence the next send on (port, channel)
// will be assigned.
func (v *Verifier) ObserveNextSequence(ctx context.Context, q Querier, portID string, channelID string) (uint64, error) {
	seq, err := q.NextSequenceSend(ctx, portID, channelID)
	if err != nil {
		return 0, err
	}
	v.log.Debug("observed next sequence",
		zap.String("portID", portID),
		zap.String("channelID", channelID),
		zap.Uint64("sequence", seq),
	)
	return seq, nil
}

// WaitForCommitmentCleared polls the commitment of [sequence] at most the
// configured number of times. It returns whether the commitment cleared and
// the number of queries made. Exhaustion is not an error.
func (v *Verifier) WaitForCommitmentCleared(ctx context.Context, q Querier, portID string, channelID string, sequence uint64) (bool, int, error) {
	cleared, attempts, err := readiness.Retry(
		ctx,
		fmt.Sprintf("commitment %s/%s/%d to clear", portID, channelID, sequence),
		v.config.CommitmentPollAttempts,
		v.config.CommitmentPollInterval,
		func(ctx context.Context) (bool, bool, error) {
			exists, err := v.ObserveCommit(ctx, q, portID, channelID, sequence)
			if err != nil {
				return false, false, err
			}
			return !exists, !exists, nil
		},
	)
	v.metrics.commitPollAttempts.Observe(float64(attempts))
	if errors.Is(err, readiness.ErrAttemptsExhausted) {
		return false, attempts, nil
	}
	return cleared, attempts, err
}

// VerifyOutcome drives a scenario end to end and classifies the result from
// balance deltas, using commitment evidence to tell a settled transfer from
// one still in flight.
func (v *Verifier) VerifyOutcome(ctx context.Context, s Scenario) (*Report, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}
	log := v.log.With(zap.String("scenario", s.Name))
	report := &Report{Scenario: s.Name}

	// 1. Baseline
	var err error
	report.SourceBefore, err = TakeSnapshot(ctx, s.Source, s.Sender, s.SourceDenom)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot source balance: %w", err)
	}
	report.DestinationBefore, err = TakeSnapshot(ctx, s.Destination, s.Receiver, s.DestinationDenom)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot destination balance: %w", err)
	}
	report.SequenceBefore, err = v.ObserveNextSequence(ctx, s.Querier, s.PortID, s.ChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to query next sequence: %w", err)
	}

	// 2. Submit
	receipt, err := s.Source.Submit(ctx, s.Tx)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s: %w", s.Name, err)
	}
	report.Receipt = receipt
	log.Info("transaction included",
		zap.String("txHash", receipt.TxHash),
		zap.Int64("height", receipt.Height),
		zap.Stringer("status", receipt.Status),
	)

	expectRevert := s.Expected == Reverted
	if receipt.Succeeded() == expectRevert {
		return report, fmt.Errorf("%w: %s for %s (expected %s): %s",
			ErrUnexpectedStatus, receipt.Status, s.Name, s.Expected, receipt.RawLog)
	}

	// 3. Sequence and commitment
	report.SequenceAfter, err = v.ObserveNextSequence(ctx, s.Querier, s.PortID, s.ChannelID)
	if err != nil {
		return report, fmt.Errorf("failed to query next sequence: %w", err)
	}
	if q, ok := s.Querier.(AckQuerier); ok {
		last, err := q.LastAckSequence(ctx)
		if err != nil {
			return report, fmt.Errorf("failed to query last ack sequence: %w", err)
		}
		report.LastAckSequence = &last
	}
	advanced := report.SequenceAfter - report.SequenceBefore
	if report.SequenceAfter < report.SequenceBefore {
		return report, fmt.Errorf("%w: sequence went backwards from %d to %d",
			ErrSequenceMismatch, report.SequenceBefore, report.SequenceAfter)
	}
	if expectRevert {
		if advanced != 0 {
			return report, fmt.Errorf("%w: reverted send consumed %d sequences", ErrSequenceMismatch, advanced)
		}
		report.Path = []State{Reverted}
	} else {
		if advanced != 1 {
			return report, fmt.Errorf("%w: expected exactly 1, got %d", ErrSequenceMismatch, advanced)
		}
		p := s.Packet(report.SequenceBefore)
		report.Packet = &p
		report.Path = []State{Sent, Committed}

		report.CommitmentCleared, report.CommitmentPollAttempts, err = v.WaitForCommitmentCleared(
			ctx,
			s.Querier,
			s.PortID,
			s.ChannelID,
			p.Sequence,
		)
		if err != nil {
			return report, err
		}
	}

	// 4. Settlement
	report.SourceAfter, err = TakeSnapshot(ctx, s.Source, s.Sender, s.SourceDenom)
	if err != nil {
		return report, fmt.Errorf("failed to snapshot source balance: %w", err)
	}
	report.DestinationAfter, err = TakeSnapshot(ctx, s.Destination, s.Receiver, s.DestinationDenom)
	if err != nil {
		return report, fmt.Errorf("failed to snapshot destination balance: %w", err)
	}
	report.SourceDelta, err = Delta(report.SourceBefore, report.SourceAfter)
	if err != nil {
		return report, err
	}
	report.DestinationDelta, err = Delta(report.DestinationBefore, report.DestinationAfter)
	if err != nil {
		return report, err
	}

	// 5. Classification
	outcome, err := classify(report, s)
	if err != nil {
		v.metrics.observeOutcome("ambiguous")
		return report, err
	}
	report.Outcome = outcome
	if outcome != Reverted {
		report.Path = append(report.Path, outcome)
	}
	v.metrics.observeOutcome(outcome.String())

	log.Info("classified packet outcome",
		zap.Stringer("outcome", outcome),
		zap.Stringer("sourceDelta", report.SourceDelta),
		zap.Stringer("destinationDelta", report.DestinationDelta),
		zap.Bool("commitmentCleared", report.CommitmentCleared),
		zap.Int("commitmentPollAttempts", report.CommitmentPollAttempts),
	)
	if outcome != s.Expected {
		return report, fmt.Errorf("%w: %s is %s, expected %s", ErrUnexpectedOutcome, s.Name, outcome, s.Expected)
	}
	return report, nil
}

// classify maps the observed deltas to an outcome. Balances are
// authoritative; the commitment only separates a settled acknowledgement
// from a packet that was received but not yet acknowledged.
func classify(report *Report, s Scenario) (State, error) {
	var (
		srcDelta = report.SourceDelta
		dstDelta = report.DestinationDelta
		credited = s.Credited()
		noChange = srcDelta.IsZero() && dstDelta.IsZero()
	)

	if report.Receipt != nil && !report.Receipt.Succeeded() {
		if !noChange {
			return Reverted, fmt.Errorf("%w: reverted send moved funds (source %s, destination %s)",
				ErrBalanceMismatch, srcDelta, dstDelta)
		}
		return Reverted, nil
	}

	switch {
	case srcDelta.Equal(s.Amount.Neg()) && dstDelta.Equal(credited):
		if !report.CommitmentCleared {
			return Sent, fmt.Errorf("%w: funds moved but sequence %d still committed after %d attempts",
				ErrCommitmentPending, report.SequenceBefore, report.CommitmentPollAttempts)
		}
		return Acknowledged, nil
	case noChange:
		return TimedOut, nil
	default:
		return Sent, fmt.Errorf("%w: source %s (expected 0 or -%s), destination %s (expected 0 or %s)",
			ErrAmbiguousOutcome, srcDelta, s.Amount, dstDelta, credited)
	}
}

// ScaleAmount converts a source amount into destination base units.
func ScaleAmount(amount math.Int, ratio math.Int) math.Int {
	return amount.Mul(ratio)
}
