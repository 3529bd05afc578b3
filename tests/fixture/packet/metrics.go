// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package packet

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeLabel = "outcome"

type metrics struct {
	outcomes           *prometheus.CounterVec
	commitPollAttempts prometheus.Histogram
}

func newMetrics(namespace string, registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "packet_outcomes",
				Help:      "Number of verified packet outcomes by classification",
			},
			[]string{outcomeLabel},
		),
		commitPollAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "commitment_poll_attempts",
			Help:      "Number of commitment queries made before the commitment cleared or polling gave up",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
	}
	err := errors.Join(
		registerer.Register(m.outcomes),
		registerer.Register(m.commitPollAttempts),
	)
	return m, err
}

func (m *metrics) observeOutcome(outcome string) {
	m.outcomes.WithLabelValues(outcome).Inc()
}
