/*
Copyright the LC Project Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	kitprometheus "github.com/go-kit/kit/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics contains the metrics tracked for enrollment and ledger
// invocations. Every field is non-nil; a disabled bundle discards all
// observations.
type ClientMetrics struct {
	EnrollmentsReceived metrics.Counter
	EnrollmentsFailed   metrics.Counter

	QueriesReceived    metrics.Counter
	QueriesFailed      metrics.Counter
	QueryDuration      metrics.Histogram
	QueryTimeouts      metrics.Counter
	ExecutionsReceived metrics.Counter
	ExecutionsFailed   metrics.Counter
	ExecutionDuration  metrics.Histogram
	ExecutionTimeouts  metrics.Counter
}

var invokeLabels = []string{"contract", "fn"}

// NewClientMetrics builds a ClientMetrics instance registered with the given
// prometheus registerer.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	return &ClientMetrics{
		EnrollmentsReceived: counter(reg, prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "enrollments_received",
			Help:      "The number of enrollment requests received.",
		}, []string{"kind"}),
		EnrollmentsFailed: counter(reg, prometheus.CounterOpts{
			Namespace: "gateway",
			Name:      "enrollments_failed",
			Help:      "The number of enrollment requests that failed.",
		}, []string{"kind"}),
		QueriesReceived: counter(reg, prometheus.CounterOpts{
			Namespace: "channel",
			Name:      "queries_received",
			Help:      "The number of ledger queries received.",
		}, invokeLabels),
		QueriesFailed: counter(reg, prometheus.CounterOpts{
			Namespace: "channel",
			Name:      "queries_failed",
			Help:      "The number of ledger queries that failed (timeouts excluded).",
		}, invokeLabels),
		QueryDuration: histogram(reg, prometheus.HistogramOpts{
			Namespace: "channel",
			Name:      "query_duration",
			Help:      "The time to complete a ledger query.",
		}, invokeLabels),
		QueryTimeouts: counter(reg, prometheus.CounterOpts{
			Namespace: "channel",
			Name:      "query_timeouts",
			Help:      "The number of ledger queries that failed due to time out.",
		}, invokeLabels),
		ExecutionsReceived: counter(reg, prometheus.CounterOpts{
			Namespace: "channel",
			Name:      "executions_received",
			Help:      "The number of ledger executions received.",
		}, invokeLabels),
		ExecutionsFailed: counter(reg, prometheus.CounterOpts{
			Namespace: "channel",
			Name:      "executions_failed",
			Help:      "The number of ledger executions that failed (timeouts excluded).",
		}, invokeLabels),
		ExecutionDuration: histogram(reg, prometheus.HistogramOpts{
			Namespace: "channel",
			Name:      "execution_duration",
			Help:      "The time to complete a ledger execution.",
		}, invokeLabels),
		ExecutionTimeouts: counter(reg, prometheus.CounterOpts{
			Namespace: "channel",
			Name:      "execution_timeouts",
			Help:      "The number of ledger executions that failed due to time out.",
		}, invokeLabels),
	}
}

// Disabled returns a bundle whose observations are discarded.
func Disabled() *ClientMetrics {
	return &ClientMetrics{
		EnrollmentsReceived: discard.NewCounter(),
		EnrollmentsFailed:   discard.NewCounter(),
		QueriesReceived:     discard.NewCounter(),
		QueriesFailed:       discard.NewCounter(),
		QueryDuration:       discard.NewHistogram(),
		QueryTimeouts:       discard.NewCounter(),
		ExecutionsReceived:  discard.NewCounter(),
		ExecutionsFailed:    discard.NewCounter(),
		ExecutionDuration:   discard.NewHistogram(),
		ExecutionTimeouts:   discard.NewCounter(),
	}
}

func counter(reg prometheus.Registerer, opts prometheus.CounterOpts, labelNames []string) metrics.Counter {
	cv := prometheus.NewCounterVec(opts, labelNames)
	reg.MustRegister(cv)
	return kitprometheus.NewCounter(cv)
}

func histogram(reg prometheus.Registerer, opts prometheus.HistogramOpts, labelNames []string) metrics.Histogram {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	reg.MustRegister(hv)
	return kitprometheus.NewHistogram(hv)
}
