// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package sweepmetrics exposes prometheus metrics about sweep passes,
// fed from the messages the sweep worker publishes on the daemon hub.
package sweepmetrics

import (
	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/pubsub/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hostd/dispsweep/pubsub/sweepevent"
)

var logger = loggo.GetLogger("dispsweep.sweepmetrics")

const metricsNamespace = "dispsweep"

// Label values for sweeps_total.
const (
	resultCompleted = "completed"
	resultFailed    = "failed"
)

// Label values for domains_total. The fine-grained skip reasons stay
// in the logs; the metric keeps a small fixed label set.
const (
	outcomeRemoved = "removed"
	outcomeFailed  = "removal-failed"
	outcomeSkipped = "skipped"
)

// Collector is a prometheus.Collector that collects metrics about
// sweep passes.
type Collector struct {
	sweepsTotal   *prometheus.CounterVec
	domainsTotal  *prometheus.CounterVec
	sweepDuration prometheus.Histogram
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		sweepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sweeps_total",
				Help:      "The number of sweep passes, by result.",
			}, []string{"result"},
		),
		domainsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "domains_total",
				Help:      "The number of domains processed by sweep passes, by outcome.",
			}, []string{"outcome"},
		),
		sweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "sweep_duration_seconds",
				Help:      "The time taken by one sweep pass.",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.sweepsTotal.Describe(ch)
	c.domainsTotal.Describe(ch)
	c.sweepDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.sweepsTotal.Collect(ch)
	c.domainsTotal.Collect(ch)
	c.sweepDuration.Collect(ch)
}

func (c *Collector) completed(msg sweepevent.CompletedMessage) {
	if msg.Error != "" {
		c.sweepsTotal.WithLabelValues(resultFailed).Inc()
		return
	}
	c.sweepsTotal.WithLabelValues(resultCompleted).Inc()
	c.domainsTotal.WithLabelValues(outcomeRemoved).Add(float64(msg.Removed))
	c.domainsTotal.WithLabelValues(outcomeFailed).Add(float64(msg.Failed))
	c.domainsTotal.WithLabelValues(outcomeSkipped).Add(float64(msg.Skipped))
	c.sweepDuration.Observe(msg.Duration.Seconds())
}

// Subscribe feeds the collector from the sweep messages published on
// hub. The returned function unsubscribes again.
func Subscribe(hub *pubsub.StructuredHub, collector *Collector) (func(), error) {
	unsub, err := hub.Subscribe(sweepevent.CompletedTopic,
		func(_ string, msg sweepevent.CompletedMessage, err error) {
			if err != nil {
				logger.Errorf("unmarshalling completed message: %v", err)
				return
			}
			collector.completed(msg)
		})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return unsub, nil
}
