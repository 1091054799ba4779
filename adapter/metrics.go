// Copyright 2020 thinkgos (thinkgo@aliyun.com).  All rights reserved.
// Use of this source code is governed by a version 3 of the GNU General
// Public License, license that can be found in the LICENSE file.

package adapter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the adapter's prometheus instrumentation: connection
// counts, line throughput, submission outcomes, and protocol error
// counters.
type Metrics struct {
	ClientsConnected    prometheus.Gauge
	LinesSent           prometheus.Counter
	SubmissionsAccepted prometheus.Counter
	SubmissionsDropped  prometheus.Counter
	WriteErrors         prometheus.Counter
	AcceptErrors        prometheus.Counter
	PingsReceived       prometheus.Counter
	PongsSent           prometheus.Counter
	EventsDropped       prometheus.Counter
}

// NewMetrics registers the adapter's metrics against reg. Pass a
// dedicated *prometheus.Registry (the default when reg is nil) to keep
// multiple Adapter instances — e.g. in tests — from colliding on
// prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		ClientsConnected: f.NewGauge(prometheus.GaugeOpts{
			Name: "shdr_adapter_clients_connected",
			Help: "Number of agents currently connected to the adapter.",
		}),
		LinesSent: f.NewCounter(prometheus.CounterOpts{
			Name: "shdr_adapter_lines_sent_total",
			Help: "Total SHDR lines written to clients.",
		}),
		SubmissionsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "shdr_adapter_submissions_accepted_total",
			Help: "Total observations accepted into the current table.",
		}),
		SubmissionsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "shdr_adapter_submissions_dropped_total",
			Help: "Total observations dropped: duplicate or malformed.",
		}),
		WriteErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "shdr_adapter_write_errors_total",
			Help: "Total socket write errors, each closing one client.",
		}),
		AcceptErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "shdr_adapter_accept_errors_total",
			Help: "Total TCP accept errors.",
		}),
		PingsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: "shdr_adapter_pings_received_total",
			Help: "Total '* PING' requests received from agents.",
		}),
		PongsSent: f.NewCounter(prometheus.CounterOpts{
			Name: "shdr_adapter_pongs_sent_total",
			Help: "Total '* PONG' replies sent to agents.",
		}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "shdr_adapter_events_dropped_total",
			Help: "Total events dropped because the event channel was full.",
		}),
	}
}
