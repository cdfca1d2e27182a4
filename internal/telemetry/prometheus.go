// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Collector exposes a Telemetry value as Prometheus metrics, following
// the Describe/Collect custom-collector pattern rather than registering
// individual Counter/Gauge instances, since the underlying values are
// plain atomics rather than prometheus types.
type Collector struct {
	t *Telemetry

	packetsForwardedDesc *prometheus.Desc
	bytesForwardedDesc   *prometheus.Desc
	packetsDroppedDesc   *prometheus.Desc
	probingDesc          *prometheus.Desc
	internalLimitDesc    *prometheus.Desc
	ispLimitDesc         *prometheus.Desc
}

// NewCollector builds a Collector over t.
func NewCollector(t *Telemetry) *Collector {
	return &Collector{
		t: t,
		packetsForwardedDesc: prometheus.NewDesc(
			"scalpel_packets_forwarded_total", "Total frames forwarded across both directions.", nil, nil),
		bytesForwardedDesc: prometheus.NewDesc(
			"scalpel_bytes_forwarded_total", "Total bytes forwarded across both directions.", nil, nil),
		packetsDroppedDesc: prometheus.NewDesc(
			"scalpel_packets_dropped_total", "Total frames dropped on the data path.", nil, nil),
		probingDesc: prometheus.NewDesc(
			"scalpel_probing", "1 while a bandwidth probe is in progress.", nil, nil),
		internalLimitDesc: prometheus.NewDesc(
			"scalpel_internal_limit_mbps", "Most recent internal CPU-capacity probe result.", nil, nil),
		ispLimitDesc: prometheus.NewDesc(
			"scalpel_isp_limit_mbps", "Most recent upstream bandwidth probe result.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.packetsForwardedDesc
	ch <- c.bytesForwardedDesc
	ch <- c.packetsDroppedDesc
	ch <- c.probingDesc
	ch <- c.internalLimitDesc
	ch <- c.ispLimitDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.packetsForwardedDesc, prometheus.CounterValue, float64(c.t.PacketsForwarded()))
	ch <- prometheus.MustNewConstMetric(c.bytesForwardedDesc, prometheus.CounterValue, float64(c.t.BytesForwarded()))
	ch <- prometheus.MustNewConstMetric(c.packetsDroppedDesc, prometheus.CounterValue, float64(c.t.PacketsDropped()))

	probing := 0.0
	if c.t.IsProbing() {
		probing = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.probingDesc, prometheus.GaugeValue, probing)
	ch <- prometheus.MustNewConstMetric(c.internalLimitDesc, prometheus.GaugeValue, c.t.InternalLimitMbps())
	ch <- prometheus.MustNewConstMetric(c.ispLimitDesc, prometheus.GaugeValue, c.t.ISPLimitMbps())
}

// RegisterMetrics registers a Collector over t with reg.
func RegisterMetrics(reg prometheus.Registerer, t *Telemetry) error {
	return reg.Register(NewCollector(t))
}
