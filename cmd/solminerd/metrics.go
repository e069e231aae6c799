package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/solminer/solminer/pkg/coordinator"
	"github.com/solminer/solminer/pkg/history"
)

// metrics holds the gauges and counters exported on /metrics.
type metrics struct {
	registry *prometheus.Registry

	solarPower  *prometheus.GaugeVec
	maxSolar    *prometheus.GaugeVec
	hashrate    *prometheus.GaugeVec
	curveOn     *prometheus.GaugeVec
	refreshes   *prometheus.CounterVec
	lastRefresh *prometheus.GaugeVec
}

var metricLabels = []string{"miner_host"}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		solarPower: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solminer_solar_power_watts",
		}, metricLabels),
		maxSolar: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solminer_max_solar_power_watts",
		}, metricLabels),
		hashrate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solminer_hashrate_ghs",
		}, metricLabels),
		curveOn: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solminer_solar_curve_enabled",
		}, metricLabels),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solminer_refreshes_total",
		}, metricLabels),
		lastRefresh: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "solminer_last_refresh_timestamp_seconds",
		}, metricLabels),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.solarPower,
		m.maxSolar,
		m.hashrate,
		m.curveOn,
		m.refreshes,
		m.lastRefresh,
	)
	return m
}

// observe updates the gauges from a freshly published snapshot.
func (m *metrics) observe(host string, snap *coordinator.Snapshot) {
	m.solarPower.WithLabelValues(host).Set(snap.SolarPower)
	m.maxSolar.WithLabelValues(host).Set(snap.MaxSolarPower)
	if snap.SolarCurveEnabled {
		m.curveOn.WithLabelValues(host).Set(1)
	} else {
		m.curveOn.WithLabelValues(host).Set(0)
	}
	if hr := history.ExtractHashrate(snap.Summary); hr.Valid {
		m.hashrate.WithLabelValues(host).Set(hr.Float64)
	}
	m.refreshes.WithLabelValues(host).Inc()
	m.lastRefresh.WithLabelValues(host).Set(float64(snap.LastUpdate.Unix()))
}
