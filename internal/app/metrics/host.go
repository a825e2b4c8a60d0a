package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// HostCollector exposes coarse host health readings, sampled on scrape.
type HostCollector struct {
	cpuPercent *prometheus.Desc
	memUsed    *prometheus.Desc
	memTotal   *prometheus.Desc
	load1      *prometheus.Desc
}

// NewHostCollector creates a collector for host CPU, memory, and load.
func NewHostCollector() *HostCollector {
	return &HostCollector{
		cpuPercent: prometheus.NewDesc(
			"bridge_layer_host_cpu_percent",
			"Host CPU utilization percentage.",
			nil, nil,
		),
		memUsed: prometheus.NewDesc(
			"bridge_layer_host_memory_used_bytes",
			"Host memory in use.",
			nil, nil,
		),
		memTotal: prometheus.NewDesc(
			"bridge_layer_host_memory_total_bytes",
			"Total host memory.",
			nil, nil,
		),
		load1: prometheus.NewDesc(
			"bridge_layer_host_load1",
			"Host one-minute load average.",
			nil, nil,
		),
	}
}

func (c *HostCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpuPercent
	ch <- c.memUsed
	ch <- c.memTotal
	ch <- c.load1
}

// Collect samples the host. Readings that fail are skipped rather than
// failing the scrape.
func (c *HostCollector) Collect(ch chan<- prometheus.Metric) {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		ch <- prometheus.MustNewConstMetric(c.cpuPercent, prometheus.GaugeValue, percents[0])
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.memUsed, prometheus.GaugeValue, float64(vm.Used))
		ch <- prometheus.MustNewConstMetric(c.memTotal, prometheus.GaugeValue, float64(vm.Total))
	}
	if avg, err := load.Avg(); err == nil {
		ch <- prometheus.MustNewConstMetric(c.load1, prometheus.GaugeValue, avg.Load1)
	}
}
