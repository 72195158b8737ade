package lifecycle

import "github.com/prometheus/client_golang/prometheus"

// Collector exports pool statistics to Prometheus.
type Collector struct {
	m *Manager

	handles  *prometheus.Desc
	leases   *prometheus.Desc
	created  *prometheus.Desc
	disposed *prometheus.Desc
	swaps    *prometheus.Desc
}

// NewCollector creates a collector for m. Register it with a
// prometheus.Registerer.
func NewCollector(m *Manager) *Collector {
	return &Collector{
		m: m,
		handles: prometheus.NewDesc(
			"apikit_handles",
			"Live transport handles by state",
			[]string{"state"}, nil,
		),
		leases: prometheus.NewDesc(
			"apikit_handle_leases",
			"Outstanding leases per pool key and handle state",
			[]string{"key", "state"}, nil,
		),
		created: prometheus.NewDesc(
			"apikit_handles_created_total",
			"Transport handles created",
			nil, nil,
		),
		disposed: prometheus.NewDesc(
			"apikit_handles_disposed_total",
			"Transport handles closed",
			nil, nil,
		),
		swaps: prometheus.NewDesc(
			"apikit_handle_swaps_total",
			"Active handles replaced after their lifetime",
			nil, nil,
		),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.handles
	ch <- c.leases
	ch <- c.created
	ch <- c.disposed
	ch <- c.swaps
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	st := c.m.Stats()
	ch <- prometheus.MustNewConstMetric(c.handles, prometheus.GaugeValue, float64(st.Active), StateActive.String())
	ch <- prometheus.MustNewConstMetric(c.handles, prometheus.GaugeValue, float64(st.Expired), StateExpired.String())

	type series struct{ key, state string }
	leases := make(map[series]int64)
	for _, h := range st.Handles {
		leases[series{h.Key, h.State.String()}] += h.Leases
	}
	for s, n := range leases {
		ch <- prometheus.MustNewConstMetric(c.leases, prometheus.GaugeValue, float64(n), s.key, s.state)
	}

	ch <- prometheus.MustNewConstMetric(c.created, prometheus.CounterValue, float64(st.Created))
	ch <- prometheus.MustNewConstMetric(c.disposed, prometheus.CounterValue, float64(st.Disposed))
	ch <- prometheus.MustNewConstMetric(c.swaps, prometheus.CounterValue, float64(st.Swaps))
}

var _ prometheus.Collector = (*Collector)(nil)
