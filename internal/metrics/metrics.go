package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ActiveTunnels tracks the number of currently live tunnels.
	ActiveTunnels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tunnel_keeper_active_tunnels",
			Help: "Number of live tunnels",
		},
	)

	// TunnelStarts counts start attempts by outcome.
	TunnelStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunnel_keeper_starts_total",
			Help: "Total tunnel start attempts",
		},
		[]string{"result"},
	)

	// GCReclaimed counts state reclaimed by the reaper, by drift category.
	GCReclaimed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunnel_keeper_gc_reclaimed_total",
			Help: "State reclaimed by garbage collection",
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(ActiveTunnels)
	prometheus.MustRegister(TunnelStarts)
	prometheus.MustRegister(GCReclaimed)
}
