package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bot_ticks_total", Help: "Poll ticks by signal"},
		[]string{"signal"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bot_orders_total", Help: "Order attempts by side and result"},
		[]string{"side", "result"},
	)
	PositionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "bot_position_state", Help: "Current state machine state (one series set to 1)"},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, OrdersTotal, PositionState)
}

// SetState flips the state gauge so exactly one labeled series reads 1.
func SetState(active string, all ...string) {
	for _, s := range all {
		v := 0.0
		if s == active {
			v = 1.0
		}
		PositionState.WithLabelValues(s).Set(v)
	}
}
