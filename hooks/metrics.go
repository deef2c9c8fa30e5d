package hooks

import "github.com/prometheus/client_golang/prometheus"

var (
	pollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cfninit_hup_polls_total",
		Help: "Poll passes completed by the hook processor.",
	})
	hooksFiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cfninit_hup_hooks_fired_total",
		Help: "Hook actions invoked because their configured trigger matched.",
	})
	hooksErroredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cfninit_hup_hooks_errored_total",
		Help: "Hooks whose per-hook processing raised a non-UpdateError failure.",
	})
)

func init() {
	prometheus.MustRegister(pollsTotal, hooksFiredTotal, hooksErroredTotal)
}
