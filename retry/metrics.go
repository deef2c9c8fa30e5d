package retry

import "github.com/prometheus/client_golang/prometheus"

// attemptsTotal counts every classified HTTP attempt the retry combinator
// makes, labelled by the resulting RetryMode, so an embedding process can
// expose it on its own /metrics endpoint (§1: the endpoint itself is out
// of this core's scope, but the registry is populated regardless).
var attemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "cfninit_retry_attempts_total",
	Help: "HTTP attempts made by the retry client, labelled by retry-mode classification.",
}, []string{"mode"})

func init() {
	prometheus.MustRegister(attemptsTotal)
}
