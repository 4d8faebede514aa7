package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	kamiGeneratedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "kami_generated_total",
			Help: "Number of kami codes generated.",
		},
	)

	kamiRedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kami_redemptions_total",
			Help: "Redemption attempts by outcome (success/not_found/already_used/expired/error).",
		},
		[]string{"outcome"},
	)
)

func init() {
	register(kamiGeneratedTotal, kamiRedemptionsTotal)
}

func AddKamiGenerated(n int)       { kamiGeneratedTotal.Add(float64(n)) }
func IncRedemption(outcome string) { kamiRedemptionsTotal.WithLabelValues(outcome).Inc() }
