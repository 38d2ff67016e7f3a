package events

import "github.com/prometheus/client_golang/prometheus"

var (
	activeSubscriptions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "photo_api_event_subscriptions",
		Help: "A gauge of live event bus subscriptions.",
	})

	publishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "photo_api_events_published_total",
		Help: "A counter of events published per topic.",
	}, []string{"topic"})

	deliveredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "photo_api_events_delivered_total",
		Help: "A counter of events queued to a subscriber per topic.",
	}, []string{"topic"})

	droppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "photo_api_events_dropped_total",
		Help: "A counter of events dropped by full subscriber queues per topic.",
	}, []string{"topic"})
)

func init() {
	prometheus.MustRegister(
		activeSubscriptions,
		publishedTotal,
		deliveredTotal,
		droppedTotal,
	)
}
