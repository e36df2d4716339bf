package telemetry

import "github.com/prometheus/client_golang/prometheus"

const voicemeshNamespace string = "voicemesh"

var (
	promSessionTotal prometheus.Gauge
	promRoomTotal    prometheus.Gauge

	RelayCounter     *prometheus.CounterVec
	BroadcastCounter *prometheus.CounterVec
)

func init() {
	promSessionTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: voicemeshNamespace,
		Subsystem: "session",
		Name:      "total",
	})

	promRoomTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: voicemeshNamespace,
		Subsystem: "room",
		Name:      "total",
	})

	RelayCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: voicemeshNamespace,
			Subsystem: "relay",
			Name:      "messages",
		},
		[]string{"kind", "status"},
	)

	BroadcastCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: voicemeshNamespace,
			Subsystem: "broadcast",
			Name:      "events",
		},
		[]string{"event"},
	)

	prometheus.MustRegister(promSessionTotal)
	prometheus.MustRegister(promRoomTotal)
	prometheus.MustRegister(RelayCounter)
	prometheus.MustRegister(BroadcastCounter)
}

func SessionJoined() {
	promSessionTotal.Inc()
}

func SessionLeft() {
	promSessionTotal.Dec()
}

func RoomOpened() {
	promRoomTotal.Inc()
}

func RoomClosed() {
	promRoomTotal.Dec()
}

func RelayDelivered(kind string) {
	RelayCounter.WithLabelValues(kind, "delivered").Inc()
}

func RelayDropped(kind string) {
	RelayCounter.WithLabelValues(kind, "dropped").Inc()
}

func BroadcastSent(event string) {
	BroadcastCounter.WithLabelValues(event).Inc()
}
