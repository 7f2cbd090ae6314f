package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	packetsRead = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconctl",
			Subsystem: "session",
			Name:      "packets_read_total",
			Help:      "Decoded RCON packets.",
		},
		[]string{"role", "type"},
	)
	packetsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconctl",
			Subsystem: "session",
			Name:      "packets_written_total",
			Help:      "Encoded RCON packets.",
		},
		[]string{"role", "type"},
	)
	bytesTransferred = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconctl",
			Subsystem: "session",
			Name:      "bytes_total",
			Help:      "Bytes read from and written to RCON peers.",
		},
		[]string{"role", "direction"},
	)
	decodeStalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconctl",
			Subsystem: "codec",
			Name:      "decode_stalls_total",
			Help:      "Decode attempts that needed more bytes.",
		},
		[]string{"role"},
	)
	rejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rconctl",
			Subsystem: "session",
			Name:      "rejections_total",
			Help:      "Connections dropped for protocol violations.",
		},
		[]string{"role", "reason"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(packetsRead, packetsWritten, bytesTransferred, decodeStalls, rejections)
	})
}

func RecordPacketRead(role, packetType string, size int) {
	RegisterMetrics()
	packetsRead.WithLabelValues(role, packetType).Inc()
	bytesTransferred.WithLabelValues(role, "in").Add(float64(size))
}

func RecordPacketWritten(role, packetType string, size int) {
	RegisterMetrics()
	packetsWritten.WithLabelValues(role, packetType).Inc()
	bytesTransferred.WithLabelValues(role, "out").Add(float64(size))
}

func RecordDecodeStall(role string) {
	RegisterMetrics()
	decodeStalls.WithLabelValues(role).Inc()
}

func RecordRejection(role, reason string) {
	RegisterMetrics()
	rejections.WithLabelValues(role, reason).Inc()
}
