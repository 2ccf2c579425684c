package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_sessions",
		Help: "Number of currently connected sessions",
	})

	ActiveRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_active_rooms",
		Help: "Number of rooms with at least one member",
	})

	FramesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_frames_total",
		Help: "Total inbound frames processed by type",
	}, []string{"type"})

	MalformedFrames = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_malformed_frames_total",
		Help: "Inbound lines discarded because they could not be decoded",
	})

	DeliveredLines = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_delivered_lines_total",
		Help: "Outbound lines queued for a member session",
	})

	DroppedLines = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_dropped_lines_total",
		Help: "Outbound lines dropped because the member was closed or too slow",
	})

	FrameProcessingDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_frame_processing_seconds",
		Help:    "Time to process each inbound frame type",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})

	BroadcastDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_broadcast_seconds",
		Help:    "Time to snapshot a room and queue a broadcast",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(ConnectedSessions)
	prometheus.MustRegister(ActiveRooms)
	prometheus.MustRegister(FramesTotal)
	prometheus.MustRegister(MalformedFrames)
	prometheus.MustRegister(DeliveredLines)
	prometheus.MustRegister(DroppedLines)
	prometheus.MustRegister(FrameProcessingDuration)
	prometheus.MustRegister(BroadcastDuration)
}
