package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fa",
		Name:      "enrollments_total",
		Help:      "Enrollment attempts by outcome",
	}, []string{"outcome"})

	FaceLogins = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fa",
		Name:      "face_logins_total",
		Help:      "Face login attempts by outcome",
	}, []string{"outcome"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fa",
		Name:      "inference_duration_seconds",
		Help:      "Duration of ML inference stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fa",
		Name:      "identity_scan_duration_seconds",
		Help:      "Duration of a full identity store scan",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"purpose"})

	// MatchDistance is observed on the server side only. It is never part of a
	// response body.
	MatchDistance = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fa",
		Name:      "match_distance",
		Help:      "Minimum euclidean distance found per scan",
		Buckets:   prometheus.LinearBuckets(0.1, 0.1, 12),
	}, []string{"purpose"})

	ExtractorBusy = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fa",
		Name:      "extractor_busy",
		Help:      "Number of vision pipelines currently running inference",
	})

	EnrolledIdentities = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fa",
		Name:      "enrolled_identities",
		Help:      "Number of identities with a stored face embedding",
	})

	AuthEventsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fa",
		Name:      "auth_events_stored_total",
		Help:      "Auth events persisted by the auditor",
	}, []string{"kind"})

	AuthStreamMessages = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fa",
		Name:      "auth_stream_messages",
		Help:      "Messages retained in the AUTH stream",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fa",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fa",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
