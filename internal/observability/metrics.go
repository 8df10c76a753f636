package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "app_otp_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"path", "method", "status"},
	)

	// ChallengesStarted tracks verification start requests
	ChallengesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_otp_challenges_started_total",
			Help: "Number of verification start requests",
		},
		[]string{"status"},
	)

	// Verifications tracks verification attempts by result
	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_otp_verifications_total",
			Help: "Number of verification attempts",
		},
		[]string{"result"},
	)

	// SMSMessagesSent tracks SMS dispatch attempts
	SMSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_otp_sms_messages_sent_total",
			Help: "Number of SMS dispatch attempts",
		},
		[]string{"provider", "status"},
	)

	// IdentitiesCreated tracks lazily created identities
	IdentitiesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "app_otp_identities_created_total",
			Help: "Number of identities created on first verification",
		},
	)

	// CacheHits tracks cache hits
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "app_otp_cache_hits_total",
			Help: "Number of cache hits",
		},
		[]string{"operation"},
	)

	// ActiveConnections tracks active connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_otp_active_connections",
			Help: "Number of active connections",
		},
	)
)
