package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersAdmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_admitted_total",
		Help: "Total number of orders committed after verified payment",
	})

	OrdersRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Total number of order requests rejected before commit",
	}, []string{"reason"})

	IdentityChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_checks_total",
		Help: "Total number of agent identity verifications",
	}, []string{"result"})

	PaymentVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_total",
		Help: "Total number of payment settlement verifications",
	}, []string{"result"})

	PaymentVerifyLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_verify_latency_seconds",
		Help:    "Latency of payment settlement verification",
		Buckets: prometheus.DefBuckets,
	})

	ReplayRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "replay_rejections_total",
		Help: "Total number of requests rejected for reusing a payment reference",
	})

	FulfillmentSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_submissions_total",
		Help: "Total number of fulfillment provider submissions",
	}, []string{"result"})

	AttestationMintsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attestation_mints_total",
		Help: "Total number of receipt attestation mints",
	}, []string{"result"})

	PermastoreUploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "permastore_uploads_total",
		Help: "Total number of permanent-store document uploads",
	}, []string{"result"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "Total number of requests rejected by the rate limiter",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
