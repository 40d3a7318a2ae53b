package slack

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "salesdesk_bot_build_info",
			Help: "Build information of the SalesDesk bot",
		},
		[]string{"version", "commit", "date"},
	)

	MessagesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_bot_messages_received_total",
			Help: "Total number of messages received, by source",
		},
		[]string{"source"},
	)

	MessagesIgnoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_bot_messages_ignored_total",
			Help: "Total number of messages ignored, by reason",
		},
		[]string{"reason"},
	)

	MessagesPostedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_bot_messages_posted_total",
			Help: "Total number of reply messages posted, by status and resolution path",
		},
		[]string{"status", "path"},
	)

	ChartsPostedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "salesdesk_bot_charts_posted_total",
			Help: "Total number of chart images uploaded",
		},
	)

	MessageProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesdesk_bot_message_processing_duration_seconds",
			Help:    "Duration of end-to-end message processing in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"path"},
	)

	SlackAPIErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesdesk_bot_slack_api_errors_total",
			Help: "Total number of Slack API errors, by operation",
		},
		[]string{"operation"},
	)
)
