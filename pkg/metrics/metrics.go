package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	namespace = "kfp_deploy"

	StatusOK    = "ok"
	StatusError = "error"

	OutcomePipelineCreated = "pipeline_created"
	OutcomeVersionCreated  = "version_created"
	OutcomeDryRun          = "dry_run"
	OutcomeFailed          = "failed"

	LabelStatus    = "status"
	LabelOperation = "operation"
	LabelOutcome   = "outcome"
	LabelPipeline  = "pipeline"

	pushJob = "kfp-deploy"
)

// Registry holds the collectors of this process only, so that a push does not
// carry Go runtime metrics.
var Registry = prometheus.NewRegistry()

var (
	apiRequests = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "api_requests",
		Help:      "time to complete requests to the pipelines service",
		Namespace: namespace,
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	},
		[]string{
			LabelOperation,
			LabelStatus,
		},
	)

	deployments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "deployments",
		Help:      "number of deployments by outcome",
		Namespace: namespace,
	},
		[]string{
			LabelOutcome,
		},
	)

	lastDeployment = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "last_deployment_timestamp_seconds",
		Help:      "unix time of the last deployment attempt",
		Namespace: namespace,
	},
		[]string{
			LabelOutcome,
		},
	)
)

func statusLabel(err error) string {
	if err == nil {
		return StatusOK
	}
	return StatusError
}

func APIRequest(operation string, t time.Time, err error) {
	elapsed := time.Since(t)
	apiRequests.With(prometheus.Labels{
		LabelOperation: operation,
		LabelStatus:    statusLabel(err),
	}).Observe(elapsed.Seconds())
}

func Deployment(outcome string) {
	labels := prometheus.Labels{
		LabelOutcome: outcome,
	}
	deployments.With(labels).Inc()
	lastDeployment.With(labels).SetToCurrentTime()
}

// Push sends all collected metrics to a Prometheus Pushgateway, grouped by pipeline name.
func Push(ctx context.Context, url, pipeline string) error {
	return push.New(url, pushJob).
		Gatherer(Registry).
		Grouping(LabelPipeline, pipeline).
		PushContext(ctx)
}

func init() {
	Registry.MustRegister(apiRequests)
	Registry.MustRegister(deployments)
	Registry.MustRegister(lastDeployment)
}
