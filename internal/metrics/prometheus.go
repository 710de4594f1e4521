package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ProvisioningOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioning_operations_total",
			Help: "Total number of provisioning operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	ProvisioningWarnings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provisioning_warnings_total",
			Help: "Best-effort provisioning steps that failed after the registry was updated",
		},
		[]string{"operation", "step"},
	)

	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_login_attempts_total",
			Help: "Administrator authentication attempts by outcome",
		},
		[]string{"outcome"},
	)

	RemediationProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "remediation_tasks_processed_total",
			Help: "Total number of remediation tasks handled by workers",
		},
		[]string{"kind", "outcome"},
	)

	WorkerActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_active_goroutines",
			Help: "Number of active worker goroutines per pool",
		},
		[]string{"pool"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_depth",
			Help: "Current RabbitMQ queue depth",
		},
		[]string{"queue"},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(ProvisioningOperations)
	prometheus.MustRegister(ProvisioningWarnings)
	prometheus.MustRegister(LoginAttempts)
	prometheus.MustRegister(RemediationProcessed)
	prometheus.MustRegister(WorkerActive)
	prometheus.MustRegister(QueueDepth)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
