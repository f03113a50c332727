// Package metrics holds the domain counters for uploads, access decisions and retention.
// A nil *Metrics is valid and records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	uploads      prometheus.Counter
	downloads    prometheus.Counter
	denied       *prometheus.CounterVec
	sweepRemoved *prometheus.CounterVec
	sweepFailed  *prometheus.CounterVec
}

// Retention job labels.
const (
	JobExpire    = "expire"
	JobReconcile = "reconcile"
)

// New creates the domain counters and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		uploads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharelink_uploads_total",
			Help: "Share records created.",
		}),
		downloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sharelink_downloads_total",
			Help: "Downloads granted through a short link.",
		}),
		denied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharelink_access_denied_total",
			Help: "Short link access attempts rejected, by reason.",
		}, []string{"reason"}),
		sweepRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharelink_sweep_removed_total",
			Help: "Records removed by the retention sweeper, by job.",
		}, []string{"job"}),
		sweepFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sharelink_sweep_failed_total",
			Help: "Records the retention sweeper failed to remove, by job.",
		}, []string{"job"}),
	}

	for _, c := range []prometheus.Collector{m.uploads, m.downloads, m.denied, m.sweepRemoved, m.sweepFailed} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Upload() {
	if m != nil {
		m.uploads.Inc()
	}
}

func (m *Metrics) Download() {
	if m != nil {
		m.downloads.Inc()
	}
}

// AccessDenied counts a rejected access attempt; reason is a short code such as "expired".
func (m *Metrics) AccessDenied(reason string) {
	if m != nil {
		m.denied.WithLabelValues(reason).Inc()
	}
}

// SweepRemoved adds n removals for job (JobExpire or JobReconcile).
func (m *Metrics) SweepRemoved(job string, n int) {
	if m != nil && n > 0 {
		m.sweepRemoved.WithLabelValues(job).Add(float64(n))
	}
}

func (m *Metrics) SweepFailed(job string, n int) {
	if m != nil && n > 0 {
		m.sweepFailed.WithLabelValues(job).Add(float64(n))
	}
}
