// Package metrics records job outcomes in a private prometheus registry that
// is flushed to a node-exporter textfile when the process exits. Each process
// replaces the file, so every family is a gauge describing the last run.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the job's metric families.
type Recorder struct {
	registry    *prometheus.Registry
	lastStatus  *prometheus.GaugeVec
	duration    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
	balance     *prometheus.GaugeVec
	now         func() time.Time
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		lastStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bankbal_action_last_status",
				Help: "Exit status of the last invocation of an action.",
			},
			[]string{"action"},
		),
		duration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bankbal_action_duration_seconds",
				Help: "Wall-clock duration of the last invocation of an action.",
			},
			[]string{"action"},
		),
		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bankbal_last_success_timestamp_seconds",
				Help: "Unix time of the last successful invocation of an action.",
			},
			[]string{"action"},
		),
		balance: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bankbal_balance_amount",
				Help: "Last balance written to the spreadsheet.",
			},
			[]string{"account", "currency", "balance_type"},
		),
		now: time.Now,
	}
	r.registry.MustRegister(r.lastStatus, r.duration, r.lastSuccess, r.balance)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveAction records one finished invocation.
func (r *Recorder) ObserveAction(action string, status int, d time.Duration) {
	r.lastStatus.WithLabelValues(action).Set(float64(status))
	r.duration.WithLabelValues(action).Set(d.Seconds())
	if status == 0 {
		r.lastSuccess.WithLabelValues(action).Set(float64(r.now().Unix()))
	}
}

// ObserveBalance records the balance that was written.
func (r *Recorder) ObserveBalance(account, currency, balanceType string, amount float64) {
	r.balance.WithLabelValues(account, currency, balanceType).Set(amount)
}

// WriteTextfile writes the registry in text exposition format to path.
// The file is replaced atomically, which the textfile collector requires.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
