// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sirseer_watch"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	cycleDuration  prom.Histogram
	cycles         *prom.CounterVec
	checks         *prom.CounterVec
	fetches        *prom.CounterVec
	failures       *prom.CounterVec
	notifications  *prom.CounterVec
	notifyFailures *prom.CounterVec
	cursorResets   *prom.CounterVec
	quotaRemaining prom.Gauge
	persists       *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		cycleDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of scheduler check cycles",
			Buckets:   prom.DefBuckets,
		}),
		cycles: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Scheduler cycles by outcome",
		}, []string{"outcome"}),
		checks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "repository_checks_total",
			Help:      "Repository checks by result",
		}, []string{"repository", "result"}),
		fetches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "fetches_total",
			Help:      "Feed fetches by feed and HTTP status (0 for transport failures)",
		}, []string{"feed", "status"}),
		failures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Recoverable failures by category",
		}, []string{"category"}),
		notifications: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications delivered by feed",
		}, []string{"feed"}),
		notifyFailures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "notification_failures_total",
			Help:      "Notifications that could not be rendered or delivered",
		}, []string{"feed"}),
		cursorResets: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cursor_resets_total",
			Help:      "Cursors reset to the feed head without notifying",
		}, []string{"feed"}),
		quotaRemaining: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "quota_remaining",
			Help:      "Most recently observed remaining GitHub request quota",
		}),
		persists: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Config store writes by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.cycleDuration, pr.cycles, pr.checks, pr.fetches, pr.failures,
		pr.notifications, pr.notifyFailures, pr.cursorResets, pr.quotaRemaining, pr.persists)
	return pr
}

func (p *PrometheusRecorder) ObserveCycleDuration(d time.Duration) {
	p.cycleDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCycle(outcome CycleOutcome) {
	p.cycles.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncCheck(repo string, result CheckResult) {
	p.checks.WithLabelValues(repo, string(result)).Inc()
}

func (p *PrometheusRecorder) IncFetch(feed string, status int) {
	p.fetches.WithLabelValues(feed, strconv.Itoa(status)).Inc()
}

func (p *PrometheusRecorder) IncFailure(category string) {
	p.failures.WithLabelValues(category).Inc()
}

func (p *PrometheusRecorder) AddNotifications(feed string, n int) {
	if n <= 0 {
		return
	}
	p.notifications.WithLabelValues(feed).Add(float64(n))
}

func (p *PrometheusRecorder) IncNotifyFailure(feed string) {
	p.notifyFailures.WithLabelValues(feed).Inc()
}

func (p *PrometheusRecorder) IncCursorReset(feed string) {
	p.cursorResets.WithLabelValues(feed).Inc()
}

func (p *PrometheusRecorder) SetQuotaRemaining(n int) {
	p.quotaRemaining.Set(float64(n))
}

func (p *PrometheusRecorder) IncPersist(success bool) {
	res := "failed"
	if success {
		res = "success"
	}
	p.persists.WithLabelValues(res).Inc()
}
