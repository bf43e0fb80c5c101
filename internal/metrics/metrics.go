// Package metrics — счётчики Prometheus сервиса комментариев.
// Все методы безопасны для nil-получателя: сервис можно собрать без метрик.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "site_comments"

// Результаты приёма комментария.
const (
	SubmissionStored   = "stored"
	SubmissionHoneypot = "honeypot"
	SubmissionInvalid  = "invalid"
	SubmissionLost     = "lost"
)

// Metrics объединяет метрики домена и HTTP-слоя.
type Metrics struct {
	submissions *prometheus.CounterVec
	flagged     prometheus.Counter
	moderation  *prometheus.CounterVec
	notify      *prometheus.CounterVec
	storeRetry  prometheus.Counter
	httpLatency *prometheus.HistogramVec
}

// New создаёт метрики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Comment submissions by outcome.",
		}, []string{"result"}),
		flagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flagged_total",
			Help:      "Stored comments flagged by the spam heuristic.",
		}),
		moderation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_actions_total",
			Help:      "Moderation actions applied.",
		}, []string{"action"}),
		notify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Moderator notifications by outcome.",
		}, []string{"result"}),
		storeRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_conflicts_total",
			Help:      "Container revision conflicts that exhausted retries.",
		}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	reg.MustRegister(m.submissions, m.flagged, m.moderation, m.notify, m.storeRetry, m.httpLatency)
	return m
}

// Submission учитывает исход приёма комментария.
func (m *Metrics) Submission(result string, flagged bool) {
	if m == nil {
		return
	}

	m.submissions.WithLabelValues(result).Inc()
	if flagged && result == SubmissionStored {
		m.flagged.Inc()
	}
}

// Moderation учитывает действие модератора (approve/reject/delete/update).
func (m *Metrics) Moderation(action string) {
	if m == nil {
		return
	}

	m.moderation.WithLabelValues(action).Inc()
}

// Notification учитывает исход отправки уведомления.
func (m *Metrics) Notification(err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}

	m.notify.WithLabelValues(result).Inc()
}

// StoreConflict учитывает исчерпание повторов при конфликте ревизий.
func (m *Metrics) StoreConflict() {
	if m == nil {
		return
	}

	m.storeRetry.Inc()
}

// ObserveHTTP записывает длительность обработанного запроса.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}

	m.httpLatency.WithLabelValues(method, route, strconv.Itoa(code)).Observe(d.Seconds())
}
