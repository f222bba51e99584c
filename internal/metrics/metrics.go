// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス記録のインターフェース。
// フロー層、ミドルウェア、ワーカーから利用する。
type Recorder interface {
	RecordLogin(status string)
	RecordAuthorize(success bool, strategy string)
	ObserveFlow(flow string, duration time.Duration)
	ObserveLockWait(duration time.Duration)
	RecordHTTPStatus(statusCode int)
	RecordAttemptsPruned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginOutcomes     *prometheus.CounterVec
	authorizeOutcomes *prometheus.CounterVec
	flowDuration      *prometheus.HistogramVec
	lockWait          prometheus.Histogram
	httpStatus        *prometheus.CounterVec
	attemptsPruned    prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauthrelay_login_outcomes_total",
			Help: "ログインフローの結果別件数",
		}, []string{"status"}),
		authorizeOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauthrelay_authorize_outcomes_total",
			Help: "OAuth認可フローの結果と抽出戦略別件数",
		}, []string{"outcome", "strategy"}),
		flowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oauthrelay_flow_duration_seconds",
			Help:    "ブラウザフローの所要時間（秒）",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"flow"}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "oauthrelay_browser_lock_wait_seconds",
			Help:    "ブラウザセッションの排他ロック待ち時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauthrelay_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		attemptsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oauthrelay_attempts_pruned_total",
			Help: "保持期間切れで削除された監査レコード数",
		}),
	}

	reg.MustRegister(
		c.loginOutcomes,
		c.authorizeOutcomes,
		c.flowDuration,
		c.lockWait,
		c.httpStatus,
		c.attemptsPruned,
	)

	return c
}

// RecordLogin はログインフローの結果を記録する。
func (c *Collector) RecordLogin(status string) {
	c.loginOutcomes.WithLabelValues(status).Inc()
}

// RecordAuthorize はOAuth認可フローの結果を記録する。失敗時のstrategyは"none"とする。
func (c *Collector) RecordAuthorize(success bool, strategy string) {
	outcome := "failed"
	if success {
		outcome = "success"
	}
	if strategy == "" {
		strategy = "none"
	}
	c.authorizeOutcomes.WithLabelValues(outcome, strategy).Inc()
}

// ObserveFlow はフローの所要時間を記録する。
func (c *Collector) ObserveFlow(flow string, duration time.Duration) {
	c.flowDuration.WithLabelValues(flow).Observe(duration.Seconds())
}

// ObserveLockWait はロック待ち時間を記録する。
func (c *Collector) ObserveLockWait(duration time.Duration) {
	c.lockWait.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordAttemptsPruned は削除した監査レコード数を記録する。
func (c *Collector) RecordAttemptsPruned(count int64) {
	c.attemptsPruned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないRecorder。メトリクス不要なテストやツールで使う。
type Nop struct{}

func (Nop) RecordLogin(string)                {}
func (Nop) RecordAuthorize(bool, string)      {}
func (Nop) ObserveFlow(string, time.Duration) {}
func (Nop) ObserveLockWait(time.Duration)     {}
func (Nop) RecordHTTPStatus(int)              {}
func (Nop) RecordAttemptsPruned(int64)        {}
