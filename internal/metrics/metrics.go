// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラー層から利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, path string, statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordUserRegistered()
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordCafeCreated()
	RecordCafeDeleted()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests   *prometheus.CounterVec
	requestLatency prometheus.Histogram
	usersTotal     prometheus.Counter
	loginSuccess   prometheus.Counter
	loginFail      prometheus.Counter
	cafesCreated   prometheus.Counter
	cafesDeleted   prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cafelist_http_requests_total",
			Help: "HTTPリクエストの合計数（メソッド・パス・ステータスコード別）",
		}, []string{"method", "path", "status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cafelist_request_latency_seconds",
			Help:    "HTTPリクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		usersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafelist_users_registered_total",
			Help: "登録されたユーザーの合計数",
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafelist_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafelist_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		cafesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafelist_cafes_created_total",
			Help: "登録されたカフェの合計数",
		}),
		cafesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cafelist_cafes_deleted_total",
			Help: "削除されたカフェの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.requestLatency,
		c.usersTotal,
		c.loginSuccess,
		c.loginFail,
		c.cafesCreated,
		c.cafesDeleted,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果を記録する。
// pathにはルートパターン（/api/cafes/{id}等）を渡すこと。
// 生のURLパスを渡すとラベルのカーディナリティが無限に増える。
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理のレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordUserRegistered はユーザー登録を記録する。
func (c *Collector) RecordUserRegistered() {
	c.usersTotal.Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordCafeCreated はカフェ登録を記録する。
func (c *Collector) RecordCafeCreated() {
	c.cafesCreated.Inc()
}

// RecordCafeDeleted はカフェ削除を記録する。
func (c *Collector) RecordCafeDeleted() {
	c.cafesDeleted.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
