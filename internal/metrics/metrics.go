// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chabakapro_admin"

// Collector はPrometheusメトリクスを収集する実装。
// backend.MetricsRecorderを満たす。
type Collector struct {
	fetchTotal     *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	writeTotal     *prometheus.CounterVec
	loginTotal     *prometheus.CounterVec
	openViews      prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_fetch_total",
			Help:      "リソース別のバックエンド一覧取得の結果数",
		}, []string{"resource", "result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_http_status_total",
			Help:      "バックエンドのHTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "バックエンドへのリクエストのレイテンシ（秒）",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		writeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_write_total",
			Help:      "更新・削除操作の結果数",
		}, []string{"action", "result"}),
		loginTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "ログイン試行の結果数",
		}, []string{"result"}),
		openViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_views",
			Help:      "現在開かれている管理画面ビューの数",
		}),
	}

	reg.MustRegister(
		c.fetchTotal,
		c.httpStatus,
		c.requestLatency,
		c.writeTotal,
		c.loginTotal,
		c.openViews,
	)

	return c
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// RecordFetchSuccess は一覧取得の成功を記録する。
func (c *Collector) RecordFetchSuccess(resource string) {
	c.fetchTotal.WithLabelValues(resource, "success").Inc()
}

// RecordFetchFailure は一覧取得の失敗を記録する。
func (c *Collector) RecordFetchFailure(resource string) {
	c.fetchTotal.WithLabelValues(resource, "failure").Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(method string, duration time.Duration) {
	c.requestLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordWrite は更新・削除操作の結果を記録する。
func (c *Collector) RecordWrite(action string, success bool) {
	c.writeTotal.WithLabelValues(action, resultLabel(success)).Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	c.loginTotal.WithLabelValues(resultLabel(success)).Inc()
}

// SetOpenViews は開かれているビューの数を設定する。
func (c *Collector) SetOpenViews(n int) {
	c.openViews.Set(float64(n))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
