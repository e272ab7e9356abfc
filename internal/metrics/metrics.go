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
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordSignup()
	RecordLogin(success bool)
	RecordPrediction(confidence string)
	RecordInferenceLatency(duration time.Duration)
	RecordInferenceFailure(reason string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signups          prometheus.Counter
	logins           *prometheus.CounterVec
	predictions      *prometheus.CounterVec
	inferenceLatency prometheus.Histogram
	inferenceFail    *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "maizemate_signups_total",
			Help: "アカウント登録の合計数",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maizemate_logins_total",
			Help: "ログイン試行の結果別の合計数",
		}, []string{"result"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maizemate_predictions_total",
			Help: "保存された収量推定の確度別の合計数",
		}, []string{"confidence"}),
		inferenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "maizemate_inference_latency_seconds",
			Help:    "収量推定のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		inferenceFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maizemate_inference_failures_total",
			Help: "収量推定失敗の理由別の合計数",
		}, []string{"reason"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "maizemate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.signups,
		c.logins,
		c.predictions,
		c.inferenceLatency,
		c.inferenceFail,
		c.httpStatus,
	)

	return c
}

// RecordSignup はアカウント登録を記録する。
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordPrediction は保存された収量推定を確度別に記録する。
func (c *Collector) RecordPrediction(confidence string) {
	c.predictions.WithLabelValues(confidence).Inc()
}

// RecordInferenceLatency は収量推定のレイテンシを記録する。
func (c *Collector) RecordInferenceLatency(duration time.Duration) {
	c.inferenceLatency.Observe(duration.Seconds())
}

// RecordInferenceFailure は収量推定の失敗を記録する。
// reasonはinvalid_input, unavailable, errorのいずれか。
func (c *Collector) RecordInferenceFailure(reason string) {
	c.inferenceFail.WithLabelValues(reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// NopCollector は何も記録しないMetricsCollector。
type NopCollector struct{}

func (NopCollector) RecordSignup()                        {}
func (NopCollector) RecordLogin(bool)                     {}
func (NopCollector) RecordPrediction(string)              {}
func (NopCollector) RecordInferenceLatency(time.Duration) {}
func (NopCollector) RecordInferenceFailure(string)        {}
func (NopCollector) RecordHTTPStatus(int)                 {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
