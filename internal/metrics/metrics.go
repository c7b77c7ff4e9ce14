// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordLoginSuccess(isNewMember bool)
	RecordLoginFailure(code string)
	RecordReissue()
	RecordWithdraw()
	RecordProviderError(operation string)
	RecordProviderLatency(operation string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess    *prometheus.CounterVec
	loginFail       *prometheus.CounterVec
	reissue         prometheus.Counter
	withdraw        prometheus.Counter
	providerError   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodap_login_success_total",
			Help: "ログイン成功の合計数（新規/既存別）",
		}, []string{"member_type"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodap_login_fail_total",
			Help: "ログイン失敗の合計数（エラーコード別）",
		}, []string{"code"}),
		reissue: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodap_token_reissue_total",
			Help: "トークン再発行成功の合計数",
		}),
		withdraw: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nodap_withdraw_total",
			Help: "退会処理の合計数",
		}),
		providerError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nodap_provider_error_total",
			Help: "プロバイダーAPI呼び出し失敗の合計数（操作別）",
		}, []string{"operation"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodap_provider_latency_seconds",
			Help:    "プロバイダーAPI呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.reissue,
		c.withdraw,
		c.providerError,
		c.providerLatency,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess(isNewMember bool) {
	memberType := "existing"
	if isNewMember {
		memberType = "new"
	}
	c.loginSuccess.WithLabelValues(memberType).Inc()
}

// RecordLoginFailure はログイン失敗をエラーコード別に記録する。
func (c *Collector) RecordLoginFailure(code string) {
	c.loginFail.WithLabelValues(code).Inc()
}

// RecordReissue はトークン再発行成功を記録する。
func (c *Collector) RecordReissue() {
	c.reissue.Inc()
}

// RecordWithdraw は退会処理を記録する。
func (c *Collector) RecordWithdraw() {
	c.withdraw.Inc()
}

// RecordProviderError はプロバイダーAPI呼び出し失敗を記録する。
func (c *Collector) RecordProviderError(operation string) {
	c.providerError.WithLabelValues(operation).Inc()
}

// RecordProviderLatency はプロバイダーAPI呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(operation string, duration time.Duration) {
	c.providerLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
