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
// ワーカーやサービス層から利用する。
type MetricsCollector interface {
	RecordSyncSuccess()
	RecordSyncFailure(reason string)
	RecordSyncLatency(duration time.Duration)
	RecordCharactersUpserted(count int)
	RecordHTTPStatus(statusCode int)
	RecordCacheHit(cacheName string)
	RecordCacheMiss(cacheName string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	syncSuccess        prometheus.Counter
	syncFail           *prometheus.CounterVec
	syncLatency        prometheus.Histogram
	charactersUpserted prometheus.Counter
	httpStatus         *prometheus.CounterVec
	cacheHit           *prometheus.CounterVec
	cacheMiss          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		syncSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lorebook_sync_success_total",
			Help: "キャラクター同期成功の合計数",
		}),
		syncFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lorebook_sync_fail_total",
			Help: "キャラクター同期失敗の合計数（原因別）",
		}, []string{"reason"}),
		syncLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lorebook_sync_latency_seconds",
			Help:    "キャラクター同期1回のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		charactersUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lorebook_characters_upserted_total",
			Help: "アップサートされたキャラクターの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lorebook_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		cacheHit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lorebook_cache_hit_total",
			Help: "キャッシュヒットの合計数（キャッシュ別）",
		}, []string{"cache"}),
		cacheMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lorebook_cache_miss_total",
			Help: "キャッシュミスの合計数（キャッシュ別）",
		}, []string{"cache"}),
	}

	reg.MustRegister(
		c.syncSuccess,
		c.syncFail,
		c.syncLatency,
		c.charactersUpserted,
		c.httpStatus,
		c.cacheHit,
		c.cacheMiss,
	)

	return c
}

// RecordSyncSuccess は同期成功を記録する。
func (c *Collector) RecordSyncSuccess() {
	c.syncSuccess.Inc()
}

// RecordSyncFailure は同期失敗を原因別に記録する。
func (c *Collector) RecordSyncFailure(reason string) {
	c.syncFail.WithLabelValues(reason).Inc()
}

// RecordSyncLatency は同期1回のレイテンシを記録する。
func (c *Collector) RecordSyncLatency(duration time.Duration) {
	c.syncLatency.Observe(duration.Seconds())
}

// RecordCharactersUpserted はアップサートされたキャラクター数を記録する。
func (c *Collector) RecordCharactersUpserted(count int) {
	c.charactersUpserted.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit(cacheName string) {
	c.cacheHit.WithLabelValues(cacheName).Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss(cacheName string) {
	c.cacheMiss.WithLabelValues(cacheName).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
