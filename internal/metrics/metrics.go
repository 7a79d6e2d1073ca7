// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 同期処理の各層から利用する。
type MetricsCollector interface {
	RecordAccountSynced(tenant string)
	RecordAccountFailed(tenant string)
	RecordContentUpserted(count int)
	RecordSnapshotCreated(kind string, count int)
	RecordProviderEmpty(endpoint string)
	RecordFetchLatency(duration time.Duration)
	RecordRunCompleted(status string)
}

// スナップショット種別のラベル値。
const (
	SnapshotKindView     = "view"
	SnapshotKindFollower = "follower"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	accountsSynced   *prometheus.CounterVec
	accountsFailed   *prometheus.CounterVec
	contentUpserted  prometheus.Counter
	snapshotsCreated *prometheus.CounterVec
	providerEmpty    *prometheus.CounterVec
	fetchLatency     prometheus.Histogram
	runsCompleted    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		accountsSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_accounts_synced_total",
			Help: "同期に成功したアカウントの合計数",
		}, []string{"tenant"}),
		accountsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_accounts_failed_total",
			Help: "同期に失敗したアカウントの合計数",
		}, []string{"tenant"}),
		contentUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_content_upserted_total",
			Help: "アップサートされたコンテンツの合計数",
		}),
		snapshotsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_snapshots_created_total",
			Help: "作成された履歴スナップショットの合計数",
		}, []string{"kind"}),
		providerEmpty: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_provider_empty_total",
			Help: "プロバイダが空の結果を返した合計数",
		}, []string{"endpoint"}),
		fetchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scraper_fetch_latency_seconds",
			Help:    "プロバイダAPIフェッチのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_runs_completed_total",
			Help: "完了した同期ランのステータス別合計数",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.accountsSynced,
		c.accountsFailed,
		c.contentUpserted,
		c.snapshotsCreated,
		c.providerEmpty,
		c.fetchLatency,
		c.runsCompleted,
	)

	return c
}

// RecordAccountSynced はアカウント同期の成功を記録する。
func (c *Collector) RecordAccountSynced(tenant string) {
	c.accountsSynced.WithLabelValues(tenant).Inc()
}

// RecordAccountFailed はアカウント同期の失敗を記録する。
func (c *Collector) RecordAccountFailed(tenant string) {
	c.accountsFailed.WithLabelValues(tenant).Inc()
}

// RecordContentUpserted はアップサートされたコンテンツ数を記録する。
func (c *Collector) RecordContentUpserted(count int) {
	c.contentUpserted.Add(float64(count))
}

// RecordSnapshotCreated は作成されたスナップショット数を種別付きで記録する。
func (c *Collector) RecordSnapshotCreated(kind string, count int) {
	c.snapshotsCreated.WithLabelValues(kind).Add(float64(count))
}

// RecordProviderEmpty はプロバイダの空結果をエンドポイント別に記録する。
func (c *Collector) RecordProviderEmpty(endpoint string) {
	c.providerEmpty.WithLabelValues(endpoint).Inc()
}

// RecordFetchLatency はプロバイダAPIフェッチのレイテンシを記録する。
func (c *Collector) RecordFetchLatency(duration time.Duration) {
	c.fetchLatency.Observe(duration.Seconds())
}

// RecordRunCompleted は同期ランの完了をステータス付きで記録する。
func (c *Collector) RecordRunCompleted(status string) {
	c.runsCompleted.WithLabelValues(status).Inc()
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
