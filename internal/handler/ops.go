// Package handler は運用系HTTPエンドポイントのルーティングを提供する。
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/AINomadD3v/model-scraper/internal/metrics"
)

// NewOpsRouter はワーカーモードの運用エンドポイントを構成したchi.Routerを返す。
// 同期処理自体はHTTPを公開しないため、ここにはヘルスチェックと
// メトリクスのみを載せる。
func NewOpsRouter(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(gatherer))

	return r
}

// handleHealth はプロセスの生存確認に応答する。
// 外部依存（プロバイダ・ストア）の到達性は含めない。
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
