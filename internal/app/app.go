// Package app はアプリケーションの起動とワイヤリングを提供する。
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	accountpkg "github.com/AINomadD3v/model-scraper/internal/account"
	"github.com/AINomadD3v/model-scraper/internal/config"
	contentpkg "github.com/AINomadD3v/model-scraper/internal/content"
	"github.com/AINomadD3v/model-scraper/internal/handler"
	"github.com/AINomadD3v/model-scraper/internal/history"
	"github.com/AINomadD3v/model-scraper/internal/logger"
	"github.com/AINomadD3v/model-scraper/internal/metrics"
	"github.com/AINomadD3v/model-scraper/internal/provider"
	"github.com/AINomadD3v/model-scraper/internal/security"
	"github.com/AINomadD3v/model-scraper/internal/store"
	syncpkg "github.com/AINomadD3v/model-scraper/internal/worker/sync"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから設定を読み込む。
// 設定の欠落はここで致命的エラーになり、同期ランは開始されない。
func Init(w io.Writer) (*config.Config, error) {
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。戻り値のエラーは致命的エラー（終了コード1）
// のみであり、テナント・アカウント単位の部分的な失敗はエラーにならない。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SCRAPER_WORKER_OPS_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.Int("tenant_count", len(cfg.Store.Tenants)),
	)

	switch cmd {
	case CommandAccount:
		return runAccount(cfg, args[1:])
	case CommandWorker:
		return runWorker(cfg)
	default:
		// 明示の"run"はサブコマンド部分を取り除き、フラグのみ渡す
		runArgs := args
		if len(runArgs) > 0 && runArgs[0] == string(CommandRun) {
			runArgs = runArgs[1:]
		}
		return runSync(cfg, runArgs)
	}
}

// deps は1回の起動で共有する依存関係の束。
type deps struct {
	registry     *prometheus.Registry
	orchestrator *syncpkg.Orchestrator
	logger       *slog.Logger
	runID        string
}

// buildDeps は全依存関係をワイヤリングする。
// ストアクライアントとプロバイダクライアントはSSRF防止機能付きの
// HTTPクライアントを共有方針として使用する。
func buildDeps(cfg *config.Config) *deps {
	runLogger, runID := logger.NewRunLogger(slog.Default())

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	guard := security.NewOutboundGuard()
	sanitizer := security.NewTextSanitizer()

	source := provider.NewSourceClient(
		guard.NewSafeClient(cfg.Provider.Timeout),
		cfg.Provider.Host,
		cfg.Provider.APIKey,
		cfg.Provider.MaxBodySize,
		runLogger,
	)

	storeClient := store.NewClient(
		guard.NewSafeClient(cfg.Store.Timeout),
		cfg.Store.BaseURL,
		cfg.Store.APIKey,
		cfg.Store.BatchDelay,
		runLogger,
	)

	factory := func(tenant config.TenantConfig) syncpkg.TenantServices {
		tenantLogger := runLogger.With(slog.String("tenant", tenant.Name))
		accounts := storeClient.Table(tenant.BaseID, tenant.AccountsTable)
		content := storeClient.Table(tenant.BaseID, tenant.ContentTable)
		viewHistory := storeClient.Table(tenant.BaseID, tenant.ViewHistoryTable)
		followerHistory := storeClient.Table(tenant.BaseID, tenant.FollowerHistoryTable)

		return syncpkg.TenantServices{
			Accounts:        accountpkg.NewSyncService(source, accounts, guard, sanitizer, collector, tenantLogger),
			Content:         contentpkg.NewUpsertService(content, viewHistory, guard, sanitizer, collector, tenantLogger),
			ViewHistory:     history.NewViewHistoryService(content, viewHistory, collector, tenantLogger),
			FollowerHistory: history.NewFollowerHistoryService(accounts, followerHistory, collector, tenantLogger),
		}
	}

	pacer := syncpkg.NewPacer(
		cfg.RequestDelay(),
		cfg.RateLimits.AccountDelay,
		cfg.RateLimits.PostDelay,
	)

	orchestrator := syncpkg.NewOrchestrator(
		cfg.Store.Tenants, factory, source, pacer, collector, runLogger,
	)

	return &deps{
		registry:     registry,
		orchestrator: orchestrator,
		logger:       runLogger,
		runID:        runID,
	}
}

// parseRunOptions はrunサブコマンドのフラグを解析する。
func parseRunOptions(args []string) (syncpkg.RunOptions, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	content := fs.Bool("content", false, "コンテンツ同期と履歴パスを有効にする")
	limit := fs.Int("limit", 0, "テナントごとの処理アカウント数の上限（0は無制限）")
	dryRun := fs.Bool("dry-run", false, "ストアへの書き込みを行わない")
	if err := fs.Parse(args); err != nil {
		return syncpkg.RunOptions{}, err
	}
	return syncpkg.RunOptions{
		ContentEnabled: *content,
		MaxAccounts:    *limit,
		DryRun:         *dryRun,
	}, nil
}

// runSync は全テナントの同期ランを1回実行する。
// テナント単位の失敗はラン内で吸収されるため、正常終了する。
func runSync(cfg *config.Config, args []string) error {
	opts, err := parseRunOptions(args)
	if err != nil {
		return err
	}

	d := buildDeps(cfg)
	d.logger.Info("同期ランを開始します",
		slog.Bool("content_enabled", opts.ContentEnabled),
		slog.Int("max_accounts", opts.MaxAccounts),
		slog.Bool("dry_run", opts.DryRun),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := d.orchestrator.Run(ctx, opts); err != nil {
		return fmt.Errorf("sync run interrupted: %w", err)
	}
	d.logger.Info("同期ランが終了しました")
	return nil
}

// runAccount は単一アカウントのプロフィールのみ同期する。
func runAccount(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("account", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "ストアへの書き込みを行わない")
	if err := fs.Parse(args); err != nil {
		return err
	}
	handle := fs.Arg(0)
	if handle == "" {
		return fmt.Errorf("usage: account [-dry-run] <handle>")
	}

	d := buildDeps(cfg)
	d.logger.Info("単一アカウントの同期を開始します",
		slog.String("handle", handle),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return d.orchestrator.SyncHandle(ctx, handle, *dryRun)
}

// runWorker はスケジュール実行のワーカーモードで起動する。
// 同期ジョブをcronスケジュールで回しつつ、ヘルスチェックと
// メトリクスの運用エンドポイントを公開する。
func runWorker(cfg *config.Config) error {
	d := buildDeps(cfg)

	opts := syncpkg.RunOptions{ContentEnabled: true}
	job := syncpkg.NewJob(d.orchestrator, opts, d.logger)

	server := &http.Server{
		Addr:         ":" + cfg.Worker.OpsPort,
		Handler:      handler.NewOpsRouter(d.registry),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		d.logger.Info("運用エンドポイントを公開します",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			d.logger.Error("ops server listen error", slog.String("error", err.Error()))
		}
	}()

	// ジョブをメインgoroutineで実行（ブロッキング）
	err := job.Start(ctx, cfg.Worker.Schedule)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		d.logger.Error("ops server shutdown failed", slog.String("error", shutdownErr.Error()))
	}

	if err != nil {
		return fmt.Errorf("worker failed: %w", err)
	}
	d.logger.Info("worker stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
