package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AINomadD3v/model-scraper/internal/config"
	"github.com/AINomadD3v/model-scraper/internal/metrics"
	"github.com/AINomadD3v/model-scraper/internal/model"
)

// AccountService はアカウント同期まわりのインターフェース。
type AccountService interface {
	ListActiveAccounts(ctx context.Context, limit int) ([]model.ActiveAccount, error)
	FindByUsername(ctx context.Context, username string) (*model.ActiveAccount, error)
	SyncAccount(ctx context.Context, acct model.ActiveAccount, skipStoreUpdate bool) bool
}

// ContentService はコンテンツアップサートのインターフェース。
type ContentService interface {
	UpsertContent(ctx context.Context, item model.ContentItem) bool
}

// HistoryPass は履歴一括パスのインターフェース。
type HistoryPass interface {
	RunPass(ctx context.Context) error
}

// ContentFetcher はコンテンツ一覧取得のインターフェース。
// 失敗は空スライスで表現され、エラーは返らない。
type ContentFetcher interface {
	FetchContentItems(ctx context.Context, handle string) []model.ContentItem
}

// TenantServices は1テナント分の同期サービスの束。
type TenantServices struct {
	Accounts        AccountService
	Content         ContentService
	ViewHistory     HistoryPass
	FollowerHistory HistoryPass
}

// ServicesFactory はテナント設定からそのテナント用のサービス群を構築する。
type ServicesFactory func(tenant config.TenantConfig) TenantServices

// RunOptions は1回の同期ランの動作を指定する。
type RunOptions struct {
	// ContentEnabled はコンテンツ同期と履歴パスを有効にする。
	ContentEnabled bool
	// MaxAccounts はテナントごとの処理アカウント数の上限。0は無制限。
	MaxAccounts int
	// DryRun はストアへの書き込みを省略する。
	DryRun bool
}

// Orchestrator はテナント→アカウント→コンテンツの逐次ループを編成する。
// 1テナント・1アカウントの失敗はその粒度で隔離され、ラン全体を止めない。
type Orchestrator struct {
	tenants []config.TenantConfig
	factory ServicesFactory
	source  ContentFetcher
	pacer   *Pacer
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewOrchestrator は新しいOrchestratorを生成する。
func NewOrchestrator(
	tenants []config.TenantConfig,
	factory ServicesFactory,
	source ContentFetcher,
	pacer *Pacer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		tenants: tenants,
		factory: factory,
		source:  source,
		pacer:   pacer,
		metrics: collector,
		logger:  logger,
	}
}

// Run は全テナントを順に同期する。テナント単位の失敗はログに残して
// 次のテナントへ進むため、戻り値のエラーはコンテキスト起因のみ。
func (o *Orchestrator) Run(ctx context.Context, opts RunOptions) error {
	status := "success"
	for _, tenant := range o.tenants {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		o.logger.Info("テナントの同期を開始します",
			slog.String("tenant", tenant.Name),
		)
		if err := o.runTenant(ctx, tenant, opts); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			status = "partial_failure"
			o.logger.Error("テナントの同期に失敗したため次へ進みます",
				slog.String("tenant", tenant.Name),
				slog.String("error", err.Error()),
			)
			continue
		}
		o.logger.Info("テナントの同期が完了しました",
			slog.String("tenant", tenant.Name),
		)
	}
	o.metrics.RecordRunCompleted(status)
	return nil
}

// runTenant は1テナント分の履歴パスとアカウントループを実行する。
func (o *Orchestrator) runTenant(ctx context.Context, tenant config.TenantConfig, opts RunOptions) error {
	services := o.factory(tenant)

	// 履歴パスはアカウントループより先に実行し、差分がラン開始時点の
	// 状態を反映するようにする
	if opts.ContentEnabled {
		if err := services.ViewHistory.RunPass(ctx); err != nil {
			return fmt.Errorf("view history pass failed: %w", err)
		}
		if err := services.FollowerHistory.RunPass(ctx); err != nil {
			return fmt.Errorf("follower history pass failed: %w", err)
		}
	}

	accounts, err := services.Accounts.ListActiveAccounts(ctx, opts.MaxAccounts)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		o.logger.Info("アクティブアカウントがありません",
			slog.String("tenant", tenant.Name),
		)
		return nil
	}

	for i, acct := range accounts {
		if err := o.pacer.WaitAccount(ctx); err != nil {
			return err
		}
		o.logger.Info("アカウントを処理します",
			slog.String("tenant", tenant.Name),
			slog.String("username", acct.Username),
			slog.Int("position", i+1),
			slog.Int("total", len(accounts)),
		)
		if err := o.syncOneAccount(ctx, tenant.Name, services, acct, opts); err != nil {
			return err
		}
	}
	return nil
}

// syncOneAccount は1アカウントのプロフィール同期と、有効な場合の
// コンテンツ同期を行う。失敗はメトリクスに記録して吸収する。
func (o *Orchestrator) syncOneAccount(ctx context.Context, tenantName string, services TenantServices, acct model.ActiveAccount, opts RunOptions) error {
	if err := o.pacer.WaitRequest(ctx); err != nil {
		return err
	}
	if ok := services.Accounts.SyncAccount(ctx, acct, opts.DryRun); !ok {
		o.metrics.RecordAccountFailed(tenantName)
		return nil
	}
	o.metrics.RecordAccountSynced(tenantName)

	if !opts.ContentEnabled {
		return nil
	}

	if err := o.pacer.WaitRequest(ctx); err != nil {
		return err
	}
	items := o.source.FetchContentItems(ctx, acct.Username)
	if len(items) == 0 {
		o.metrics.RecordProviderEmpty("content")
		o.logger.Warn("コンテンツが取得できませんでした",
			slog.String("username", acct.Username),
		)
		return nil
	}

	upserted := 0
	for _, item := range items {
		if err := o.pacer.WaitPost(ctx); err != nil {
			return err
		}
		item.AccountRecordID = acct.RecordID
		if ok := services.Content.UpsertContent(ctx, item); ok {
			upserted++
		}
	}
	o.logger.Info("コンテンツの同期が完了しました",
		slog.String("username", acct.Username),
		slog.Int("upserted", upserted),
		slog.Int("total", len(items)),
	)
	return nil
}

// SyncHandle は単一アカウントのプロフィールのみを同期する。
// 全テナントを順に探し、最初に見つかったアカウントを処理する。
// 同期自体の失敗はエラーマーカーをストアに残したうえで吸収されるため、
// エラーになるのはハンドルがどのテナントにも存在しない場合のみ。
func (o *Orchestrator) SyncHandle(ctx context.Context, handle string, dryRun bool) error {
	for _, tenant := range o.tenants {
		services := o.factory(tenant)
		acct, err := services.Accounts.FindByUsername(ctx, handle)
		if err != nil {
			o.logger.Error("アカウントの検索に失敗しました",
				slog.String("tenant", tenant.Name),
				slog.String("username", handle),
				slog.String("error", err.Error()),
			)
			continue
		}
		if acct == nil {
			continue
		}

		if err := o.pacer.WaitRequest(ctx); err != nil {
			return err
		}
		if ok := services.Accounts.SyncAccount(ctx, *acct, dryRun); !ok {
			o.metrics.RecordAccountFailed(tenant.Name)
			o.logger.Error("アカウントの同期に失敗しました",
				slog.String("tenant", tenant.Name),
				slog.String("username", handle),
			)
			return nil
		}
		o.metrics.RecordAccountSynced(tenant.Name)
		return nil
	}
	return fmt.Errorf("account %s not found in any tenant", handle)
}
