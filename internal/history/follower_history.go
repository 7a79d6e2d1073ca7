package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AINomadD3v/model-scraper/internal/metrics"
	"github.com/AINomadD3v/model-scraper/internal/store"
)

// FollowerHistoryService はアカウントのフォロワー数履歴の一括パスを提供する。
// 前回値は履歴テーブル自体から「当日より前で最新の1件」を引いて求める。
type FollowerHistoryService struct {
	accounts store.Table
	history  store.Table
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	nowFunc  func() time.Time
}

// NewFollowerHistoryService は新しいFollowerHistoryServiceを生成する。
func NewFollowerHistoryService(accounts, history store.Table, collector metrics.MetricsCollector, logger *slog.Logger) *FollowerHistoryService {
	return &FollowerHistoryService{
		accounts: accounts,
		history:  history,
		metrics:  collector,
		logger:   logger,
		nowFunc:  time.Now,
	}
}

// RunPass は全アクティブアカウントのフォロワー数スナップショットを作成する。
// 初回（過去のスナップショットが存在しない）アカウントは前回値=現在値とし、
// 差分0のベースラインを作る。個々のアカウントの参照失敗はパス全体を止めない。
func (s *FollowerHistoryService) RunPass(ctx context.Context) error {
	s.logger.Info("フォロワー数履歴の一括パスを開始します")

	accounts, err := s.accounts.List(ctx,
		store.WithFormula(store.Eq(store.FieldStatus, store.StatusActive)),
		store.WithFields(store.FieldUsername, store.FieldFollowers),
	)
	if err != nil {
		return fmt.Errorf("failed to read active accounts: %w", err)
	}

	now := s.nowFunc()
	today := now.Format(DateFormat)
	snapshots := make([]store.Fields, 0, len(accounts))

	for _, account := range accounts {
		if _, ok := account.Fields[store.FieldFollowers]; !ok {
			continue
		}
		followers := account.Int(store.FieldFollowers)

		previous, found, err := s.latestBefore(ctx, account.String(store.FieldUsername), today)
		if err != nil {
			s.logger.Error("過去のフォロワー数スナップショットの参照に失敗しました",
				slog.String("record_id", account.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !found {
			// 初回は差分0のベースライン
			previous = followers
		}

		snap := Take(now, followers, previous)
		snapshots = append(snapshots, store.Fields{
			store.FieldDate:                snap.Date,
			store.FieldAccount:             []string{account.ID},
			store.FieldFollowerCount:       snap.Value,
			store.FieldPreviousDayFollower: snap.Previous,
			store.FieldDailyChange:         snap.Delta,
		})
	}

	if len(snapshots) == 0 {
		s.logger.Info("フォロワー数履歴の対象アカウントがありません")
		return nil
	}

	if err := s.history.BatchCreate(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to create follower history snapshots: %w", err)
	}

	s.metrics.RecordSnapshotCreated(metrics.SnapshotKindFollower, len(snapshots))
	s.logger.Info("フォロワー数履歴の一括パスが完了しました",
		slog.Int("snapshot_count", len(snapshots)),
	)
	return nil
}

// latestBefore は指定アカウントの、指定日より前で最新のスナップショットの
// フォロワー数を返す。リンクフィールドは式の中でリンク先の主フィールド
// （Username）として評価される。
func (s *FollowerHistoryService) latestBefore(ctx context.Context, username, date string) (int, bool, error) {
	records, err := s.history.List(ctx,
		store.WithFormula(store.And(
			store.Eq(store.FieldAccount, username),
			store.Lt(store.FieldDate, date),
		)),
		store.WithFields(store.FieldFollowerCount),
		store.WithSort(store.FieldDate, store.SortDesc),
		store.WithMaxRecords(1),
	)
	if err != nil {
		return 0, false, err
	}
	if len(records) == 0 {
		return 0, false, nil
	}
	return records[0].Int(store.FieldFollowerCount), true, nil
}
