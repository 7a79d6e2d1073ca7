package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AINomadD3v/model-scraper/internal/metrics"
	"github.com/AINomadD3v/model-scraper/internal/store"
)

// ViewHistoryService はコンテンツの再生数履歴の一括パスを提供する。
// 前回値はコンテンツレコード自体の「Previous Views」に非正規化されており、
// 参照クエリなしでスナップショットを計算できる。
type ViewHistoryService struct {
	content store.Table
	history store.Table
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewViewHistoryService は新しいViewHistoryServiceを生成する。
func NewViewHistoryService(content, history store.Table, collector metrics.MetricsCollector, logger *slog.Logger) *ViewHistoryService {
	return &ViewHistoryService{
		content: content,
		history: history,
		metrics: collector,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// RunPass は全コンテンツレコードの再生数スナップショットを作成し、
// 各レコードの「Previous Views」を現在値で更新する。
// スナップショットの作成が完了してから前回値を書き換えることで、
// パスが途中で止まっても次回のパスが同じ前回値から再計算できる。
func (s *ViewHistoryService) RunPass(ctx context.Context) error {
	s.logger.Info("再生数履歴の一括パスを開始します")

	records, err := s.content.List(ctx,
		store.WithFields(
			store.FieldID,
			store.FieldAccount,
			store.FieldViews,
			store.FieldPreviousViews,
			store.FieldViewCount,
		),
	)
	if err != nil {
		return fmt.Errorf("failed to read content records: %w", err)
	}

	now := s.nowFunc()
	snapshots := make([]store.Fields, 0, len(records))
	updates := make([]store.UpdateRequest, 0, len(records))

	for _, record := range records {
		// 再生数のないレコード（動画以外など）は対象外
		views, ok := contentViews(record)
		if !ok {
			continue
		}
		previous := record.Int(store.FieldPreviousViews)

		snap := Take(now, views, previous)
		snapshots = append(snapshots, store.Fields{
			store.FieldDate:            snap.Date,
			store.FieldContentID:       record.String(store.FieldID),
			store.FieldContent:         []string{record.ID},
			store.FieldAccount:         record.StringSlice(store.FieldAccount),
			store.FieldViewCount:       snap.Value,
			store.FieldPreviousDayView: snap.Previous,
			store.FieldDailyChange:     snap.Delta,
		})
		updates = append(updates, store.UpdateRequest{
			ID:     record.ID,
			Fields: store.Fields{store.FieldPreviousViews: views},
		})
	}

	if len(snapshots) == 0 {
		s.logger.Info("再生数履歴の対象レコードがありません")
		return nil
	}

	if err := s.history.BatchCreate(ctx, snapshots); err != nil {
		return fmt.Errorf("failed to create view history snapshots: %w", err)
	}
	if err := s.content.BatchUpdate(ctx, updates); err != nil {
		return fmt.Errorf("failed to update previous views: %w", err)
	}

	s.metrics.RecordSnapshotCreated(metrics.SnapshotKindView, len(snapshots))
	s.logger.Info("再生数履歴の一括パスが完了しました",
		slog.Int("snapshot_count", len(snapshots)),
	)
	return nil
}

// contentViews はコンテンツレコードの再生数を返す。
// 旧スキーマのテーブルでは「View Count」フィールドに入っている場合があるため、
// 「Views」がなければそちらへフォールバックする。
func contentViews(record store.Record) (int, bool) {
	if _, ok := record.Fields[store.FieldViews]; ok {
		return record.Int(store.FieldViews), true
	}
	if _, ok := record.Fields[store.FieldViewCount]; ok {
		return record.Int(store.FieldViewCount), true
	}
	return 0, false
}
