// Package content はコンテンツレコードのアップサートを提供する。
// アップサートの自然キーはプロバイダ採番のコンテンツIDであり、
// 同じIDでの再実行はレコードを複製せず更新になる。
package content

import (
	"context"
	"log/slog"
	"time"

	"github.com/AINomadD3v/model-scraper/internal/history"
	"github.com/AINomadD3v/model-scraper/internal/metrics"
	"github.com/AINomadD3v/model-scraper/internal/model"
	"github.com/AINomadD3v/model-scraper/internal/security"
	"github.com/AINomadD3v/model-scraper/internal/store"
)

// UpsertService はコンテンツ1件の作成・更新と再生数スナップショットの発行を行う。
// 失敗はログに残してfalseを返すだけで、呼び出し元のループを止めない。
type UpsertService struct {
	content   store.Table
	history   store.Table
	guard     security.OutboundGuardService
	sanitizer security.TextSanitizerService
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	nowFunc   func() time.Time
}

// NewUpsertService は新しいUpsertServiceを生成する。
func NewUpsertService(
	content, historyTable store.Table,
	guard security.OutboundGuardService,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *UpsertService {
	return &UpsertService{
		content:   content,
		history:   historyTable,
		guard:     guard,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
		nowFunc:   time.Now,
	}
}

// UpsertContent はコンテンツ1件をストアへ反映し、再生数スナップショットを作成する。
// 既存レコードの参照はスナップショットの前回値を確定させるため、更新より先に行う。
// 戻り値は成功可否のみで、エラーは内部でログに変換される。
func (s *UpsertService) UpsertContent(ctx context.Context, item model.ContentItem) bool {
	if item.ID == "" {
		s.logger.Warn("IDのないコンテンツをスキップします")
		return false
	}

	fields := s.formatContent(item)

	existing, err := s.content.List(ctx,
		store.WithFormula(store.Eq(store.FieldID, item.ID)),
		store.WithFields(store.FieldViews),
		store.WithMaxRecords(1),
	)
	if err != nil {
		s.logger.Error("既存コンテンツの参照に失敗しました",
			slog.String("content_id", item.ID),
			slog.String("error", err.Error()),
		)
		return false
	}

	var recordID string
	var previousViews int

	if len(existing) > 0 {
		recordID = existing[0].ID
		previousViews = existing[0].Int(store.FieldViews)

		// 上書き前の現在値を前回値として残す
		fields[store.FieldPreviousViews] = previousViews
		if err := s.content.Update(ctx, recordID, fields); err != nil {
			s.logger.Error("コンテンツの更新に失敗しました",
				slog.String("content_id", item.ID),
				slog.String("record_id", recordID),
				slog.String("error", err.Error()),
			)
			return false
		}
		s.logger.Info("コンテンツを更新しました",
			slog.String("content_id", item.ID),
			slog.String("record_id", recordID),
		)
	} else {
		previousViews = 0
		fields[store.FieldPreviousViews] = 0
		created, err := s.content.Create(ctx, fields)
		if err != nil {
			s.logger.Error("コンテンツの作成に失敗しました",
				slog.String("content_id", item.ID),
				slog.String("error", err.Error()),
			)
			return false
		}
		recordID = created.ID
		s.logger.Info("新規コンテンツを作成しました",
			slog.String("content_id", item.ID),
			slog.String("record_id", recordID),
		)
	}

	snap := history.Take(s.nowFunc(), item.ViewCount, previousViews)
	snapshotFields := store.Fields{
		store.FieldDate:            snap.Date,
		store.FieldContentID:       item.ID,
		store.FieldContent:         []string{recordID},
		store.FieldAccount:         accountLink(item.AccountRecordID),
		store.FieldViewCount:       snap.Value,
		store.FieldPreviousDayView: snap.Previous,
		store.FieldDailyChange:     snap.Delta,
	}
	if _, err := s.history.Create(ctx, snapshotFields); err != nil {
		s.logger.Error("再生数スナップショットの作成に失敗しました",
			slog.String("content_id", item.ID),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.metrics.RecordContentUpserted(1)
	s.metrics.RecordSnapshotCreated(metrics.SnapshotKindView, 1)
	return true
}

// formatContent はコンテンツアイテムをストアのスキーマへ変換する。
// キャプションはサニタイズし、添付URLは検証に通ったものだけを載せる。
func (s *UpsertService) formatContent(item model.ContentItem) store.Fields {
	return store.Fields{
		store.FieldID:        item.ID,
		store.FieldCaption:   s.sanitizer.SanitizeText(item.Caption),
		store.FieldAccount:   accountLink(item.AccountRecordID),
		store.FieldLikeCount: item.LikeCount,
		store.FieldMediaType: string(item.MediaType),
		store.FieldComments:  item.CommentCount,
		store.FieldContent:   s.attachment(item.ID, item.VideoURL),
		store.FieldThumbnail: s.attachment(item.ID, item.ThumbnailURL),
		store.FieldViews:     item.ViewCount,
	}
}

// attachment は添付フィールドの値を組み立てる。URLが空または検証に
// 失敗した場合は空リストを返す。
func (s *UpsertService) attachment(contentID, rawURL string) []map[string]any {
	if rawURL == "" {
		return []map[string]any{}
	}
	if err := s.guard.ValidateAttachmentURL(rawURL); err != nil {
		s.logger.Warn("添付URLの検証に失敗したため除外します",
			slog.String("content_id", contentID),
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return []map[string]any{}
	}
	return []map[string]any{{"url": rawURL}}
}

func accountLink(recordID string) []string {
	if recordID == "" {
		return []string{}
	}
	return []string{recordID}
}
