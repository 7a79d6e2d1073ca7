// Package account はアカウントプロフィールの同期を提供する。
package account

import (
	"context"
	"log/slog"
	"time"

	"github.com/AINomadD3v/model-scraper/internal/metrics"
	"github.com/AINomadD3v/model-scraper/internal/model"
	"github.com/AINomadD3v/model-scraper/internal/security"
	"github.com/AINomadD3v/model-scraper/internal/store"
)

// ProfileFetcher はプロフィール取得のインターフェース。
// 取得失敗はnilで表現され、エラーは返らない。
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, handle string) *model.ProfileData
}

// fetchErrorMessage はプロフィール取得に失敗したアカウントへ書き込むエラー文言。
const fetchErrorMessage = "Failed to fetch profile data"

// SyncService はアカウント1件のプロフィール同期を行う。
// 取得失敗はアカウントレコードのAPI Errorフィールドとして利用者に可視化され、
// 呼び出し元へはfalseで伝わる。例外は境界を越えない。
type SyncService struct {
	source    ProfileFetcher
	accounts  store.Table
	guard     security.OutboundGuardService
	sanitizer security.TextSanitizerService
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewSyncService は新しいSyncServiceを生成する。
func NewSyncService(
	source ProfileFetcher,
	accounts store.Table,
	guard security.OutboundGuardService,
	sanitizer security.TextSanitizerService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		source:    source,
		accounts:  accounts,
		guard:     guard,
		sanitizer: sanitizer,
		metrics:   collector,
		logger:    logger,
	}
}

// SyncAccount はプロフィールを取得してアカウントレコードへ反映する。
// skipStoreUpdateはドライラン用で、取得と検証のみ行い書き込みを省略する。
func (s *SyncService) SyncAccount(ctx context.Context, acct model.ActiveAccount, skipStoreUpdate bool) bool {
	start := time.Now()
	profile := s.source.FetchProfile(ctx, acct.Username)
	s.metrics.RecordFetchLatency(time.Since(start))

	if profile == nil {
		s.metrics.RecordProviderEmpty("profile")
		s.logger.Error("プロフィールを取得できませんでした",
			slog.String("username", acct.Username),
			slog.String("record_id", acct.RecordID),
		)
		if !skipStoreUpdate {
			s.writeError(ctx, acct.RecordID)
		}
		return false
	}

	if skipStoreUpdate {
		s.logger.Info("ドライランのため書き込みをスキップします",
			slog.String("username", acct.Username),
		)
		return true
	}

	fields := s.formatProfile(profile)
	if err := s.accounts.Update(ctx, acct.RecordID, fields); err != nil {
		s.logger.Error("アカウントレコードの更新に失敗しました",
			slog.String("username", acct.Username),
			slog.String("record_id", acct.RecordID),
			slog.String("error", err.Error()),
		)
		return false
	}

	s.logger.Info("プロフィールを同期しました",
		slog.String("username", acct.Username),
		slog.Int("followers", profile.FollowerCount),
	)
	return true
}

// writeError は取得失敗をアカウントレコードに残す。この書き込み自体の失敗は
// ログに残すだけで、戻り値には影響しない。
func (s *SyncService) writeError(ctx context.Context, recordID string) {
	fields := store.Fields{
		store.FieldAPIError: fetchErrorMessage,
		store.FieldScraped:  true,
	}
	if err := s.accounts.Update(ctx, recordID, fields); err != nil {
		s.logger.Error("エラーマーカーの書き込みに失敗しました",
			slog.String("record_id", recordID),
			slog.String("error", err.Error()),
		)
	}
}

// formatProfile はプロフィールをストアのスキーマへ変換する。
// 成功時はAPI Errorを空文字で上書きし、過去の失敗痕跡を消す。
func (s *SyncService) formatProfile(profile *model.ProfileData) store.Fields {
	return store.Fields{
		store.FieldUsername:   profile.Username,
		store.FieldBio:        s.sanitizer.SanitizeText(profile.Biography),
		store.FieldPFP:        s.attachment(profile.Username, profile.ProfilePicURL),
		store.FieldFollowers:  profile.FollowerCount,
		store.FieldFollowing:  profile.FollowingCount,
		store.FieldMediaCount: profile.MediaCount,
		store.FieldFullName:   profile.FullName,
		store.FieldBioLink:    profile.ExternalURL,
		store.FieldScraped:    true,
		store.FieldAPIError:   "",
	}
}

// attachment はプロフィール画像の添付フィールドを組み立てる。
func (s *SyncService) attachment(username, rawURL string) []map[string]any {
	if rawURL == "" {
		return []map[string]any{}
	}
	if err := s.guard.ValidateAttachmentURL(rawURL); err != nil {
		s.logger.Warn("プロフィール画像URLの検証に失敗したため除外します",
			slog.String("username", username),
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return []map[string]any{}
	}
	return []map[string]any{{"url": rawURL}}
}
