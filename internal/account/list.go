package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AINomadD3v/model-scraper/internal/model"
	"github.com/AINomadD3v/model-scraper/internal/store"
)

// ListActiveAccounts は同期対象のアクティブアカウントを取得する。
// 転送量を抑えるため必要なフィールドのみ取得し、ユーザー名のない
// レコードは対象外とする。limitが正の場合は取得件数を制限する。
func (s *SyncService) ListActiveAccounts(ctx context.Context, limit int) ([]model.ActiveAccount, error) {
	opts := []store.ListOption{
		store.WithFormula(store.Eq(store.FieldStatus, store.StatusActive)),
		store.WithFields(store.FieldUsername, store.FieldFollowers),
	}
	if limit > 0 {
		opts = append(opts, store.WithMaxRecords(limit))
	}

	records, err := s.accounts.List(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active accounts: %w", err)
	}

	accounts := make([]model.ActiveAccount, 0, len(records))
	for _, record := range records {
		username := record.String(store.FieldUsername)
		if username == "" {
			s.logger.Warn("ユーザー名のないアカウントをスキップします",
				slog.String("record_id", record.ID),
			)
			continue
		}
		accounts = append(accounts, model.ActiveAccount{
			RecordID:  record.ID,
			Username:  username,
			Followers: record.Int(store.FieldFollowers),
		})
	}

	s.logger.Info("アクティブアカウントを取得しました",
		slog.Int("count", len(accounts)),
	)
	return accounts, nil
}

// FindByUsername は指定ユーザー名のアカウントを1件探す。
// 見つからない場合は(nil, nil)を返す。
func (s *SyncService) FindByUsername(ctx context.Context, username string) (*model.ActiveAccount, error) {
	records, err := s.accounts.List(ctx,
		store.WithFormula(store.Eq(store.FieldUsername, username)),
		store.WithFields(store.FieldUsername, store.FieldFollowers),
		store.WithMaxRecords(1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", username, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &model.ActiveAccount{
		RecordID:  records[0].ID,
		Username:  records[0].String(store.FieldUsername),
		Followers: records[0].Int(store.FieldFollowers),
	}, nil
}
