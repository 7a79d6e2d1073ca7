// Package sync はテナント横断の同期ランの編成を提供する。
// 実行は完全に逐次であり、外部APIのレート制限は呼び出し間の
// 待機間隔としてのみ表現される。
package sync

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer は外部呼び出しの間隔制御をまとめる。
// 各リミッターはバースト1で構成され、Waitを呼び出しの直前に置くことで
// 「連続する呼び出しの間に最低限の間隔を空ける」動作になる。
// 最初の呼び出しとループ最後の呼び出しの後には待機が発生しない。
type Pacer struct {
	request *rate.Limiter
	account *rate.Limiter
	post    *rate.Limiter
}

// NewPacer は新しいPacerを生成する。各間隔は0以下の場合無制限になる。
func NewPacer(requestDelay, accountDelay, postDelay time.Duration) *Pacer {
	return &Pacer{
		request: newIntervalLimiter(requestDelay),
		account: newIntervalLimiter(accountDelay),
		post:    newIntervalLimiter(postDelay),
	}
}

func newIntervalLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// WaitRequest はプロバイダAPI呼び出しの前に呼ぶ。
func (p *Pacer) WaitRequest(ctx context.Context) error {
	return p.request.Wait(ctx)
}

// WaitAccount はアカウント処理の前に呼ぶ。
func (p *Pacer) WaitAccount(ctx context.Context) error {
	return p.account.Wait(ctx)
}

// WaitPost はコンテンツ処理の前に呼ぶ。
func (p *Pacer) WaitPost(ctx context.Context) error {
	return p.post.Wait(ctx)
}
