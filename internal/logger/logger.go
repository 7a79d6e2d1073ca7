// Package logger はJSON構造化ログのセットアップを提供する。
package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 同期エンジンの各サービスへ明示的に引き渡して使う。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// 設定読み込みなどサービス構築前の初期化ログ用。本番ではos.Stdoutを渡す。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}

// NewRunLogger は同期ラン1回分のrun_id属性を付与したロガーを返す。
// 戻り値のrun_idはログ上でランをまたいだ突き合わせに使う。
func NewRunLogger(base *slog.Logger) (*slog.Logger, string) {
	runID := uuid.New().String()
	return base.With(slog.String("run_id", runID)), runID
}
