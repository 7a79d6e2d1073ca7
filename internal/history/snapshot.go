// Package history はメトリクスの履歴スナップショットの計算と一括パスを提供する。
// スナップショットは追記専用であり、一度作成されたら変更も削除もされない。
package history

import "time"

// DateFormat はスナップショットの日付の文字列形式。
// 文字列比較が日付順と一致するためストア側の範囲絞り込みにそのまま使える。
const DateFormat = "2006-01-02"

// Snapshot は時系列メトリクスの1時点の値と日次差分。
type Snapshot struct {
	Date     string
	Value    int
	Previous int
	Delta    int
}

// Take は現在値と前回値からスナップショットを計算する純粋関数。
// Deltaは符号付きで、値が減った場合は負になる。
func Take(now time.Time, current, previous int) Snapshot {
	return Snapshot{
		Date:     now.Format(DateFormat),
		Value:    current,
		Previous: previous,
		Delta:    current - previous,
	}
}
