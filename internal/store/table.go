// Package store はテナントスコープのタブラーストアへのアクセスを提供する。
// レコードは不透明なレコードIDとフィールドマップの組で表現され、
// ドメイン側の自然キー（ユーザー名・コンテンツID）とは区別される。
package store

import "context"

// Fields はレコードのフィールド名から値へのマップ。
type Fields map[string]any

// Record はストア上の1レコード。IDはストアが採番する不透明な識別子。
type Record struct {
	ID     string
	Fields Fields
}

// Int はフィールドを整数として読み出す。未設定・非数値の場合は0を返す。
// JSONデコード後の数値はfloat64で届くため、コア側はこれを経由して読む。
func (r Record) Int(field string) int {
	switch v := r.Fields[field].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

// String はフィールドを文字列として読み出す。未設定の場合は空文字を返す。
func (r Record) String(field string) string {
	if v, ok := r.Fields[field].(string); ok {
		return v
	}
	return ""
}

// StringSlice はリンクレコードフィールド（レコードIDの配列）を読み出す。
func (r Record) StringSlice(field string) []string {
	raw, ok := r.Fields[field].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// UpdateRequest はバッチ更新の1件分。
type UpdateRequest struct {
	ID     string
	Fields Fields
}

// SortDirection はソート方向を表す。
type SortDirection string

const (
	// SortAsc は昇順ソート。
	SortAsc SortDirection = "asc"
	// SortDesc は降順ソート。
	SortDesc SortDirection = "desc"
)

// ListQuery はListの検索条件。ListOptionで組み立てる。
type ListQuery struct {
	Formula    Formula
	FieldNames []string
	MaxRecords int
	SortField  string
	SortDir    SortDirection
}

// ListOption はListの検索条件を設定する関数。
type ListOption func(*ListQuery)

// WithFormula は絞り込み式を設定する。
func WithFormula(f Formula) ListOption {
	return func(q *ListQuery) { q.Formula = f }
}

// WithFields は取得フィールドを制限する。転送量削減のため、
// 必要なフィールドだけを指定する。
func WithFields(names ...string) ListOption {
	return func(q *ListQuery) { q.FieldNames = names }
}

// WithMaxRecords は取得件数の上限を設定する。0は無制限。
func WithMaxRecords(n int) ListOption {
	return func(q *ListQuery) { q.MaxRecords = n }
}

// WithSort はソートするフィールドと方向を設定する。
// WithMaxRecords(1)と組み合わせると「条件に合う最新の1件」の取得になる。
func WithSort(field string, dir SortDirection) ListOption {
	return func(q *ListQuery) {
		q.SortField = field
		q.SortDir = dir
	}
}

// Table は1論理テーブルへの読み書きインターフェース。
// 同期エンジンのコアはこのインターフェースのみに依存する。
type Table interface {
	// List は条件に合致するレコードを返す。該当なしの場合は空スライスを返す。
	List(ctx context.Context, opts ...ListOption) ([]Record, error)

	// Create は1レコードを作成し、採番されたレコードIDを含めて返す。
	Create(ctx context.Context, fields Fields) (Record, error)

	// Update は指定レコードのフィールドを部分更新する。
	Update(ctx context.Context, recordID string, fields Fields) error

	// BatchCreate は複数レコードをチャンク分割して作成する。
	BatchCreate(ctx context.Context, records []Fields) error

	// BatchUpdate は複数レコードをチャンク分割して部分更新する。
	BatchUpdate(ctx context.Context, updates []UpdateRequest) error
}
