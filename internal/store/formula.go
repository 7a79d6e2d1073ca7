package store

import (
	"fmt"
	"strings"
)

// Formula はストアの絞り込み式。等値比較・AND結合・値の存在チェックと、
// 文字列順の比較（日付文字列の範囲絞り込み用）をサポートする。
type Formula string

// Eq はフィールドと値の等値比較式を返す。
func Eq(field, value string) Formula {
	return Formula(fmt.Sprintf("{%s}='%s'", field, escapeValue(value)))
}

// Lt はフィールドが値より小さいことを表す式を返す。
// 日付はYYYY-MM-DDの文字列として保存されるため、文字列比較が日付順と一致する。
func Lt(field, value string) Formula {
	return Formula(fmt.Sprintf("{%s}<'%s'", field, escapeValue(value)))
}

// NotEmpty はフィールドに値が存在することを表す式を返す。
func NotEmpty(field string) Formula {
	return Formula(fmt.Sprintf("{%s}!=''", field))
}

// And は複数の式をAND結合する。0件なら空、1件ならそのままを返す。
func And(formulas ...Formula) Formula {
	parts := make([]string, 0, len(formulas))
	for _, f := range formulas {
		if f != "" {
			parts = append(parts, string(f))
		}
	}
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return Formula(parts[0])
	default:
		return Formula("AND(" + strings.Join(parts, ",") + ")")
	}
}

// escapeValue は式の値に含まれるシングルクォートをエスケープする。
func escapeValue(v string) string {
	return strings.ReplaceAll(v, "'", "\\'")
}
