package provider

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

// flexString は文字列と数値のどちらで来るか安定しないIDフィールド用の型。
type flexString string

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (s *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// captionField はキャプションが文字列またはオブジェクト（{"text": ...}）の
// 2形式で来るフィールド用の型。
type captionField string

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (c *captionField) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*c = ""
		return nil
	}
	if strings.HasPrefix(trimmed, "{") {
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*c = captionField(obj.Text)
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = captionField(v)
	return nil
}

// bodyLimitTransport はレスポンスボディの読み取り量に上限を設ける。
type bodyLimitTransport struct {
	base  http.RoundTripper
	limit int64
}

// RoundTrip はhttp.RoundTripperを実装する。
func (t *bodyLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, parseErr := strconv.ParseInt(cl, 10, 64); parseErr == nil && n > t.limit {
			resp.Body.Close()
			resp.Body = http.NoBody
			return resp, nil
		}
	}
	resp.Body = &limitedBody{reader: io.LimitReader(resp.Body, t.limit), closer: resp.Body}
	return resp, nil
}

type limitedBody struct {
	reader io.Reader
	closer io.Closer
}

func (b *limitedBody) Read(p []byte) (int, error) { return b.reader.Read(p) }
func (b *limitedBody) Close() error               { return b.closer.Close() }

// withBodyLimit はボディサイズ上限付きのクライアントを返す。元のクライアントは変更しない。
func withBodyLimit(client *http.Client, limit int64) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	clone := *client
	clone.Transport = &bodyLimitTransport{base: base, limit: limit}
	return &clone
}
