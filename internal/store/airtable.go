package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"
)

const (
	// batchSize はバッチ書き込み1リクエストあたりの最大レコード数。
	// ストア側のAPI制限に合わせる。
	batchSize = 10
	// listPageSize は一覧取得1ページあたりの最大レコード数。
	listPageSize = 100
)

// StatusError はストアAPIが非成功ステータスを返した場合のエラー。
type StatusError struct {
	StatusCode int
	Body       string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("store returned status %d: %s", e.StatusCode, e.Body)
}

// Client はタブラーストアのHTTP APIクライアント。
// 全テナント・全テーブルで1つを共有し、バッチ書き込みのチャンク間隔を
// レートリミッターで一元的に制御する。
type Client struct {
	http       *resty.Client
	chunkPacer *rate.Limiter
	logger     *slog.Logger
}

// NewClient はストアAPIクライアントの新しいインスタンスを生成する。
// httpClientにはSSRF防止機能付きのクライアントを渡す。
// batchDelayはバッチ書き込みのチャンク間に挟む最小間隔。
func NewClient(httpClient *http.Client, baseURL, apiKey string, batchDelay time.Duration, logger *slog.Logger) *Client {
	r := resty.NewWithClient(httpClient).
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json")

	// JSONコーデックをgoccy/go-jsonに差し替える
	r.JSONMarshal = json.Marshal
	r.JSONUnmarshal = json.Unmarshal

	if batchDelay <= 0 {
		batchDelay = time.Second
	}

	return &Client{
		http:       r,
		chunkPacer: rate.NewLimiter(rate.Every(batchDelay), 1),
		logger:     logger,
	}
}

// Table は指定ベース・指定テーブルへのTableインターフェースを返す。
func (c *Client) Table(baseID, tableID string) Table {
	return &airtableTable{
		client:  c,
		baseID:  baseID,
		tableID: tableID,
	}
}

// airtableTable はTableのHTTP実装。
type airtableTable struct {
	client  *Client
	baseID  string
	tableID string
}

// recordPayload はワイヤ上のレコード表現。
type recordPayload struct {
	ID     string `json:"id,omitempty"`
	Fields Fields `json:"fields"`
}

// recordsEnvelope は一覧・バッチ書き込みのワイヤ上のエンベロープ。
type recordsEnvelope struct {
	Records []recordPayload `json:"records"`
	Offset  string          `json:"offset,omitempty"`
}

func (t *airtableTable) path() string {
	return fmt.Sprintf("/%s/%s", t.baseID, t.tableID)
}

// List は条件に合致するレコードをページングしながら全件取得する。
func (t *airtableTable) List(ctx context.Context, opts ...ListOption) ([]Record, error) {
	var q ListQuery
	for _, opt := range opts {
		opt(&q)
	}

	params := url.Values{}
	if q.Formula != "" {
		params.Set("filterByFormula", string(q.Formula))
	}
	for _, f := range q.FieldNames {
		params.Add("fields[]", f)
	}
	if q.MaxRecords > 0 {
		params.Set("maxRecords", strconv.Itoa(q.MaxRecords))
	}
	if q.SortField != "" {
		params.Set("sort[0][field]", q.SortField)
		params.Set("sort[0][direction]", string(q.SortDir))
	}
	params.Set("pageSize", strconv.Itoa(listPageSize))

	var records []Record
	offset := ""
	for {
		var envelope recordsEnvelope
		req := t.client.http.R().
			SetContext(ctx).
			SetQueryParamsFromValues(params).
			SetResult(&envelope).
			ForceContentType("application/json")
		if offset != "" {
			req.SetQueryParam("offset", offset)
		}

		resp, err := req.Get(t.path())
		if err != nil {
			return nil, fmt.Errorf("failed to list records from %s: %w", t.tableID, err)
		}
		if resp.IsError() {
			return nil, &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
		}

		for _, r := range envelope.Records {
			records = append(records, Record{ID: r.ID, Fields: r.Fields})
		}

		if envelope.Offset == "" {
			break
		}
		if q.MaxRecords > 0 && len(records) >= q.MaxRecords {
			break
		}
		offset = envelope.Offset
	}

	return records, nil
}

// Create は1レコードを作成し、採番されたレコードIDを含めて返す。
func (t *airtableTable) Create(ctx context.Context, fields Fields) (Record, error) {
	var created recordPayload
	resp, err := t.client.http.R().
		SetContext(ctx).
		SetBody(recordPayload{Fields: fields}).
		SetResult(&created).
		ForceContentType("application/json").
		Post(t.path())
	if err != nil {
		return Record{}, fmt.Errorf("failed to create record in %s: %w", t.tableID, err)
	}
	if resp.IsError() {
		return Record{}, &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return Record{ID: created.ID, Fields: created.Fields}, nil
}

// Update は指定レコードのフィールドを部分更新する。
func (t *airtableTable) Update(ctx context.Context, recordID string, fields Fields) error {
	resp, err := t.client.http.R().
		SetContext(ctx).
		SetBody(recordPayload{Fields: fields}).
		Patch(t.path() + "/" + recordID)
	if err != nil {
		return fmt.Errorf("failed to update record %s in %s: %w", recordID, t.tableID, err)
	}
	if resp.IsError() {
		return &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// BatchCreate は複数レコードをチャンク分割して作成する。
// チャンク間はストア側のレート制限を尊重するため一定間隔を空ける。
func (t *airtableTable) BatchCreate(ctx context.Context, records []Fields) error {
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))

		if err := t.client.chunkPacer.Wait(ctx); err != nil {
			return fmt.Errorf("batch create interrupted: %w", err)
		}

		payload := make([]recordPayload, 0, end-start)
		for _, fields := range records[start:end] {
			payload = append(payload, recordPayload{Fields: fields})
		}

		resp, err := t.client.http.R().
			SetContext(ctx).
			SetBody(recordsEnvelope{Records: payload}).
			Post(t.path())
		if err != nil {
			return fmt.Errorf("failed to batch create records in %s: %w", t.tableID, err)
		}
		if resp.IsError() {
			return &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
		}

		t.client.logger.Debug("バッチ作成チャンクを書き込みました",
			slog.String("table_id", t.tableID),
			slog.Int("chunk_size", end-start),
		)
	}
	return nil
}

// BatchUpdate は複数レコードをチャンク分割して部分更新する。
func (t *airtableTable) BatchUpdate(ctx context.Context, updates []UpdateRequest) error {
	for start := 0; start < len(updates); start += batchSize {
		end := min(start+batchSize, len(updates))

		if err := t.client.chunkPacer.Wait(ctx); err != nil {
			return fmt.Errorf("batch update interrupted: %w", err)
		}

		payload := make([]recordPayload, 0, end-start)
		for _, u := range updates[start:end] {
			payload = append(payload, recordPayload{ID: u.ID, Fields: u.Fields})
		}

		resp, err := t.client.http.R().
			SetContext(ctx).
			SetBody(recordsEnvelope{Records: payload}).
			Patch(t.path())
		if err != nil {
			return fmt.Errorf("failed to batch update records in %s: %w", t.tableID, err)
		}
		if resp.IsError() {
			return &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
		}

		t.client.logger.Debug("バッチ更新チャンクを書き込みました",
			slog.String("table_id", t.tableID),
			slog.Int("chunk_size", end-start),
		)
	}
	return nil
}
