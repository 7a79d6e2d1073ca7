package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// newTestTable はテスト用サーバーに向いたTableを返す。
func newTestTable(t *testing.T, handler http.HandlerFunc) Table {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(server.Client(), server.URL, "test-key", time.Millisecond, newTestLogger())
	return client.Table("appBase1", "tblAccounts")
}

func TestList(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery map[string][]string

	table := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query()
		json.NewEncoder(w).Encode(recordsEnvelope{
			Records: []recordPayload{
				{ID: "rec1", Fields: Fields{"Views": float64(100), "ID": "post_1"}},
			},
		})
	})

	records, err := table.List(context.Background(),
		WithFormula(Eq("ID", "post_1")),
		WithFields("Views"),
		WithMaxRecords(1),
		WithSort("Date", SortDesc),
	)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("List() returned %d records, want 1", len(records))
	}
	if records[0].ID != "rec1" {
		t.Errorf("record ID = %q, want %q", records[0].ID, "rec1")
	}
	if got := records[0].Int("Views"); got != 100 {
		t.Errorf("Views = %d, want 100", got)
	}

	if gotPath != "/appBase1/tblAccounts" {
		t.Errorf("request path = %q, want %q", gotPath, "/appBase1/tblAccounts")
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}

	wantParams := map[string]string{
		"filterByFormula":    "{ID}='post_1'",
		"fields[]":           "Views",
		"maxRecords":         "1",
		"sort[0][field]":     "Date",
		"sort[0][direction]": "desc",
	}
	for key, want := range wantParams {
		if got := gotQuery[key]; len(got) != 1 || got[0] != want {
			t.Errorf("query %s = %v, want %q", key, got, want)
		}
	}
}

func TestListPagination(t *testing.T) {
	var requests int
	table := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		switch r.URL.Query().Get("offset") {
		case "":
			json.NewEncoder(w).Encode(recordsEnvelope{
				Records: []recordPayload{{ID: "rec1", Fields: Fields{}}},
				Offset:  "page2",
			})
		case "page2":
			json.NewEncoder(w).Encode(recordsEnvelope{
				Records: []recordPayload{{ID: "rec2", Fields: Fields{}}},
			})
		default:
			t.Errorf("unexpected offset %q", r.URL.Query().Get("offset"))
		}
	})

	records, err := table.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if requests != 2 {
		t.Errorf("server received %d requests, want 2", requests)
	}
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}
	if records[1].ID != "rec2" {
		t.Errorf("second record ID = %q, want %q", records[1].ID, "rec2")
	}
}

func TestListError(t *testing.T) {
	table := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"NOT_FOUND"}`, http.StatusNotFound)
	})

	_, err := table.List(context.Background())
	if err == nil {
		t.Fatal("List() error = nil, want error")
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("List() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusNotFound)
	}
}

func TestCreate(t *testing.T) {
	var gotMethod string
	var gotBody recordPayload

	table := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(recordPayload{ID: "recNew", Fields: gotBody.Fields})
	})

	created, err := table.Create(context.Background(), Fields{"ID": "post_1", "Views": 42})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("request method = %q, want POST", gotMethod)
	}
	if gotBody.Fields["ID"] != "post_1" {
		t.Errorf("sent ID field = %v, want %q", gotBody.Fields["ID"], "post_1")
	}
	if created.ID != "recNew" {
		t.Errorf("created record ID = %q, want %q", created.ID, "recNew")
	}
}

func TestUpdate(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody recordPayload

	table := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(recordPayload{ID: "rec1"})
	})

	err := table.Update(context.Background(), "rec1", Fields{"Views": 100})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if gotMethod != http.MethodPatch {
		t.Errorf("request method = %q, want PATCH", gotMethod)
	}
	if gotPath != "/appBase1/tblAccounts/rec1" {
		t.Errorf("request path = %q, want record path", gotPath)
	}
	if gotBody.Fields["Views"] != float64(100) {
		t.Errorf("sent Views field = %v, want 100", gotBody.Fields["Views"])
	}
}

func TestBatchCreateChunking(t *testing.T) {
	var chunkSizes []int
	table := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		var envelope recordsEnvelope
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		chunkSizes = append(chunkSizes, len(envelope.Records))
		json.NewEncoder(w).Encode(recordsEnvelope{})
	})

	records := make([]Fields, 23)
	for i := range records {
		records[i] = Fields{"Value": i}
	}

	if err := table.BatchCreate(context.Background(), records); err != nil {
		t.Fatalf("BatchCreate() error = %v", err)
	}

	want := []int{10, 10, 3}
	if len(chunkSizes) != len(want) {
		t.Fatalf("server received %d chunks, want %d", len(chunkSizes), len(want))
	}
	for i, size := range want {
		if chunkSizes[i] != size {
			t.Errorf("chunk %d size = %d, want %d", i, chunkSizes[i], size)
		}
	}
}

func TestBatchCreateEmpty(t *testing.T) {
	table := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be sent for an empty batch")
	})

	if err := table.BatchCreate(context.Background(), nil); err != nil {
		t.Fatalf("BatchCreate() error = %v", err)
	}
}

func TestBatchUpdateChunking(t *testing.T) {
	var gotMethods []string
	var gotIDs []string

	table := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethods = append(gotMethods, r.Method)
		var envelope recordsEnvelope
		if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		for _, rec := range envelope.Records {
			gotIDs = append(gotIDs, rec.ID)
		}
		json.NewEncoder(w).Encode(recordsEnvelope{})
	})

	updates := []UpdateRequest{
		{ID: "rec1", Fields: Fields{"Previous Views": 100}},
		{ID: "rec2", Fields: Fields{"Previous Views": 50}},
	}

	if err := table.BatchUpdate(context.Background(), updates); err != nil {
		t.Fatalf("BatchUpdate() error = %v", err)
	}
	if len(gotMethods) != 1 || gotMethods[0] != http.MethodPatch {
		t.Errorf("request methods = %v, want single PATCH", gotMethods)
	}
	if len(gotIDs) != 2 || gotIDs[0] != "rec1" || gotIDs[1] != "rec2" {
		t.Errorf("sent record IDs = %v, want [rec1 rec2]", gotIDs)
	}
}

func TestBatchCreateError(t *testing.T) {
	table := newTestTable(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"INVALID_REQUEST"}`, http.StatusUnprocessableEntity)
	})

	err := table.BatchCreate(context.Background(), []Fields{{"Value": 1}})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("BatchCreate() error = %v, want *StatusError", err)
	}
	if statusErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusUnprocessableEntity)
	}
}
