package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeConfigFile はテスト用の設定ファイルを一時ディレクトリに書き出す。
func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

const validYAML = `
provider:
  api_key: provider-key
  host: provider.example.com
store:
  api_key: store-key
  tenants:
    - name: alpha
      base_id: appAlpha
      accounts_table: tblAccounts
      content_table: tblContent
      view_history_table: tblViewHist
      follower_history_table: tblFollowerHist
rate_limits:
  requests_per_minute: 30
  delay_between_accounts: 3s
  delay_between_posts: 250ms
`

func TestLoadFile_ValidConfig(t *testing.T) {
	path := writeConfigFile(t, validYAML)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	if cfg.Provider.APIKey != "provider-key" {
		t.Errorf("Provider.APIKey = %q, want %q", cfg.Provider.APIKey, "provider-key")
	}
	if cfg.Provider.Host != "provider.example.com" {
		t.Errorf("Provider.Host = %q, want %q", cfg.Provider.Host, "provider.example.com")
	}
	if len(cfg.Store.Tenants) != 1 {
		t.Fatalf("len(Tenants) = %d, want 1", len(cfg.Store.Tenants))
	}
	tenant := cfg.Store.Tenants[0]
	if tenant.Name != "alpha" || tenant.BaseID != "appAlpha" {
		t.Errorf("unexpected tenant: %+v", tenant)
	}
	if cfg.RateLimits.AccountDelay != 3*time.Second {
		t.Errorf("AccountDelay = %v, want 3s", cfg.RateLimits.AccountDelay)
	}
	if cfg.RateLimits.PostDelay != 250*time.Millisecond {
		t.Errorf("PostDelay = %v, want 250ms", cfg.RateLimits.PostDelay)
	}
}

func TestLoadFile_AppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, validYAML)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	if cfg.Store.BaseURL != "https://api.airtable.com/v0" {
		t.Errorf("Store.BaseURL default = %q", cfg.Store.BaseURL)
	}
	if cfg.Store.BatchDelay != time.Second {
		t.Errorf("Store.BatchDelay default = %v, want 1s", cfg.Store.BatchDelay)
	}
	if cfg.Worker.Schedule != "@daily" {
		t.Errorf("Worker.Schedule default = %q, want @daily", cfg.Worker.Schedule)
	}
	if cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("Provider.Timeout default = %v, want 30s", cfg.Provider.Timeout)
	}
}

func TestLoadFile_MissingRequiredIsFatal(t *testing.T) {
	// プロバイダAPIキーとテナントが欠けた設定
	path := writeConfigFile(t, `
provider:
  host: provider.example.com
store:
  api_key: store-key
`)

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected error for missing required configuration, got nil")
	}
	if !strings.Contains(err.Error(), "required configuration") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestLoadFile_TenantMissingTableIsFatal(t *testing.T) {
	path := writeConfigFile(t, `
provider:
  api_key: provider-key
  host: provider.example.com
store:
  api_key: store-key
  tenants:
    - name: alpha
      base_id: appAlpha
      accounts_table: tblAccounts
rate_limits:
  requests_per_minute: 30
`)

	_, err := LoadFile(path)
	if err == nil {
		t.Fatal("expected error for tenant missing table IDs, got nil")
	}
}

func TestLoadFile_EnvOverridesFile(t *testing.T) {
	path := writeConfigFile(t, validYAML)
	t.Setenv("SCRAPER_STORE_API_KEY", "env-store-key")
	t.Setenv("SCRAPER_WORKER_SCHEDULE", "@hourly")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	if cfg.Store.APIKey != "env-store-key" {
		t.Errorf("Store.APIKey = %q, want env override", cfg.Store.APIKey)
	}
	if cfg.Worker.Schedule != "@hourly" {
		t.Errorf("Worker.Schedule = %q, want @hourly", cfg.Worker.Schedule)
	}
}

// TestLoadFile_EnvAliasesCompoundKeys はアンダースコア入りの設定キーが
// 環境変数から正しいkoanfキーに張り直されることを検証する。
func TestLoadFile_EnvAliasesCompoundKeys(t *testing.T) {
	path := writeConfigFile(t, validYAML)
	t.Setenv("SCRAPER_PROVIDER_MAX_BODY_SIZE", "1048576")
	t.Setenv("SCRAPER_STORE_BATCH_DELAY", "2s")
	t.Setenv("SCRAPER_RATE_LIMITS_DELAY_BETWEEN_ACCOUNTS", "10s")
	t.Setenv("SCRAPER_RATE_LIMITS_DELAY_BETWEEN_POSTS", "250ms")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile returned error: %v", err)
	}

	if cfg.Provider.MaxBodySize != 1048576 {
		t.Errorf("Provider.MaxBodySize = %d, want 1048576", cfg.Provider.MaxBodySize)
	}
	if cfg.Store.BatchDelay != 2*time.Second {
		t.Errorf("Store.BatchDelay = %v, want 2s", cfg.Store.BatchDelay)
	}
	if cfg.RateLimits.AccountDelay != 10*time.Second {
		t.Errorf("RateLimits.AccountDelay = %v, want 10s", cfg.RateLimits.AccountDelay)
	}
	if cfg.RateLimits.PostDelay != 250*time.Millisecond {
		t.Errorf("RateLimits.PostDelay = %v, want 250ms", cfg.RateLimits.PostDelay)
	}
}

func TestRequestDelay(t *testing.T) {
	tests := []struct {
		name string
		rpm  int
		want time.Duration
	}{
		{name: "60req/minで1秒間隔", rpm: 60, want: time.Second},
		{name: "30req/minで2秒間隔", rpm: 30, want: 2 * time.Second},
		{name: "120req/minで500ms間隔", rpm: 120, want: 500 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{RateLimits: RateLimitConfig{RequestsPerMinute: tt.rpm}}
			if got := cfg.RequestDelay(); got != tt.want {
				t.Errorf("RequestDelay() = %v, want %v", got, tt.want)
			}
		})
	}
}
