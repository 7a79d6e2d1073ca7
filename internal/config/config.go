// Package config はアプリケーション設定の読み込みを提供する。
// デフォルト値 → YAMLファイル → 環境変数の3層でkoanfに読み込み、
// 起動時に1回検証してイミュータブルとして扱う。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix は環境変数オーバーライドのプレフィックス。
// 例: SCRAPER_STORE_API_KEY → store.api_key
const EnvPrefix = "SCRAPER_"

// ConfigPathEnvVar は設定ファイルパスを上書きする環境変数。
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfigPaths は設定ファイルの探索パス（優先順）。
var defaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/model-scraper/config.yaml",
}

// Config はアプリケーション全体の設定を保持する。
type Config struct {
	Provider   ProviderConfig  `koanf:"provider"`
	Store      StoreConfig     `koanf:"store"`
	RateLimits RateLimitConfig `koanf:"rate_limits"`
	Worker     WorkerConfig    `koanf:"worker"`
}

// ProviderConfig は外部データプロバイダAPIの接続設定。
type ProviderConfig struct {
	// APIKey はプロバイダAPIの認証キー。環境変数からの注入を想定する。
	APIKey string `koanf:"api_key" validate:"required"`
	// Host はプロバイダAPIのホスト名。
	Host string `koanf:"host" validate:"required"`
	// Timeout は1リクエストのタイムアウト。
	Timeout time.Duration `koanf:"timeout"`
	// MaxBodySize はレスポンスボディの最大サイズ（バイト）。
	MaxBodySize int64 `koanf:"max_body_size"`
}

// StoreConfig はタブラーストアAPIの接続設定とテナント一覧。
type StoreConfig struct {
	APIKey  string        `koanf:"api_key" validate:"required"`
	BaseURL string        `koanf:"base_url" validate:"required"`
	Timeout time.Duration `koanf:"timeout"`
	// BatchDelay はバッチ書き込みのチャンク間に挟む遅延。
	BatchDelay time.Duration `koanf:"batch_delay"`
	// Tenants は同期対象テナント（ベース）の一覧。最低1件必要。
	Tenants []TenantConfig `koanf:"tenants" validate:"required,min=1,dive"`
}

// TenantConfig は1テナント分のベースIDとテーブルIDの束。
type TenantConfig struct {
	Name                 string `koanf:"name" validate:"required"`
	BaseID               string `koanf:"base_id" validate:"required"`
	AccountsTable        string `koanf:"accounts_table" validate:"required"`
	ContentTable         string `koanf:"content_table" validate:"required"`
	ViewHistoryTable     string `koanf:"view_history_table" validate:"required"`
	FollowerHistoryTable string `koanf:"follower_history_table" validate:"required"`
}

// RateLimitConfig はプロバイダとストアのレート制限設定。
type RateLimitConfig struct {
	// RequestsPerMinute はプロバイダAPIの毎分リクエスト上限。
	// リクエスト間隔は 60 / RequestsPerMinute 秒となる。
	RequestsPerMinute int `koanf:"requests_per_minute" validate:"required,gt=0"`
	// AccountDelay はアカウント間に挟む遅延。
	AccountDelay time.Duration `koanf:"delay_between_accounts"`
	// PostDelay はコンテンツ間に挟む遅延。
	PostDelay time.Duration `koanf:"delay_between_posts"`
}

// WorkerConfig はワーカーモードの設定。
type WorkerConfig struct {
	// Schedule はcron式またはディスクリプタ（@daily等）。
	Schedule string `koanf:"schedule"`
	// OpsPort はヘルスチェック/メトリクス用HTTPサーバーのポート。
	OpsPort string `koanf:"ops_port"`
}

// RequestDelay はプロバイダAPIへの連続リクエストの最小間隔を返す。
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(float64(time.Minute) / float64(c.RateLimits.RequestsPerMinute))
}

// defaultConfig は全デフォルト値を返す。設定ファイルと環境変数で上書きされる。
func defaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Timeout:     30 * time.Second,
			MaxBodySize: 5 * 1024 * 1024,
		},
		Store: StoreConfig{
			BaseURL:    "https://api.airtable.com/v0",
			Timeout:    30 * time.Second,
			BatchDelay: time.Second,
		},
		RateLimits: RateLimitConfig{
			RequestsPerMinute: 60,
			AccountDelay:      5 * time.Second,
			PostDelay:         500 * time.Millisecond,
		},
		Worker: WorkerConfig{
			Schedule: "@daily",
			OpsPort:  "8080",
		},
	}
}

// Load は設定を読み込んで検証する。
// 必須項目の欠落は致命的エラーであり、呼び出し元はランを開始せず終了する。
func Load() (*Config, error) {
	return load(resolveConfigPath())
}

// LoadFile は指定パスの設定ファイルから読み込む。テストおよび--configフラグ用。
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// 環境変数レイヤー: SCRAPER_STORE_API_KEY → store.api_key
	// テナント一覧のような構造化項目はファイル側でのみ指定できる。
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	// 環境変数のキー区切りが曖昧になる複合キーを個別に張り直す
	// (SCRAPER_STORE_API_KEY は store.api.key と解釈されてしまう)。
	remapEnvAliases(k)

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// envAliases は環境変数名とkoanfキーの対応が機械変換できない項目の一覧。
var envAliases = map[string]string{
	"SCRAPER_PROVIDER_API_KEY":                   "provider.api_key",
	"SCRAPER_PROVIDER_MAX_BODY_SIZE":             "provider.max_body_size",
	"SCRAPER_STORE_API_KEY":                      "store.api_key",
	"SCRAPER_STORE_BASE_URL":                     "store.base_url",
	"SCRAPER_STORE_BATCH_DELAY":                  "store.batch_delay",
	"SCRAPER_RATE_LIMITS_REQUESTS_PER_MINUTE":    "rate_limits.requests_per_minute",
	"SCRAPER_RATE_LIMITS_DELAY_BETWEEN_ACCOUNTS": "rate_limits.delay_between_accounts",
	"SCRAPER_RATE_LIMITS_DELAY_BETWEEN_POSTS":    "rate_limits.delay_between_posts",
	"SCRAPER_WORKER_OPS_PORT":                    "worker.ops_port",
}

func remapEnvAliases(k *koanf.Koanf) {
	for envKey, koanfKey := range envAliases {
		if v := os.Getenv(envKey); v != "" {
			_ = k.Set(koanfKey, v)
		}
	}
}

// resolveConfigPath は設定ファイルのパスを決定する。
// CONFIG_PATHが指定されていればそれを、なければ探索パスの先頭の存在するものを返す。
// 見つからない場合は空文字を返し、デフォルト+環境変数のみで動作する。
func resolveConfigPath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range defaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// validate は必須項目と値域を検証する。
func validate(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			var missing []string
			for _, fe := range errs {
				missing = append(missing, fe.Namespace())
			}
			return fmt.Errorf("required configuration is missing or invalid: %v", missing)
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}
