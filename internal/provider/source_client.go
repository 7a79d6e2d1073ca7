// Package provider は外部データプロバイダAPIからの取得を提供する。
// プロバイダの失敗はドメインエラーではなく「データなし」として扱い、
// 呼び出し元へはゼロ値（nil / 空スライス）で伝える。
package provider

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"

	"github.com/AINomadD3v/model-scraper/internal/model"
)

const (
	profileEndpoint = "/v1/info"
	postsEndpoint   = "/v1/posts"

	handleQueryParam = "username_or_id_or_url"
)

// SourceClient はプロバイダAPIのクライアント。
// 取得失敗時にエラーを返さず、プロフィールはnil、コンテンツは空スライスを返す。
// レスポンスの検証に失敗した項目は警告ログを残して読み捨てる。
type SourceClient struct {
	http     *resty.Client
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSourceClient はプロバイダAPIクライアントの新しいインスタンスを生成する。
// maxBodySizeが正の場合、レスポンスボディをそのサイズまでに制限する。
func NewSourceClient(httpClient *http.Client, host, apiKey string, maxBodySize int64, logger *slog.Logger) *SourceClient {
	if maxBodySize > 0 {
		httpClient = withBodyLimit(httpClient, maxBodySize)
	}

	r := resty.NewWithClient(httpClient).
		SetBaseURL("https://" + host).
		SetHeader("x-rapidapi-key", apiKey).
		SetHeader("x-rapidapi-host", host)

	r.JSONMarshal = json.Marshal
	r.JSONUnmarshal = json.Unmarshal

	return &SourceClient{
		http:     r,
		validate: validator.New(),
		logger:   logger,
	}
}

// FetchProfile は指定ハンドルのプロフィールを取得する。
// 存在しないハンドル・APIエラー・不正なレスポンスはすべてnilを返す。
func (c *SourceClient) FetchProfile(ctx context.Context, handle string) *model.ProfileData {
	var envelope profileEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(handleQueryParam, handle).
		SetResult(&envelope).
		ForceContentType("application/json").
		Get(profileEndpoint)
	if err != nil {
		c.logger.Error("プロフィール取得のリクエストに失敗しました",
			slog.String("handle", handle),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if resp.IsError() {
		c.logger.Error("プロフィール取得がエラーステータスを返しました",
			slog.String("handle", handle),
			slog.Int("status", resp.StatusCode()),
		)
		return nil
	}
	if envelope.Data == nil {
		c.logger.Warn("プロフィールレスポンスにdataがありません",
			slog.String("handle", handle),
		)
		return nil
	}

	profile := envelope.Data.toModel()
	if err := c.validate.Struct(profile); err != nil {
		c.logger.Warn("プロフィールの検証に失敗しました",
			slog.String("handle", handle),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return profile
}

// FetchContentItems は指定ハンドルの最近のコンテンツ一覧を取得する。
// APIエラー・不正なレスポンスは空スライスを返す。検証に失敗した項目は除外する。
func (c *SourceClient) FetchContentItems(ctx context.Context, handle string) []model.ContentItem {
	var envelope postsEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam(handleQueryParam, handle).
		SetResult(&envelope).
		ForceContentType("application/json").
		Get(postsEndpoint)
	if err != nil {
		c.logger.Error("コンテンツ取得のリクエストに失敗しました",
			slog.String("handle", handle),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if resp.IsError() {
		c.logger.Error("コンテンツ取得がエラーステータスを返しました",
			slog.String("handle", handle),
			slog.Int("status", resp.StatusCode()),
		)
		return nil
	}

	items := make([]model.ContentItem, 0, len(envelope.Data.Items))
	for _, raw := range envelope.Data.Items {
		item := raw.toModel()
		if err := c.validate.Struct(item); err != nil {
			c.logger.Warn("コンテンツ項目の検証に失敗したため除外します",
				slog.String("handle", handle),
				slog.String("item_id", item.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		items = append(items, item)
	}
	return items
}

// profileEnvelope はプロフィールAPIのワイヤ上のレスポンス。
type profileEnvelope struct {
	Data *profilePayload `json:"data"`
}

type profilePayload struct {
	ID              flexString `json:"id"`
	Username        string     `json:"username"`
	Biography       string     `json:"biography"`
	ProfilePicURLHD string     `json:"profile_pic_url_hd"`
	ProfilePicURL   string     `json:"profile_pic_url"`
	FollowerCount   int        `json:"follower_count"`
	FollowingCount  int        `json:"following_count"`
	MediaCount      int        `json:"media_count"`
	FullName        string     `json:"full_name"`
	ExternalURL     string     `json:"external_url"`
}

func (p *profilePayload) toModel() *model.ProfileData {
	// 高解像度版を優先し、なければ通常版にフォールバックする
	picURL := p.ProfilePicURLHD
	if picURL == "" {
		picURL = p.ProfilePicURL
	}
	return &model.ProfileData{
		ID:             string(p.ID),
		Username:       p.Username,
		Biography:      p.Biography,
		ProfilePicURL:  picURL,
		FollowerCount:  p.FollowerCount,
		FollowingCount: p.FollowingCount,
		MediaCount:     p.MediaCount,
		FullName:       p.FullName,
		ExternalURL:    p.ExternalURL,
	}
}

// postsEnvelope はコンテンツ一覧APIのワイヤ上のレスポンス。
type postsEnvelope struct {
	Data struct {
		Items []postPayload `json:"items"`
	} `json:"data"`
}

type postPayload struct {
	ID           flexString   `json:"id"`
	Caption      captionField `json:"caption"`
	LikeCount    int          `json:"like_count"`
	CommentCount int          `json:"comment_count"`
	MediaType    int          `json:"media_type"`
	VideoURL     string       `json:"video_url"`
	ThumbnailURL string       `json:"thumbnail_url"`
	ViewCount    int          `json:"view_count"`
	PlayCount    int          `json:"play_count"`
	IGPlayCount  int          `json:"ig_play_count"`

	ImageVersions struct {
		Candidates []struct {
			URL string `json:"url"`
		} `json:"candidates"`
	} `json:"image_versions2"`
}

// rawMediaTypeVideo はプロバイダの動画コンテンツを示すメディアタイプ値。
const rawMediaTypeVideo = 2

func (p *postPayload) toModel() model.ContentItem {
	mediaType := model.MediaTypeImage
	if p.MediaType == rawMediaTypeVideo {
		mediaType = model.MediaTypeReel
	}

	// 再生数はフィールドが世代交代しているため順にフォールバックする
	views := p.PlayCount
	if views == 0 {
		views = p.IGPlayCount
	}
	if views == 0 {
		views = p.ViewCount
	}

	thumbnail := p.ThumbnailURL
	if thumbnail == "" && len(p.ImageVersions.Candidates) > 0 {
		thumbnail = p.ImageVersions.Candidates[0].URL
	}

	return model.ContentItem{
		ID:           string(p.ID),
		Caption:      string(p.Caption),
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		MediaType:    mediaType,
		VideoURL:     p.VideoURL,
		ThumbnailURL: thumbnail,
		ViewCount:    views,
	}
}
