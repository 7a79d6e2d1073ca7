package model

// MediaType はコンテンツの2値分類を表す。
type MediaType string

const (
	// MediaTypeReel は動画コンテンツ。
	MediaTypeReel MediaType = "Reel"
	// MediaTypeImage は画像コンテンツ。
	MediaTypeImage MediaType = "Image"
)

// ContentItem はプロバイダから取得したコンテンツ1件のスナップショット。
// IDがプロバイダ採番の自然キーであり、ストア側のレコードIDとは別物。
// AccountRecordIDは同期処理がアップサート前に付与する。
type ContentItem struct {
	ID              string `validate:"required"`
	Caption         string
	AccountRecordID string
	LikeCount       int
	CommentCount    int
	MediaType       MediaType `validate:"required,oneof=Reel Image"`
	VideoURL        string
	ThumbnailURL    string
	ViewCount       int
}
