package store

// ストア側のテーブルで使うフィールド名。
// 外部スキーマとの契約であり、表記（スペース・大文字小文字）を変えてはならない。
const (
	// Accountsテーブル
	FieldUsername   = "Username"
	FieldBio        = "Bio"
	FieldPFP        = "PFP"
	FieldFollowers  = "Followers"
	FieldFollowing  = "Following"
	FieldMediaCount = "Media Count"
	FieldFullName   = "Full Name"
	FieldBioLink    = "Bio Link"
	FieldScraped    = "Scraped"
	FieldAPIError   = "API Error"
	FieldStatus     = "Status"

	// Contentテーブル
	FieldID            = "ID"
	FieldCaption       = "Caption"
	FieldAccount       = "Account"
	FieldLikeCount     = "Like Count"
	FieldMediaType     = "Media Type"
	FieldComments      = "Comments"
	FieldContent       = "Content"
	FieldThumbnail     = "Thumbnail"
	FieldViews         = "Views"
	FieldPreviousViews = "Previous Views"

	// 履歴テーブル共通
	FieldDate        = "Date"
	FieldDailyChange = "Daily Change"

	// ViewHistoryテーブル
	FieldContentID       = "Content ID"
	FieldViewCount       = "View Count"
	FieldPreviousDayView = "Previous Day Views"

	// FollowerHistoryテーブル
	FieldFollowerCount       = "Follower Count"
	FieldPreviousDayFollower = "Previous Day Followers"
)

// StatusActive は同期対象となるアカウントのステータス値。
const StatusActive = "Active"
