// Package model はドメインモデルを定義する。
package model

// ProfileData はプロバイダから取得したアカウントプロフィールのスナップショット。
// provider層でデコード・検証済みの値のみが入る。
type ProfileData struct {
	ID             string `validate:"required"`
	Username       string `validate:"required"`
	Biography      string
	ProfilePicURL  string
	FollowerCount  int
	FollowingCount int
	MediaCount     int
	FullName       string
	ExternalURL    string
}

// ActiveAccount はストアから取得した同期対象アカウントの最小表現。
// RecordIDはストア側の不透明なレコードID、Usernameが自然キーとなる。
type ActiveAccount struct {
	RecordID  string
	Username  string
	Followers int
}
