package model

import "time"

// AttemptKind は監査ログに記録するフローの種類。
type AttemptKind string

const (
	// AttemptKindLogin はログインフロー。
	AttemptKindLogin AttemptKind = "login"
	// AttemptKindAuthorize はOAuth認可フロー。
	AttemptKindAuthorize AttemptKind = "authorize"
)

// AttemptRecord はフロー実行結果の監査レコード。
// 認可コードや確認コードは含めない。
type AttemptRecord struct {
	ID        string      `json:"id"`
	Kind      AttemptKind `json:"kind"`
	Outcome   string      `json:"outcome"`
	Strategy  string      `json:"strategy,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
