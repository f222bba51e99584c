// Package model はドメインモデルを定義する。
package model

// LoginStatus はログインフローの結果区分を表す。
type LoginStatus string

const (
	// LoginStatusVerificationRequired はメールに送られた確認コードの入力待ち。
	LoginStatusVerificationRequired LoginStatus = "verification_required"
	// LoginStatusSuccess は認証済みエリアへの遷移を確認できた状態。
	LoginStatusSuccess LoginStatus = "success"
	// LoginStatusFailed は確認コード送信後も認証済みエリアに到達しなかった状態。
	LoginStatusFailed LoginStatus = "failed"
	// LoginStatusError は確認コード入力画面に到達できなかった状態。
	LoginStatusError LoginStatus = "error"
	// LoginStatusChallengeDetected はボット判定のチャレンジ画面が表示された状態。
	LoginStatusChallengeDetected LoginStatus = "challenge_detected"
)

// LoginRequest は POST /login のリクエストボディ。
// 1回目はemailのみ、2回目はemailと確認コードを送る。
type LoginRequest struct {
	Email            string `json:"email"`
	VerificationCode string `json:"verification_code,omitempty"`
}

// HasCode は確認コード付きの2回目の呼び出しかどうかを返す。
func (r LoginRequest) HasCode() bool {
	return r.VerificationCode != ""
}

// LoginResult はログインフローの結果。
type LoginResult struct {
	Status        LoginStatus `json:"status"`
	Message       string      `json:"message"`
	SessionActive bool        `json:"session_active"`
}

// ManualLoginResult は POST /login/manual のレスポンス。
type ManualLoginResult struct {
	Status       string   `json:"status"`
	Message      string   `json:"message"`
	Instructions []string `json:"instructions"`
}
