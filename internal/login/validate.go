package login

import (
	"errors"
	"net/mail"
	"strings"
)

// VerificationCodeLength は確認コードの桁数。
const VerificationCodeLength = 6

// Validate はLoginRequestの入力値を検証する。
// メールアドレスは表示名なしの単一アドレスで、確認コードは指定時のみ6桁の数字であること。
func Validate(email, code string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return errors.New("email is not a valid address")
	}

	if code == "" {
		return nil
	}
	if len(code) != VerificationCodeLength {
		return errors.New("verification_code must be 6 digits")
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return errors.New("verification_code must be 6 digits")
		}
	}
	return nil
}
