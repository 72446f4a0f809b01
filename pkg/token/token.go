package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

var ErrTokenMismatch = errors.New("token mismatch")

// Mint 일회용 assignment 토큰 생성 (32 hex chars, 128-bit)
// 플레이어가 자신의 매치에 join할 때 딱 한 번 사용하는 불투명 자격 증명.
func Mint() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to mint token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// MustMint Mint의 panic 버전 (crypto/rand 실패는 복구 불가)
func MustMint() string {
	tok, err := Mint()
	if err != nil {
		panic(err)
	}
	return tok
}

// Equal 상수 시간 토큰 비교
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// InternalCredential 서버 간 호출용 자격 증명.
// 클라이언트 토큰과는 별개이며 클라이언트가 접근하는 경로에는 절대 노출되지 않는다.
type InternalCredential struct {
	secret string
}

// NewInternalCredential 내부 자격 증명 생성
func NewInternalCredential() *InternalCredential {
	return &InternalCredential{secret: MustMint()}
}

// InternalCredentialFrom 설정값으로 내부 자격 증명 생성.
// 빈 값이면 프로세스 로컬 랜덤 시크릿이 되어 해당 표면은 사실상 잠긴다.
func InternalCredentialFrom(secret string) *InternalCredential {
	if secret == "" {
		return NewInternalCredential()
	}
	return &InternalCredential{secret: secret}
}

// Secret 내부 비밀값 반환
func (c *InternalCredential) Secret() string {
	return c.secret
}

// Verify 내부 자격 증명 검증
func (c *InternalCredential) Verify(secret string) error {
	if !Equal(c.secret, secret) {
		return ErrTokenMismatch
	}
	return nil
}
