package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// CookieSigner はセッションCookie値のHMAC-SHA256署名を提供する。
// セッションIDは不透明なランダムトークンだが、Cookieには
// "<id>.<署名>" の形式で渡し、改竄されたIDでのDB照会を防ぐ。
// 署名鍵はSESSION_SECRET環境変数から供給される。
type CookieSigner struct {
	secret []byte
}

// NewCookieSigner はCookieSignerを生成する。
func NewCookieSigner(secret string) *CookieSigner {
	return &CookieSigner{secret: []byte(secret)}
}

// Sign はvalueに署名を付与したCookie向け文字列を返す。
func (s *CookieSigner) Sign(value string) string {
	return value + "." + s.signature(value)
}

// Verify は署名付き文字列を検証し、元の値と検証結果を返す。
// 署名が一致しない場合や形式が不正な場合はfalseを返す。
// 比較は一定時間で行う。
func (s *CookieSigner) Verify(signed string) (string, bool) {
	i := strings.LastIndex(signed, ".")
	if i <= 0 || i == len(signed)-1 {
		return "", false
	}
	value, sig := signed[:i], signed[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.signature(value))) {
		return "", false
	}
	return value, true
}

// signature はvalueのHMAC-SHA256署名をbase64urlで返す。
func (s *CookieSigner) signature(value string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
