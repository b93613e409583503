package middleware

import "net/http"

// securityHeaders は全レスポンスに付与する固定ヘッダー。
// JSON APIのため、スニッフィング抑止とフレーム埋め込み禁止を基本とする。
var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "camera=(), microphone=(), geolocation=()"},
}

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, h := range securityHeaders {
				w.Header().Set(h[0], h[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}
