package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// corsAllowedMethods はAPIが受け付ける全メソッド。
// ルーター定義（GET/POST/DELETE）より広いが、プリフライトの応答としては
// 許可リストを固定しておく方が単純で、実際の可否はルーティングが決める。
var corsAllowedMethods = strings.Join([]string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}, ", ")

// corsAllowedHeaders はフロントエンドが送信するヘッダー。
// CSRFトークンはX-CSRF-Tokenヘッダーで送られてくる。
var corsAllowedHeaders = strings.Join([]string{
	"Content-Type",
	"X-CSRF-Token",
}, ", ")

// corsMaxAge はプリフライト結果のキャッシュ期間。
const corsMaxAge = 24 * time.Hour

// NewCORSMiddleware は指定された単一オリジンに対するCORSミドルウェアを返す。
// セッションCookieを伴うリクエストを許可するため、
// Allow-Credentialsを有効にし、ワイルドカード(*)オリジンは使用しない。
// OPTIONSプリフライトリクエストには204で応答し、後続処理を行わない。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	maxAge := strconv.Itoa(int(corsMaxAge.Seconds()))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := w.Header()
			header.Set("Access-Control-Allow-Origin", allowedOrigin)
			header.Set("Access-Control-Allow-Methods", corsAllowedMethods)
			header.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
			header.Set("Access-Control-Allow-Credentials", "true")
			header.Set("Access-Control-Max-Age", maxAge)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
