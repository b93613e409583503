package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/cafelist/internal/model"
	"github.com/hitoshi/cafelist/internal/security"
)

const (
	// csrfCookieName はCSRFトークンを保持するCookieの名前。
	// フロントエンドからJavaScriptで読み取れるよう、HttpOnlyではない。
	csrfCookieName = "csrf_token"

	// csrfHeaderName は状態変更リクエストでトークンを運ぶヘッダー名。
	csrfHeaderName = "X-CSRF-Token"

	// csrfCookieMaxAge はCSRFトークンCookieの有効期間（24時間）。
	csrfCookieMaxAge = 86400
)

// CSRFConfig はCSRF保護の設定。
// SignerはセッションCookieと同じ署名鍵を共有する。Cookie側には
// 署名付きトークンを格納し、ヘッダー側の生トークンと突き合わせることで、
// Cookieを書き込めるだけの攻撃者が有効なペアを偽造できないようにする。
type CSRFConfig struct {
	Signer       *security.CookieSigner
	CookieSecure bool
	CookieDomain string
}

// CSRF はダブルサブミットCookie方式のCSRF保護を提供する。
type CSRF struct {
	config CSRFConfig
}

// NewCSRF はCSRF保護を生成する。
func NewCSRF(config CSRFConfig) *CSRF {
	return &CSRF{config: config}
}

// Middleware は状態変更メソッド（POST, PUT, PATCH, DELETE）に対して
// CSRFトークンの検証を行うミドルウェアを返す。
// Cookieの署名を検証して得たトークンとX-CSRF-Tokenヘッダーの値が
// 一致しない場合は403を返す。安全なメソッド（GET, HEAD, OPTIONS）は
// 検証をスキップする。
func (c *CSRF) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := c.tokenFromCookie(r)
			if !ok {
				c.reject(w, r, "missing or tampered cookie token")
				return
			}

			headerToken := r.Header.Get(csrfHeaderName)
			if headerToken == "" {
				c.reject(w, r, "missing header token")
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(headerToken)) != 1 {
				c.reject(w, r, "token mismatch")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// TokenHandler はCSRFトークン取得エンドポイントのハンドラーを返す。
// GET /api/csrf-token
// 有効な署名付きCookieが既にある場合はそのトークンを返し、
// なければ新規生成して署名付きCookieを設定する。
func (c *CSRF) TokenHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := c.tokenFromCookie(r)
		if !ok {
			var err error
			token, err = generateCSRFToken()
			if err != nil {
				slog.Error("failed to generate CSRF token", slog.String("error", err.Error()))
				WriteInternalServerError(w)
				return
			}
			c.setTokenCookie(w, token)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"token": token,
		})
	})
}

// tokenFromCookie はCSRF Cookieの署名を検証し、トークンを取り出す。
func (c *CSRF) tokenFromCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return c.config.Signer.Verify(cookie.Value)
}

// setTokenCookie は署名付きCSRFトークンCookieを設定する。
func (c *CSRF) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    c.config.Signer.Sign(token),
		Path:     "/",
		Domain:   c.config.CookieDomain,
		MaxAge:   csrfCookieMaxAge,
		HttpOnly: false, // フロントエンドから読み取り可能
		Secure:   c.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// reject は検証失敗をログに残し、403レスポンスを書き込む。
func (c *CSRF) reject(w http.ResponseWriter, r *http.Request, reason string) {
	slog.Warn("CSRF validation failed",
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
	WriteErrorResponse(w, http.StatusForbidden, model.NewCSRFTokenError())
}

// isSafeMethod はHTTPメソッドが安全（読み取り専用）かどうかを判定する。
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// generateCSRFToken は暗号的に安全なCSRFトークンを生成する。
func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
