package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/cafelist/internal/model"
)

func newTestCSRF() *CSRF {
	return NewCSRF(CSRFConfig{Signer: testSigner})
}

// csrfCookie は署名付きCSRFトークンCookieを生成するテストヘルパー。
func csrfCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:  csrfCookieName,
		Value: testSigner.Sign(token),
	}
}

// Cookieとヘッダーのトークンが一致すればPOSTが通ることを検証
func TestCSRFMiddleware_ValidTokenPair(t *testing.T) {
	handler := newTestCSRF().Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/cafes", nil)
	req.AddCookie(csrfCookie("token-123"))
	req.Header.Set("X-CSRF-Token", "token-123")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusCreated)
	}
}

// 検証に失敗する状態変更リクエストが403になることを検証
func TestCSRFMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		cookie *http.Cookie
		header string
	}{
		{
			name:   "Cookieなし",
			cookie: nil,
			header: "token-123",
		},
		{
			name: "署名のないCookie",
			cookie: &http.Cookie{
				Name:  csrfCookieName,
				Value: "token-123",
			},
			header: "token-123",
		},
		{
			name: "署名が改ざんされたCookie",
			cookie: &http.Cookie{
				Name:  csrfCookieName,
				Value: "token-123.forged-signature",
			},
			header: "token-123",
		},
		{
			name:   "ヘッダーなし",
			cookie: csrfCookie("token-123"),
			header: "",
		},
		{
			name:   "トークン不一致",
			cookie: csrfCookie("token-123"),
			header: "token-456",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestCSRF().Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodPost, "/cafes", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Result().StatusCode != http.StatusForbidden {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
			}
			apiErr := decodeAPIError(t, w)
			if apiErr.Code != model.ErrCodeCSRFToken {
				t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeCSRFToken)
			}
		})
	}
}

// 安全なメソッドは検証なしで通ることを検証
func TestCSRFMiddleware_SafeMethodsSkipValidation(t *testing.T) {
	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		t.Run(method, func(t *testing.T) {
			handlerCalled := false
			handler := newTestCSRF().Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(method, "/cafes", nil)
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if !handlerCalled {
				t.Errorf("%s without token should pass through", method)
			}
		})
	}
}

// トークン発行: 署名付きCookieとJSONボディの生トークンが対応することを検証
func TestCSRFTokenHandler_IssuesSignedToken(t *testing.T) {
	handler := newTestCSRF().TokenHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	token := body["token"]
	if token == "" {
		t.Fatal("response body must contain a token")
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == csrfCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("csrf_token cookie must be set")
	}
	if cookie.HttpOnly {
		t.Error("csrf_token cookie must be readable from JavaScript")
	}

	// Cookieの署名を外すとボディのトークンに戻ること
	verified, ok := testSigner.Verify(cookie.Value)
	if !ok {
		t.Fatal("cookie value must carry a valid signature")
	}
	if verified != token {
		t.Errorf("cookie token = %q, want %q", verified, token)
	}
}

// 有効なCookieが既にある場合は同じトークンを返すことを検証
func TestCSRFTokenHandler_ReusesExistingToken(t *testing.T) {
	handler := newTestCSRF().TokenHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(csrfCookie("existing-token"))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var body map[string]string
	if err := json.NewDecoder(w.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["token"] != "existing-token" {
		t.Errorf("token = %q, want %q", body["token"], "existing-token")
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("no new cookie should be set when a valid token already exists")
	}
}

// 発行されたトークンがミドルウェアの検証を通過することを検証
func TestCSRF_IssuedTokenPassesMiddleware(t *testing.T) {
	csrf := newTestCSRF()

	// 1. トークンを発行
	issueReq := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	issueW := httptest.NewRecorder()
	csrf.TokenHandler().ServeHTTP(issueW, issueReq)

	var body map[string]string
	if err := json.NewDecoder(issueW.Result().Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}

	// 2. 発行されたCookie + 生トークンでPOST
	handler := csrf.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	postReq := httptest.NewRequest(http.MethodPost, "/cafes", nil)
	for _, c := range issueW.Result().Cookies() {
		postReq.AddCookie(c)
	}
	postReq.Header.Set("X-CSRF-Token", body["token"])
	postW := httptest.NewRecorder()

	handler.ServeHTTP(postW, postReq)

	if postW.Result().StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", postW.Result().StatusCode, http.StatusOK)
	}
}
