// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/cafelist/internal/metrics"
	"github.com/hitoshi/cafelist/internal/middleware"
	"github.com/hitoshi/cafelist/internal/model"
	"github.com/hitoshi/cafelist/internal/security"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, email, password string) (*model.User, *model.Session, error)
	Login(ctx context.Context, email, password string) (*model.User, *model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はユーザー登録・ログイン関連のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	signer    *security.CookieSigner
	collector metrics.MetricsCollector
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, signer *security.CookieSigner, collector metrics.MetricsCollector, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:   service,
		signer:    signer,
		collector: collector,
		config:    config,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	IsAdmin   bool   `json:"is_admin"`
}

// Register は新規ユーザー登録を処理する。
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	user, session, err := h.service.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordUserRegistered()
	}

	h.setSessionCookie(w, session.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Login はログインを処理する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	user, session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if h.collector != nil {
			h.collector.RecordLoginFailure()
		}
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordLoginSuccess()
	}

	h.setSessionCookie(w, session.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// Logout はセッションを破棄する。
// POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// セッションCookieの取得と署名検証
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if sessionID, ok := h.signer.Verify(cookie.Value); ok {
			// セッションをDBから削除
			if logoutErr := h.service.Logout(r.Context(), sessionID); logoutErr != nil {
				slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
				// ログアウト失敗してもCookieはクリアする
			}
		}
	}

	h.clearSessionCookie(w)

	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	sessionID, ok := h.signer.Verify(cookie.Value)
	if !ok {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	user, err := h.service.CurrentUser(r.Context(), sessionID)
	if err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			handleServiceError(w, err)
			return
		}
		slog.Error("failed to get current user", slog.String("error", err.Error()))
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toUserResponse(user))
}

// setSessionCookie は署名付きセッションCookieを設定する（HTTP Only）。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    h.signer.Sign(sessionID),
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie はセッションCookieを削除する。
func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// toUserResponse はmodel.UserからAPIレスポンスに変換する。
func toUserResponse(user *model.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		AvatarURL: user.AvatarURL(),
		IsAdmin:   user.IsAdmin(),
	}
}
