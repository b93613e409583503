package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/cafelist/internal/model"
)

// NewAdminMiddleware は管理者のみにアクセスを許可するミドルウェアを返す。
// 管理者はID 1のユーザーに固定されている。
// セッションミドルウェアの後に配置する必要がある。
// 非管理者には403 Forbiddenを返す。
func NewAdminMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			if userID != model.AdminUserID {
				slog.Warn("admin access denied",
					slog.Int64("user_id", userID),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
