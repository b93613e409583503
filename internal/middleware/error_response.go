package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/cafelist/internal/model"
)

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// ボディはmodel.APIErrorをそのままJSONエンコードしたもの。
// ミドルウェアとハンドラーの両方がこの1箇所を通ることで、
// すべてのエンドポイントのエラーボディ形状を揃える。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		slog.Error("failed to encode error response", slog.String("error", err.Error()))
	}
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 呼び出し側が原因をログに記録済みであることを前提とし、
// ボディには一般的なメッセージのみを含める。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}
