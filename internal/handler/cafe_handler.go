package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/cafelist/internal/cafe"
	"github.com/hitoshi/cafelist/internal/metrics"
	"github.com/hitoshi/cafelist/internal/middleware"
	"github.com/hitoshi/cafelist/internal/model"
)

// CafeServiceInterface はカフェハンドラーが必要とするサービスインターフェース。
type CafeServiceInterface interface {
	// Create は新しいカフェを登録する。
	Create(ctx context.Context, input cafe.CreateInput) (*model.Cafe, error)
	// Delete は指定IDのカフェを削除する。
	Delete(ctx context.Context, id int64) error
	// ListAll は全カフェをID昇順で返す。
	ListAll(ctx context.Context) ([]*model.Cafe, error)
	// ListForDisplay はランク付けした一覧をグループ分割して返す。
	ListForDisplay(ctx context.Context) ([][]*model.Cafe, error)
}

// CafeHandler はカフェ掲載のHTTPハンドラー。
type CafeHandler struct {
	service   CafeServiceInterface
	collector metrics.MetricsCollector
}

// NewCafeHandler はCafeHandlerを生成する。
func NewCafeHandler(service CafeServiceInterface, collector metrics.MetricsCollector) *CafeHandler {
	return &CafeHandler{
		service:   service,
		collector: collector,
	}
}

// createCafeRequest はカフェ登録リクエストのボディ。
type createCafeRequest struct {
	Name         string `json:"name"`
	MapURL       string `json:"map_url"`
	ImgURL       string `json:"img_url"`
	Location     string `json:"location"`
	Seats        string `json:"seats"`
	HasSockets   bool   `json:"has_sockets"`
	HasToilet    bool   `json:"has_toilet"`
	HasWifi      bool   `json:"has_wifi"`
	CanTakeCalls bool   `json:"can_take_calls"`
	CoffeePrice  string `json:"coffee_price"`
}

// cafeResponse はカフェ情報のAPIレスポンス。
type cafeResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	MapURL       string `json:"map_url"`
	ImgURL       string `json:"img_url"`
	Location     string `json:"location"`
	Seats        string `json:"seats"`
	HasSockets   bool   `json:"has_sockets"`
	HasToilet    bool   `json:"has_toilet"`
	HasWifi      bool   `json:"has_wifi"`
	CanTakeCalls bool   `json:"can_take_calls"`
	CoffeePrice  string `json:"coffee_price"`
	Ranking      int    `json:"ranking"`
}

// ListAll は全カフェをID昇順で返す。
// GET /
func (h *CafeHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	cafes, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]cafeResponse, len(cafes))
	for i, c := range cafes {
		results[i] = toCafeResponse(c)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"cafes": results,
	})
}

// ListGrouped はランク付けしたカフェ一覧を3件ずつのグループで返す。
// GET /cafes
func (h *CafeHandler) ListGrouped(w http.ResponseWriter, r *http.Request) {
	pages, err := h.service.ListForDisplay(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	groups := make([][]cafeResponse, len(pages))
	for i, page := range pages {
		group := make([]cafeResponse, len(page))
		for j, c := range page {
			group[j] = toCafeResponse(c)
		}
		groups[i] = group
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"groups": groups,
	})
}

// Create はカフェ登録を処理する。
// POST /cafes
func (h *CafeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createCafeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	created, err := h.service.Create(r.Context(), cafe.CreateInput{
		Name:         req.Name,
		MapURL:       req.MapURL,
		ImgURL:       req.ImgURL,
		Location:     req.Location,
		Seats:        req.Seats,
		HasSockets:   req.HasSockets,
		HasToilet:    req.HasToilet,
		HasWifi:      req.HasWifi,
		CanTakeCalls: req.CanTakeCalls,
		CoffeePrice:  req.CoffeePrice,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordCafeCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCafeResponse(created))
}

// Delete はカフェ削除を処理する。
// DELETE /cafes/{id}
func (h *CafeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("カフェIDは数値で指定してください"))
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}

	if h.collector != nil {
		h.collector.RecordCafeDeleted()
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toCafeResponse はmodel.CafeからAPIレスポンスに変換する。
func toCafeResponse(c *model.Cafe) cafeResponse {
	return cafeResponse{
		ID:           c.ID,
		Name:         c.Name,
		MapURL:       c.MapURL,
		ImgURL:       c.ImgURL,
		Location:     c.Location,
		Seats:        c.Seats,
		HasSockets:   c.HasSockets,
		HasToilet:    c.HasToilet,
		HasWifi:      c.HasWifi,
		CanTakeCalls: c.CanTakeCalls,
		CoffeePrice:  c.CoffeePrice,
		Ranking:      c.Ranking,
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeDuplicateEmail, model.ErrCodeDuplicateName:
		return http.StatusConflict
	case model.ErrCodeUnknownEmail, model.ErrCodeBadPassword, model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeCafeNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
