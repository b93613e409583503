package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/cafelist/internal/metrics"
	"github.com/hitoshi/cafelist/internal/middleware"
	"github.com/hitoshi/cafelist/internal/security"
)

// DBPinger はヘルスチェックに必要なデータベース疎通確認のインターフェース。
// *sql.DB がこれを満たす。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	Signer            *security.CookieSigner
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// カフェ
	CafeService CafeServiceInterface

	// 可観測性
	Collector metrics.MetricsCollector
	Gatherer  prometheus.Gatherer
	DB        DBPinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序（全ルート共通）:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//
// 認証が必要なルートにはさらに Session → RateLimit(General) → CSRF を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	if deps.Collector != nil {
		r.Use(metrics.NewHTTPMiddleware(deps.Collector))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Signer, deps.Collector, deps.AuthConfig)
	cafeHandler := NewCafeHandler(deps.CafeService, deps.Collector)
	csrf := middleware.NewCSRF(deps.CSRFConfig)

	// --- 認証不要のルート ---

	r.Get("/", cafeHandler.ListAll)
	r.Get("/cafes", cafeHandler.ListGrouped)
	r.Post("/register", authHandler.Register)
	r.Post("/login", authHandler.Login)

	r.Get("/health", NewHealthHandler(deps.DB).ServeHTTP)
	if deps.Gatherer != nil {
		r.Get("/metrics", metrics.Handler(deps.Gatherer).ServeHTTP)
	}
	r.Get("/api/csrf-token", csrf.TokenHandler().ServeHTTP)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General) → CSRF
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder, deps.Signer))
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.GeneralMiddleware())
		}
		r.Use(csrf.Middleware())

		// カフェ登録（登録専用レート制限を追加）
		if deps.RateLimiter != nil {
			r.With(deps.RateLimiter.CafeRegistrationMiddleware()).Post("/cafes", cafeHandler.Create)
		} else {
			r.Post("/cafes", cafeHandler.Create)
		}

		r.Delete("/cafes/{id}", cafeHandler.Delete)

		// セッション管理
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	return r
}

// NewHealthHandler はDB疎通確認を含むヘルスチェックハンドラーを返す。
// GET /health
func NewHealthHandler(db DBPinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		statusCode := http.StatusOK

		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				slog.Error("healthcheck: database ping failed", slog.String("error", err.Error()))
				status = "unavailable"
				statusCode = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})
}
