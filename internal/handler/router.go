package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/metrics"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenResolver     middleware.TokenResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	AuthRateLimit     int           // 未認証エンドポイントのIPごとの上限（AuthRateWindowあたり）
	AuthRateWindow    time.Duration // 0の場合は1分
	Logger            *slog.Logger

	// 認証
	AuthService AuthServiceInterface

	// 収量推定
	PredictionService PredictionServiceInterface

	// 運用
	HealthChecker HealthChecker
	Metrics       metrics.MetricsCollector
	Gatherer      prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Logging → HTTPMetrics → Recovery → SecurityHeaders → CORS → StripSlashes
//
// 認証が必要なルートではさらに BearerAuth → RateLimit(General) を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	collector := deps.Metrics
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rateLimiter := deps.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewHTTPMetricsMiddleware(collector))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(chimw.StripSlashes)

	authHandler := NewAuthHandler(deps.AuthService, collector)
	predictionHandler := NewPredictionHandler(deps.PredictionService)
	userHandler := NewUserHandler()
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler.Health)
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Group(func(r chi.Router) {
		if deps.AuthRateLimit > 0 {
			window := deps.AuthRateWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(middleware.NewAuthRateLimitMiddleware(deps.AuthRateLimit, window))
		}

		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(deps.TokenResolver))
		r.Use(rateLimiter.GeneralMiddleware())

		// POST /predict - 推論を伴うため専用レート制限を追加
		r.With(rateLimiter.PredictMiddleware()).Post("/predict", predictionHandler.Predict)
		r.Get("/predictions", predictionHandler.ListPredictions)
		r.Get("/users/me", userHandler.Me)
	})

	return r
}
