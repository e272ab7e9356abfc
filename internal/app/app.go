package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/auth"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/config"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/database"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/handler"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/inference"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/logger"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/metrics"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/middleware"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/prediction"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/repository"
	"github.com/Patricia-Kubende/MaizeMate-Backend-New/internal/security"
)

// dbPingTimeout は起動時のDB疎通確認のタイムアウト。
const dbPingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルを反映する
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		slog.Warn("invalid LOG_LEVEL, using info", slog.String("log_level", cfg.LogLevel))
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// モデルを読み込み、DB接続を開き、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. 推論モデル（DB接続前に検証し、不正なアーティファクトでは起動しない）
	estimator, err := newEstimator(cfg)
	if err != nil {
		return err
	}

	// 2. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		return err
	}

	slog.Info("database connection established")

	// 3. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// 4. ルーターの構築
	router, cleanup, err := buildRouter(cfg, db, estimator, reg)
	if err != nil {
		return err
	}
	defer cleanup()

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildRouter はリポジトリ・サービス・ミドルウェアをワイヤリングしたHTTPハンドラーを返す。
// 戻り値のcleanupはサーバー停止後に呼び出す。
func buildRouter(
	cfg *config.Config,
	db *sql.DB,
	estimator inference.Estimator,
	reg *prometheus.Registry,
) (http.Handler, func(), error) {
	// 1. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	predictionRepo := repository.NewPostgresPredictionRepo(db)

	// 2. メトリクス
	collector := metrics.NewCollector(reg)

	// 3. ドメインサービスの初期化
	tokens, err := auth.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	authService, err := auth.NewService(
		accountRepo,
		auth.NewPasswordHasher(cfg.BcryptCost),
		tokens,
		auth.ServiceConfig{AccessTokenTTL: cfg.AccessTokenTTL},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	predictionService := prediction.NewService(
		predictionRepo,
		estimator,
		security.NewTextSanitizer(),
		collector,
	)

	// 4. ルーターの構築
	// configのレート制限はreq/min単位
	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitPredict),
	)

	router := handler.NewRouter(&handler.RouterDeps{
		TokenResolver:     authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		AuthRateLimit:     cfg.RateLimitAuth,
		AuthRateWindow:    time.Minute,
		Logger:            slog.Default(),

		AuthService:       authService,
		PredictionService: predictionService,

		HealthChecker: db,
		Metrics:       collector,
		Gatherer:      reg,
	})

	return router, rateLimiter.Stop, nil
}

// newEstimator は設定に応じた推論アダプタを生成する。
// MODEL_ENDPOINTが設定されている場合も、カテゴリ符号化はMODEL_PATHのアーティファクトに従う。
func newEstimator(cfg *config.Config) (inference.Estimator, error) {
	model, err := inference.LoadModel(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}

	if !cfg.UsesRemoteModel() {
		slog.Info("model loaded",
			slog.String("name", model.Name()),
			slog.String("version", model.Version()),
		)
		return model, nil
	}

	remote, err := inference.NewRemoteEstimator(inference.RemoteConfig{
		Endpoint:         cfg.ModelEndpoint,
		Timeout:          cfg.ModelTimeout,
		FailureThreshold: uint32(max(cfg.ModelFailureThreshold, 0)),
		OpenTimeout:      cfg.ModelOpenTimeout,
	}, model.Encoder())
	if err != nil {
		return nil, fmt.Errorf("failed to create remote estimator: %w", err)
	}

	slog.Info("using remote model server",
		slog.String("name", model.Name()),
		slog.String("version", model.Version()),
	)
	return remote, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
