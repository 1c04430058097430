package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/newsdeck/internal/auth"
	"github.com/hitoshi/newsdeck/internal/config"
	"github.com/hitoshi/newsdeck/internal/database"
	"github.com/hitoshi/newsdeck/internal/gateway"
	"github.com/hitoshi/newsdeck/internal/handler"
	"github.com/hitoshi/newsdeck/internal/home"
	"github.com/hitoshi/newsdeck/internal/logger"
	"github.com/hitoshi/newsdeck/internal/metrics"
	"github.com/hitoshi/newsdeck/internal/middleware"
	"github.com/hitoshi/newsdeck/internal/repository"
	"github.com/hitoshi/newsdeck/internal/security"
	"github.com/hitoshi/newsdeck/internal/worker/cleanup"
	"github.com/hitoshi/newsdeck/internal/worker/statsrefresh"
)

const (
	// cleanupInterval はクライアントストレージ削除ジョブの実行間隔。
	cleanupInterval = 24 * time.Hour

	// evictionInterval はアイドルWorkspaceの破棄を確認する間隔。
	evictionInterval = time.Minute

	shutdownTimeout = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから環境変数を読み込み、ログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("unknown LOG_LEVEL, falling back to info", slog.String("log_level", cfg.LogLevel))
	}
	logger.SetLevel(level)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

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
		slog.String("backend_api_url", cfg.BackendAPIURL),
	)

	// SIGINTまたはSIGTERMでコンテキストをキャンセルする
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// server はserveモードで組み立てた依存関係一式。
type server struct {
	handler     http.Handler
	registry    *home.Registry
	refresher   *statsrefresh.Refresher
	rateLimiter *middleware.RateLimiter
	cleanupJob  *cleanup.CleanupJob
}

// newServer は設定とストレージから全依存関係をワイヤリングする。
// dbがnilの場合はヘルスチェックでDB疎通を確認しない。
func newServer(cfg *config.Config, repo repository.ClientStorageRepository, db *sql.DB) *server {
	log := slog.Default()

	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. バックエンドゲートウェイ（キャッシュと同一リクエストの集約は全クライアントで共有）
	client := gateway.NewClient(&http.Client{}, cfg.BackendAPIURL, gateway.Options{
		Timeout:   cfg.RequestTimeout,
		StaleTime: cfg.StaleTime,
		CacheSize: cfg.CacheSize,
	}, log, collector)

	// 3. 共有の集計値スナップショット（匿名で取得）
	refresher := statsrefresh.NewRefresher(client.Bind(nil), log)

	// 4. クライアントごとのWorkspace
	registry := home.NewRegistry(repo, home.Deps{
		Client:    client,
		Stats:     refresher,
		Sanitizer: security.NewArticleSanitizer(),
		Validator: auth.NewValidator(),
		Metrics:   collector,
		Logger:    log,
	}, home.Options{
		SyncDelay:      cfg.URLSyncDebounce,
		MaxAutoAdvance: cfg.MaxAutoAdvance,
		NoticeTTL:      cfg.NoticeTTL,
		MaxWorkspaces:  cfg.MaxWorkspaces,
	}, cfg.ClientIdleTimeout)

	// 5. ルーター
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralPerMinute:  cfg.RateLimitGeneral,
		MutationPerMinute: cfg.RateLimitMutation,
		IPPerMinute:       cfg.RateLimitPerIP,
	})

	deps := &handler.RouterDeps{
		Workspaces:        handler.NewRegistryAdapter(registry),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Cookies: middleware.CookieConfig{
			Secure: cfg.CookieSecure,
			Domain: cfg.CookieDomain,
		},
		RateLimiter:    rateLimiter,
		Logger:         log,
		MetricsHandler: metrics.Handler(reg),
	}
	if db != nil {
		deps.HealthChecker = db
	}

	s := &server{
		handler:     handler.NewRouter(deps),
		registry:    registry,
		refresher:   refresher,
		rateLimiter: rateLimiter,
	}

	// メモリストレージはworkerプロセスから見えないため、serve内で期限切れを削除する
	if db == nil {
		s.cleanupJob = cleanup.NewCleanupJob(repo, cfg.StorageRetentionDays, log)
	}
	return s
}

// start はバックグラウンドジョブを起動する。ctxのキャンセルで停止する。
func (s *server) start(ctx context.Context, cfg *config.Config) {
	go s.refresher.Start(ctx, cfg.StatsRefreshInterval)
	go s.registry.StartEviction(ctx, evictionInterval)
	if s.cleanupJob != nil {
		go s.cleanupJob.Start(ctx, cleanupInterval)
	}
}

// close は保留中のURL変更を反映し、レート制限のクリーンアップを止める。
func (s *server) close() {
	s.registry.Close()
	s.rateLimiter.Stop()
}

// runServe はAPIサーバーモードで起動する。
// DATABASE_URLが設定されていればPostgreSQL、なければメモリをクライアントストレージに使う。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. クライアントストレージ
	var (
		repo repository.ClientStorageRepository
		db   *sql.DB
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		repo = repository.NewPostgresClientStorageRepo(db)
		slog.Info("database connection established")
	} else {
		repo = repository.NewMemoryClientStorageRepo()
		slog.Warn("DATABASE_URL is not set, client storage is kept in memory")
	}

	// 2. 依存関係のワイヤリングとバックグラウンドジョブ
	s := newServer(cfg, repo, db)
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	s.start(jobCtx, cfg)

	// 3. HTTPサーバーの起動
	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.close()
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	cancelJobs()
	s.close()

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 保持期間を超えたクライアントストレージを日次で削除する。
// ctxがキャンセルされるとシャットダウンする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("worker requires DATABASE_URL")
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	job := cleanup.NewCleanupJob(repository.NewPostgresClientStorageRepo(db), cfg.StorageRetentionDays, slog.Default())

	slog.Info("worker starting",
		slog.Int("retention_days", job.RetentionDays),
		slog.Duration("interval", cleanupInterval),
	)

	// 起動直後に1回実行し、以降は日次（ブロッキング）
	job.Start(ctx, cleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return errors.New("migrate requires DATABASE_URL")
	}

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
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
