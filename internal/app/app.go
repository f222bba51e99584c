// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
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

	"github.com/hitoshi/oauthrelay/internal/browser"
	"github.com/hitoshi/oauthrelay/internal/config"
	"github.com/hitoshi/oauthrelay/internal/database"
	"github.com/hitoshi/oauthrelay/internal/handler"
	"github.com/hitoshi/oauthrelay/internal/logger"
	"github.com/hitoshi/oauthrelay/internal/login"
	"github.com/hitoshi/oauthrelay/internal/metrics"
	"github.com/hitoshi/oauthrelay/internal/middleware"
	"github.com/hitoshi/oauthrelay/internal/oauth"
	"github.com/hitoshi/oauthrelay/internal/repository"
	"github.com/hitoshi/oauthrelay/internal/security"
	"github.com/hitoshi/oauthrelay/internal/status"
	"github.com/hitoshi/oauthrelay/internal/worker/cleanup"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	// フローは複数の待機を含むため、書き込みタイムアウトは長めに取る
	serverWriteTimeout = 3 * time.Minute
	shutdownTimeout    = 30 * time.Second
	cleanupInterval    = 24 * time.Hour
	probeTimeout       = 10 * time.Second
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. .env の値を含めたLOG_LEVELを反映する
	logger.SetLevel(cfg.LogLevel)

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
			port = "8000"
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
		slog.String("mode", cfg.Mode()),
		slog.Bool("stealth", cfg.Stealth),
		slog.Bool("audit_enabled", cfg.AuditEnabled()),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// ブラウザセッションと（設定されていれば）監査ログDBを開き、全依存関係をワイヤリングしてHTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行い、最後にブラウザを終了する。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := slog.Default()

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. 監査ログ（任意）
	var (
		attempts repository.AttemptRepository
		lister   handler.AttemptListerInterface
	)
	if cfg.AuditEnabled() {
		db, err := openAuditDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		repo := repository.NewPostgresAttemptRepo(db)
		attempts = repo
		lister = repo

		job := cleanup.NewCleanupJob(repo, log, collector)
		if cfg.AuditRetentionDays > 0 {
			job.RetentionDays = cfg.AuditRetentionDays
		}
		go job.Start(ctx, cleanupInterval)
	} else {
		log.Info("audit log disabled (DATABASE_URL is not set)")
	}

	// 3. ブラウザセッション
	session, err := browser.Start(browser.Options{
		Headless:       cfg.Headless,
		Stealth:        cfg.Stealth,
		InstallDriver:  cfg.InstallBrowser,
		ViewportWidth:  cfg.ViewportWidth,
		ViewportHeight: cfg.ViewportHeight,
		UserAgent:      cfg.UserAgent,
		DefaultTimeout: cfg.BrowserTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Error("failed to close browser session", slog.String("error", err.Error()))
			return
		}
		log.Info("browser session closed")
	}()

	// 4. フロー
	human := browser.NewHumanizer(cfg.Stealth)
	loginFlow := login.NewFlow(session, login.Config{
		LoginURL:                cfg.LoginURL,
		AuthenticatedPaths:      cfg.AuthenticatedPaths,
		VerificationWaitTimeout: cfg.VerificationWaitTimeout,
		SettleDelay:             cfg.LoginSettleDelay,
		ManualAvailable:         !cfg.Headless,
	}, human, attempts, collector, log)
	oauthFlow := oauth.NewFlow(session, oauth.Config{
		SettleDelay: cfg.AuthorizeSettleDelay,
	}, human, attempts, collector, log)

	// 5. 状態確認
	guard := security.NewSSRFGuard()
	reporter := status.NewReporter(session, cfg.AuthenticatedPaths, cfg.Mode())
	prober, err := status.NewProber(guard.NewSafeClient(probeTimeout), cfg.LoginURL, log)
	if err != nil {
		return fmt.Errorf("failed to create upstream prober: %w", err)
	}
	log.Info("upstream probe configured", slog.String("target", prober.Target()))

	// 6. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(middleware.PerMinuteConfig(cfg.RateLimitGeneral, cfg.RateLimitFlow))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		APIKey:            cfg.APIKey,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            log,
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(registry),
		Mode:              cfg.Mode(),
		LoginService:      loginFlow,
		DefaultEmail:      cfg.DefaultEmail,
		AuthorizeService:  oauthFlow,
		URLGuard:          guard,
		StatusReporter:    reporter,
		UpstreamProber:    prober,
		AttemptLister:     lister,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      serverWriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	}
	log.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// openAuditDB は監査ログ用のDB接続を開き、疎通を確認する。
func openAuditDB(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(databaseURL)),
	)
	return db, nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	if !cfg.AuditEnabled() {
		return errors.New("DATABASE_URL is required for migrate")
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
// GET / にHTTPリクエストを送り、200以外はエラーとする。
func runHealthcheck(port string) error {
	target := fmt.Sprintf("http://localhost:%s/", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(target)
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
