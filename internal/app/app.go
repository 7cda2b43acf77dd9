package app

import (
	"context"
	"database/sql"
	"encoding/json"
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
	"github.com/spf13/cobra"

	"github.com/chabakapro/admin/internal/auth"
	"github.com/chabakapro/admin/internal/backend"
	"github.com/chabakapro/admin/internal/config"
	"github.com/chabakapro/admin/internal/dashboard"
	"github.com/chabakapro/admin/internal/database"
	"github.com/chabakapro/admin/internal/handler"
	"github.com/chabakapro/admin/internal/logger"
	"github.com/chabakapro/admin/internal/metrics"
	"github.com/chabakapro/admin/internal/middleware"
	"github.com/chabakapro/admin/internal/model"
	"github.com/chabakapro/admin/internal/repository"
	"github.com/chabakapro/admin/internal/security"
	"github.com/chabakapro/admin/internal/worker/cleanup"
)

// openViewsReportInterval は開いているビュー数のゲージを更新する間隔。
const openViewsReportInterval = 30 * time.Second

// runEnv はサブコマンドに渡す初期化済みの設定とロガー。
type runEnv struct {
	cfg    *config.Config
	logger *slog.Logger
}

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	logger.SetupDefault(w)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMで実行中のコマンドのcontextをキャンセルする。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// runWithConfig は設定を読み込んでからfnを実行する。
func runWithConfig(cmd *cobra.Command, w io.Writer, name string, fn func(ctx context.Context, env *runEnv) error) error {
	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	log := slog.Default()
	log.Info("starting application",
		slog.String("command", name),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("backend_url", cfg.BackendURL),
	)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return fn(ctx, &runEnv{cfg: cfg, logger: log})
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーと同一プロセス内のクリーンアップジョブを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, env *runEnv) error {
	cfg, log := env.cfg, env.logger

	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connection established")

	// 2. リポジトリ
	sessionRepo := repository.NewPostgresAdminSessionRepo(db)
	auditRepo := repository.NewPostgresAuditRepo(db)

	// 3. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 4. 認証ゲート
	gate := auth.NewGate(sessionRepo, cfg.AdminPasswordHash, cfg.SessionTTL, log)
	cookies := auth.NewCookieCodec([]byte(cfg.SessionSecret), auth.CookieConfig{
		Secure: cfg.CookieSecure,
		Domain: cfg.CookieDomain,
		MaxAge: cfg.SessionTTL,
	})

	// 5. バックエンドとダッシュボード
	httpClient, err := newBackendHTTPClient(cfg)
	if err != nil {
		return err
	}
	client := backend.NewClient(httpClient, cfg.BackendURL, backend.ClientConfig{
		MaxBodySize: cfg.BackendMaxBodySize,
		ReadRetries: cfg.BackendReadRetries,
	}, collector, log)
	dash := dashboard.NewService(
		newBackendFactory(client, collector, log, cfg),
		auditRepo,
		security.NewTextSanitizer(),
		log,
	)
	resolver := backend.NewResolver(cfg.ProductionHosts, cfg.BackendProductionURL, cfg.BackendURL)

	// 6. ルーター
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Gate:               gate,
		Cookies:            cookies,
		Dashboard:          dash,
		Resolver:           resolver,
		RateLimiter:        rateLimiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		Logger:         log,
		HealthChecker:  db,
		LoginRecorder:  collector,
		MetricsHandler: metrics.Handler(registry),
	})

	// 7. バックグラウンドジョブ
	jobCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()

	cleanupJob := newCleanupJob(cfg, sessionRepo, auditRepo, dash, log)
	go cleanupJob.Start(jobCtx, cfg.CleanupInterval)
	go reportOpenViews(jobCtx, dash, collector, openViewsReportInterval)

	// 8. HTTPサーバー
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// 全リソースの再取得を待つため、書き込みタイムアウトはバックエンドのタイムアウトより長くする
		WriteTimeout: 15*time.Second + 2*cfg.BackendTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down API server...")
	cancelJobs()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("API server stopped gracefully")
	return nil
}

// newBackendHTTPClient はバックエンド呼び出し用のHTTPクライアントを生成する。
// BACKEND_SAFE_CLIENTが有効な場合はベースURLを静的に検証し、
// プライベートアドレスへの接続を拒否するクライアントを返す。
func newBackendHTTPClient(cfg *config.Config) (*http.Client, error) {
	if !cfg.BackendSafeClient {
		return &http.Client{Timeout: cfg.BackendTimeout}, nil
	}

	guard := security.NewBackendGuard(false)
	baseURLs := []string{cfg.BackendURL}
	if cfg.BackendProductionURL != "" {
		baseURLs = append(baseURLs, cfg.BackendProductionURL)
	}
	for _, u := range baseURLs {
		if err := guard.ValidateBaseURL(u); err != nil {
			return nil, fmt.Errorf("invalid backend URL: %w", err)
		}
	}

	client, err := guard.NewSafeClient(baseURLs, cfg.BackendTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to build backend client: %w", err)
	}
	return client, nil
}

// newBackendFactory はベースURLごとのFetcherを生成する関数を返す。
// HTTPクライアントとメトリクスは全Fetcherで共有する。
func newBackendFactory(client *backend.Client, collector *metrics.Collector, log *slog.Logger, cfg *config.Config) dashboard.BackendFactory {
	return func(baseURL string) dashboard.Backend {
		return backend.NewFetcher(
			client.WithBaseURL(baseURL),
			collector,
			log,
			cfg.BackendMaxConcurrent,
			cfg.BackendTimeout,
		)
	}
}

func newCleanupJob(cfg *config.Config, sessions cleanup.SessionPurger, audit cleanup.AuditPurger, views cleanup.ViewEvictor, log *slog.Logger) *cleanup.CleanupJob {
	job := cleanup.NewCleanupJob(sessions, audit, views, log)
	job.SessionTTL = cfg.SessionTTL
	job.RetentionDays = cfg.AuditRetentionDays
	return job
}

// reportOpenViews は開いているビュー数を定期的にゲージへ反映する。
func reportOpenViews(ctx context.Context, dash *dashboard.Service, collector *metrics.Collector, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		collector.SetOpenViews(dash.OpenViews())
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runWorker はワーカーモードで起動する。
// サーバーとは別プロセスで動かす場合に使い、ビューの解放は行わない。
func runWorker(ctx context.Context, env *runEnv) error {
	cfg, log := env.cfg, env.logger

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connection established (worker)")

	job := newCleanupJob(cfg,
		repository.NewPostgresAdminSessionRepo(db),
		repository.NewPostgresAuditRepo(db),
		nil,
		log,
	)

	log.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
		slog.Int("audit_retention_days", cfg.AuditRetentionDays),
	)

	// ctxがキャンセルされるまでブロックする
	job.Start(ctx, cfg.CleanupInterval)

	log.Info("worker stopped gracefully")
	return nil
}

// runMigrateUp は未適用のマイグレーションを全て適用する。
func runMigrateUp(_ context.Context, env *runEnv) error {
	env.logger.Info("running database migrations",
		slog.String("database_url", redactDatabaseURL(env.cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(env.cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	env.logger.Info("database migrations completed successfully")
	return nil
}

// runMigrateDown は全てのマイグレーションを取り消す。
func runMigrateDown(_ context.Context, env *runEnv) error {
	env.logger.Warn("rolling back database migrations",
		slog.String("database_url", redactDatabaseURL(env.cfg.DatabaseURL)),
	)

	if err := database.RollbackMigrations(env.cfg.DatabaseURL); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	env.logger.Info("database migrations rolled back")
	return nil
}

// runMigrateVersion は適用済みのバージョンをoutに出力する。
func runMigrateVersion(_ context.Context, env *runEnv, out io.Writer) error {
	version, dirty, err := database.MigrationVersion(env.cfg.DatabaseURL)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
	return err
}

// auditLine はauditコマンドの1行分の出力。
type auditLine struct {
	CreatedAt time.Time `json:"createdAt"`
	SessionID string    `json:"sessionId"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	TargetID  string    `json:"targetId"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}

// auditLister は監査ログの取得元。
type auditLister interface {
	ListRecent(ctx context.Context, limit int) ([]*model.AuditEntry, error)
}

// runAudit は直近の監査エントリをJSON Linesで出力する。
func runAudit(ctx context.Context, env *runEnv, out io.Writer, limit int) error {
	db, err := openDatabase(ctx, env.cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return writeAuditLines(ctx, repository.NewPostgresAuditRepo(db), out, limit)
}

func writeAuditLines(ctx context.Context, lister auditLister, out io.Writer, limit int) error {
	entries, err := lister.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, e := range entries {
		if err := enc.Encode(auditLine{
			CreatedAt: e.CreatedAt,
			SessionID: shortSessionID(e.SessionID),
			Action:    string(e.Action),
			Resource:  string(e.Resource),
			TargetID:  e.TargetID,
			Success:   e.Success,
			Error:     e.ErrorMessage,
		}); err != nil {
			return err
		}
	}
	return nil
}

// shortSessionID はセッションIDの先頭8文字だけを返す。
func shortSessionID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "…"
}

// healthcheckBaseURL はSERVER_PORTからヘルスチェック先のURLを組み立てる。
func healthcheckBaseURL() string {
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	return "http://localhost:" + port
}

// runHealthcheck は baseURL + /health にリクエストを送り、200以外ならエラーを返す。
func runHealthcheck(ctx context.Context, baseURL string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// redactDatabaseURL はデータベースURLのパスワードを伏せる。
// 解析できない場合は全体を伏せる。
func redactDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
