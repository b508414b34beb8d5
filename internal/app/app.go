// Package app はサブコマンドの解析と依存関係のワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/diffwatch/internal/config"
	"github.com/hitoshi/diffwatch/internal/document"
	"github.com/hitoshi/diffwatch/internal/handler"
	"github.com/hitoshi/diffwatch/internal/importer"
	"github.com/hitoshi/diffwatch/internal/logger"
	"github.com/hitoshi/diffwatch/internal/metrics"
	"github.com/hitoshi/diffwatch/internal/middleware"
	"github.com/hitoshi/diffwatch/internal/security"
	"github.com/hitoshi/diffwatch/internal/store"
	fetchpkg "github.com/hitoshi/diffwatch/internal/worker/fetch"
)

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
		slog.String("document_path", cfg.DocumentPath),
	)

	switch cmd {
	case CommandFetch:
		return runFetch(cfg)
	default:
		return runServe(cfg)
	}
}

// newClientFactory はフェッチ用のHTTPクライアントファクトリを返す。
// FETCH_SSRF_GUARDが有効な場合はSSRF防止付きクライアントを使う。
func newClientFactory(cfg *config.Config) fetchpkg.ClientFactory {
	if cfg.FetchSSRFGuard {
		return security.NewGuardedClientFactory(security.NewSSRFGuard(), cfg.FetchMaxSize)
	}
	return fetchpkg.PlainClientFactory{}
}

// runServe はAPIサーバーモードで起動する。
// ドキュメントを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. ドキュメントを開く
	doc, err := document.Open(cfg.DocumentPath, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	slog.Info("document opened", slog.Bool("in_memory", doc.InMemory()))

	// 2. メトリクスとフェッチプールの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	pool := fetchpkg.NewPool(
		cfg.FetchWorkers, cfg.FetchMaxSize,
		newClientFactory(cfg), collector, slog.Default(),
	)
	defer pool.Stop()

	// 3. ストアの構築
	st, err := store.New(context.Background(), doc, pool, nil, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}

	// 4. インポーターとルーターの構築
	imp := importer.New(st, nil, slog.Default())

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerMinute: cfg.RateLimitGeneral,
		CleanupInterval:   5 * time.Minute,
	})
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		ResourceStore: st,
		DocumentStore: st,
		Importer:      imp,
		Sanitizer:     security.NewContentSanitizer(),
		RateLimiter:   rateLimiter,
		Logger:        slog.Default(),
		Gatherer:      registry,
	})

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

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// waitingSubmitter はプールへの投入を包み、全完了を待てるようにするSubmitter。
// 一回限りのfetchサブコマンドで使用する。
type waitingSubmitter struct {
	pool *fetchpkg.Pool
	wg   sync.WaitGroup
}

func (s *waitingSubmitter) Submit(jobs []fetchpkg.Job, done func(fetchpkg.Result)) {
	s.wg.Add(len(jobs))
	s.pool.Submit(jobs, func(result fetchpkg.Result) {
		done(result)
		s.wg.Done()
	})
}

// Wait は投入済みの全ジョブの完了を待つ。
func (s *waitingSubmitter) Wait() {
	s.wg.Wait()
}

// runFetch は全リソースを1回フェッチして保存し、終了する。
// GUIのフェッチ操作をヘッドレスで実行する一回限りのモード。
func runFetch(cfg *config.Config) error {
	if cfg.DocumentPath == "" {
		return fmt.Errorf("fetch mode requires DOCUMENT_PATH")
	}

	doc, err := document.Open(cfg.DocumentPath, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}
	defer doc.Close()

	pool := fetchpkg.NewPool(
		cfg.FetchWorkers, cfg.FetchMaxSize,
		newClientFactory(cfg), fetchpkg.NopRecorder{}, slog.Default(),
	)
	defer pool.Stop()

	submitter := &waitingSubmitter{pool: pool}

	st, err := store.New(context.Background(), doc, submitter, nil, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to load store: %w", err)
	}

	// URLを持つ全リソースを選択してフェッチ
	var selection []int64
	for _, res := range st.List() {
		if res.URL != "" {
			selection = append(selection, res.ID)
		}
	}

	started := st.FetchSelected(selection)
	slog.Info("one-shot fetch started", slog.Int("jobs", started))

	submitter.Wait()

	if err := st.Save(context.Background()); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}

	slog.Info("one-shot fetch completed", slog.Int("jobs", started))
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
