package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/diffwatch/internal/metrics"
	"github.com/hitoshi/diffwatch/internal/middleware"
	"github.com/hitoshi/diffwatch/internal/security"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ストア
	ResourceStore ResourceStoreInterface
	DocumentStore DocumentStoreInterface

	// フィードインポート
	Importer FeedImporterInterface

	// 差分表示のサニタイズ
	Sanitizer security.ContentSanitizerService

	// ミドルウェア依存
	RateLimiter *middleware.RateLimiter
	Logger      *slog.Logger

	// /metrics の収集元
	Gatherer prometheus.Gatherer
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → RateLimit
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))

	resourceHandler := NewResourceHandler(deps.ResourceStore, deps.Sanitizer)
	documentHandler := NewDocumentHandler(deps.DocumentStore)
	importHandler := NewImportHandler(deps.Importer)

	// --- 運用エンドポイント（レート制限なし） ---

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- API（レート制限あり） ---

	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.Middleware())

		// リソース管理
		r.Route("/api/resources", func(r chi.Router) {
			r.Get("/", resourceHandler.ListResources)
			r.Post("/", resourceHandler.AddResource)

			// 選択に対する一括操作
			r.Post("/remove", resourceHandler.RemoveResources)
			r.Patch("/properties", resourceHandler.SetProperty)
			r.Post("/fetch", resourceHandler.Fetch)
			r.Post("/undo-fetch", resourceHandler.UndoFetch)
			r.Post("/mark-read", resourceHandler.MarkRead)
			r.Post("/import", importHandler.ImportFromFeed)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", resourceHandler.GetResource)
				r.Get("/diff", resourceHandler.Diff)
			})
		})

		// ドキュメント管理
		r.Route("/api/document", func(r chi.Router) {
			r.Get("/", documentHandler.Status)
			r.Post("/save", documentHandler.Save)
			r.Post("/save-as", documentHandler.SaveAs)
		})
	})

	return r
}
