package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/diffwatch/internal/middleware"
	"github.com/hitoshi/diffwatch/internal/model"
)

// FeedImporterInterface はインポートハンドラーが必要とするインポーターのインターフェース。
type FeedImporterInterface interface {
	// ImportFromFeed はフィードの各記事リンクをリソースとして登録し、追加件数を返す。
	ImportFromFeed(ctx context.Context, feedURL string) (int, error)
}

// ImportHandler はフィードインポートのHTTPハンドラー。
type ImportHandler struct {
	importer FeedImporterInterface
}

// NewImportHandler はImportHandlerを生成する。
func NewImportHandler(importer FeedImporterInterface) *ImportHandler {
	return &ImportHandler{importer: importer}
}

// importRequest はインポートリクエストのボディ。
type importRequest struct {
	FeedURL string `json:"feed_url"`
}

// importResponse はインポート結果のレスポンス。
type importResponse struct {
	Added int `json:"added"`
}

// ImportFromFeed はRSS/Atomフィードの記事リンクをリソースとして一括登録する。
// POST /api/resources/import
func (h *ImportHandler) ImportFromFeed(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if req.FeedURL == "" {
		middleware.WriteAppError(w, model.NewInvalidURLError("フィードURLが空です"))
		return
	}

	added, err := h.importer.ImportFromFeed(r.Context(), req.FeedURL)
	if err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(importResponse{Added: added})
}
