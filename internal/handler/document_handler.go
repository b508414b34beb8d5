package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/diffwatch/internal/middleware"
	"github.com/hitoshi/diffwatch/internal/model"
)

// DocumentStoreInterface はドキュメントハンドラーが必要とするストアのインターフェース。
type DocumentStoreInterface interface {
	// Dirty は未保存の変更があるかどうかを返す。
	Dirty() bool
	// Path は現在のドキュメントパスを返す。インメモリの場合は空文字列。
	Path() string
	// Save は全状態をドキュメントへフラッシュする。
	Save(ctx context.Context) error
	// SaveAs は全状態を別名で保存し、セッションを新パスへ切り替える。
	SaveAs(ctx context.Context, newPath string) error
}

// DocumentHandler はドキュメント保存操作のHTTPハンドラー。
type DocumentHandler struct {
	store DocumentStoreInterface
}

// NewDocumentHandler はDocumentHandlerを生成する。
func NewDocumentHandler(store DocumentStoreInterface) *DocumentHandler {
	return &DocumentHandler{store: store}
}

// documentStatusResponse はドキュメント状態のレスポンス。
type documentStatusResponse struct {
	Path  string `json:"path"`
	Dirty bool   `json:"dirty"`
}

// saveAsRequest は別名保存リクエストのボディ。
type saveAsRequest struct {
	Path string `json:"path"`
}

// Status は現在のドキュメントパスと未保存状態を返す。
// GET /api/document
func (h *DocumentHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documentStatusResponse{
		Path:  h.store.Path(),
		Dirty: h.store.Dirty(),
	})
}

// Save は全状態を現在のドキュメントへ保存する。
// POST /api/document/save
func (h *DocumentHandler) Save(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Save(r.Context()); err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documentStatusResponse{
		Path:  h.store.Path(),
		Dirty: h.store.Dirty(),
	})
}

// SaveAs は全状態を別名で保存し、セッションを新パスへ切り替える。
// POST /api/document/save-as
func (h *DocumentHandler) SaveAs(w http.ResponseWriter, r *http.Request) {
	var req saveAsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	if req.Path == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.AppError{
			Code:     "INVALID_REQUEST",
			Message:  "保存先パスが空です。",
			Category: "validation",
			Action:   "拡張子 .dfc の保存先パスを指定してください。",
		})
		return
	}

	if err := h.store.SaveAs(r.Context(), req.Path); err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(documentStatusResponse{
		Path:  h.store.Path(),
		Dirty: h.store.Dirty(),
	})
}
