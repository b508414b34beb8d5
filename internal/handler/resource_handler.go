// Package handler は追跡エンジンをプレゼンテーション層へ公開するJSON APIを提供する。
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/diffwatch/internal/middleware"
	"github.com/hitoshi/diffwatch/internal/model"
	"github.com/hitoshi/diffwatch/internal/security"
)

// ResourceStoreInterface はリソースハンドラーが必要とするストアのインターフェース。
type ResourceStoreInterface interface {
	// List は全リソースを表示順で返す。
	List() []*model.Resource
	// Get は指定IDのリソースを返す。
	Get(id int64) (*model.Resource, error)
	// AddResource は新しいリソースを追加する。
	AddResource(selection []int64, url string) (*model.Resource, error)
	// RemoveResources は選択されたリソースを削除する。
	RemoveResources(selection []int64)
	// SetProperty は選択された全リソースへ属性変更を適用する。
	SetProperty(selection []int64, change model.PropertyChange) error
	// FetchSelected は選択されたリソースのフェッチを開始し、開始ジョブ数を返す。
	FetchSelected(selection []int64) int
	// UndoFetch は選択された各リソースの最新リビジョンを取り除く。
	UndoFetch(selection []int64)
	// MarkRead は選択された各リソースの未読フラグを下ろす。
	MarkRead(selection []int64)
	// Diff は最新2リビジョン間の差分テキストを返す。
	Diff(id int64) (string, error)
}

// ResourceHandler はリソース管理のHTTPハンドラー。
type ResourceHandler struct {
	store     ResourceStoreInterface
	sanitizer security.ContentSanitizerService
}

// NewResourceHandler はResourceHandlerを生成する。
func NewResourceHandler(store ResourceStoreInterface, sanitizer security.ContentSanitizerService) *ResourceHandler {
	return &ResourceHandler{
		store:     store,
		sanitizer: sanitizer,
	}
}

// selectionRequest は選択されたリソースIDのみを持つリクエストボディ。
type selectionRequest struct {
	Selection []int64 `json:"selection"`
}

// addResourceRequest はリソース追加リクエストのボディ。
type addResourceRequest struct {
	Selection []int64 `json:"selection"`
	URL       string  `json:"url"`
}

// setPropertyRequest は属性変更リクエストのボディ。
// 変更対象の属性フィールドをちょうど1つだけ設定する。
type setPropertyRequest struct {
	Selection     []int64 `json:"selection"`
	URL           *string `json:"url,omitempty"`
	Favorite      *bool   `json:"favorite,omitempty"`
	TimeoutSec    *int    `json:"timeout_sec,omitempty"`
	DiffThreshold *int    `json:"diff_threshold,omitempty"`
}

// resourceResponse はリソース情報のAPIレスポンス。
type resourceResponse struct {
	ID            int64     `json:"id"`
	Order         int       `json:"order"`
	URL           string    `json:"url"`
	IsFavorite    bool      `json:"is_favorite"`
	TimeoutSec    int       `json:"timeout_sec"`
	DiffThreshold int       `json:"diff_threshold"`
	IsUnread      bool      `json:"is_unread"`
	AddedAt       time.Time `json:"added_at"`
	LastFetch     string    `json:"last_fetch"`
	DiffLines     *int      `json:"diff_lines"`
	InProcess     bool      `json:"in_process"`
	Revisions     int       `json:"revisions"`
}

// ListResources はリソース一覧を表示順で返す。
// GET /api/resources
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	resources := h.store.List()

	out := make([]resourceResponse, len(resources))
	for i, res := range resources {
		out[i] = toResourceResponse(res)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

// GetResource はリソース詳細を返す。
// GET /api/resources/{id}
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourceID(w, r)
	if !ok {
		return
	}

	res, err := h.store.Get(id)
	if err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toResourceResponse(res))
}

// AddResource はリソースを追加する。
// POST /api/resources
func (h *ResourceHandler) AddResource(w http.ResponseWriter, r *http.Request) {
	var req addResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	res, err := h.store.AddResource(req.Selection, req.URL)
	if err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toResourceResponse(res))
}

// RemoveResources は選択されたリソースを削除する。
// POST /api/resources/remove
func (h *ResourceHandler) RemoveResources(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	h.store.RemoveResources(req.Selection)
	w.WriteHeader(http.StatusNoContent)
}

// SetProperty は選択された全リソースへ属性変更を適用する。
// PATCH /api/resources/properties
func (h *ResourceHandler) SetProperty(w http.ResponseWriter, r *http.Request) {
	var req setPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	change, err := toPropertyChange(&req)
	if err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	if err := h.store.SetProperty(req.Selection, change); err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// fetchResponse はフェッチ開始レスポンス。
type fetchResponse struct {
	Started int `json:"started"`
}

// Fetch は選択されたリソースのフェッチを開始する。
// 完了は待たず、開始したジョブ数を返す。
// POST /api/resources/fetch
func (h *ResourceHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	started := h.store.FetchSelected(req.Selection)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(fetchResponse{Started: started})
}

// UndoFetch は選択された各リソースの最新リビジョンを取り除く。
// POST /api/resources/undo-fetch
func (h *ResourceHandler) UndoFetch(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	h.store.UndoFetch(req.Selection)
	w.WriteHeader(http.StatusNoContent)
}

// MarkRead は選択された各リソースの未読フラグを下ろす。
// POST /api/resources/mark-read
func (h *ResourceHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequest(w)
		return
	}

	h.store.MarkRead(req.Selection)
	w.WriteHeader(http.StatusNoContent)
}

// diffResponse は差分テキストのレスポンス。
type diffResponse struct {
	Transcript string `json:"transcript"`
}

// Diff は最新2リビジョン間の差分テキストを返す。
// 表示用に出力はサニタイズされる。
// GET /api/resources/{id}/diff
func (h *ResourceHandler) Diff(w http.ResponseWriter, r *http.Request) {
	id, ok := parseResourceID(w, r)
	if !ok {
		return
	}

	transcript, err := h.store.Diff(id)
	if err != nil {
		middleware.WriteAppError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(diffResponse{
		Transcript: h.sanitizer.Sanitize(transcript),
	})
}

// --- ヘルパー関数 ---

// parseResourceID はURLパラメータからリソースIDを取り出す。
// 数値でない場合は404を書き込みfalseを返す。
func parseResourceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, &model.AppError{
			Code:     model.ErrCodeResourceNotFound,
			Message:  "リソースIDは数値で指定してください。",
			Category: "validation",
			Action:   "リソースIDを確認してください。",
		})
		return 0, false
	}
	return id, true
}

// toPropertyChange は属性変更リクエストを型付きバリアントへ変換する。
// 属性フィールドがちょうど1つ設定されていない場合はエラーを返す。
func toPropertyChange(req *setPropertyRequest) (model.PropertyChange, error) {
	var change model.PropertyChange
	count := 0

	if req.URL != nil {
		change = model.URLChange{URL: *req.URL}
		count++
	}
	if req.Favorite != nil {
		change = model.FavoriteChange{Favorite: *req.Favorite}
		count++
	}
	if req.TimeoutSec != nil {
		change = model.TimeoutChange{Seconds: *req.TimeoutSec}
		count++
	}
	if req.DiffThreshold != nil {
		change = model.DiffThresholdChange{Lines: *req.DiffThreshold}
		count++
	}

	if count != 1 {
		return nil, model.NewUnknownPropertyError()
	}
	return change, nil
}

// toResourceResponse はmodel.ResourceからAPIレスポンスに変換する。
func toResourceResponse(res *model.Resource) resourceResponse {
	return resourceResponse{
		ID:            res.ID,
		Order:         res.Order,
		URL:           res.URL,
		IsFavorite:    res.IsFavorite,
		TimeoutSec:    res.TimeoutSec,
		DiffThreshold: res.DiffThreshold,
		IsUnread:      res.IsUnread,
		AddedAt:       res.AddedAt,
		LastFetch:     string(res.LastFetch),
		DiffLines:     res.DiffLines,
		InProcess:     res.InProcess,
		Revisions:     len(res.Revisions),
	}
}

// writeInvalidRequest はJSONボディの解析失敗に対するレスポンスを書き込む。
func writeInvalidRequest(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.AppError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}
