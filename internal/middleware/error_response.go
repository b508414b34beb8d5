package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/diffwatch/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// すべてのAPIエンドポイントで一貫したエラーレスポンスを提供する。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, appErr *model.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     appErr.Code,
		Message:  appErr.Message,
		Category: appErr.Category,
		Action:   appErr.Action,
	})
}

// WriteAppError はエラーをAppErrorとして解釈し、エラーコードに応じた
// HTTPステータスで書き込む。AppErrorでない場合は500を返す。
func WriteAppError(w http.ResponseWriter, err error) {
	var appErr *model.AppError
	if !errors.As(err, &appErr) {
		WriteInternalServerError(w)
		return
	}
	WriteErrorResponse(w, StatusCodeFor(appErr), appErr)
}

// StatusCodeFor はAppErrorのエラーコードに対応するHTTPステータスコードを返す。
func StatusCodeFor(appErr *model.AppError) int {
	switch appErr.Code {
	case model.ErrCodeInvalidURL,
		model.ErrCodeUnknownProperty,
		model.ErrCodeInvalidPropertyValue,
		model.ErrCodeFormatError:
		return http.StatusBadRequest
	case model.ErrCodeResourceNotFound:
		return http.StatusNotFound
	case model.ErrCodeDiffUnavailable:
		return http.StatusConflict
	case model.ErrCodeImportFailed:
		return http.StatusBadGateway
	case model.ErrCodeSaveFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.AppError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}
