// Package model はドメインモデルを定義する。
package model

import "fmt"

// AppError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: format, validation, fetch, persistence, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeFormatError          = "FORMAT_ERROR"
	ErrCodeInvalidURL           = "INVALID_URL"
	ErrCodeUnknownProperty      = "UNKNOWN_PROPERTY"
	ErrCodeInvalidPropertyValue = "INVALID_PROPERTY_VALUE"
	ErrCodeResourceNotFound     = "RESOURCE_NOT_FOUND"
	ErrCodeSaveFailed           = "SAVE_FAILED"
	ErrCodeDiffUnavailable      = "DIFF_UNAVAILABLE"
	ErrCodeImportFailed         = "IMPORT_FAILED"
)

// NewFormatError はドキュメント形式エラーを生成する。
func NewFormatError(path string) *AppError {
	return &AppError{
		Code:     ErrCodeFormatError,
		Message:  fmt.Sprintf("ファイルを開けません。形式が正しくありません: %s", path),
		Category: "format",
		Action:   "拡張子 .dfc のドキュメントファイルを指定するか、新規ドキュメントを作成してください。",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(url string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("無効なURLです: %s", url),
		Category: "validation",
		Action:   "http / https / ftp / ftps で始まる正しいURL形式を入力してください。",
	}
}

// NewUnknownPropertyError は未知の属性変更エラーを生成する。
func NewUnknownPropertyError() *AppError {
	return &AppError{
		Code:     ErrCodeUnknownProperty,
		Message:  "未知の属性変更が指定されました。",
		Category: "validation",
		Action:   "url、favorite、timeout、diff_threshold のいずれかを指定してください。",
	}
}

// NewInvalidPropertyValueError は属性値の検証エラーを生成する。
func NewInvalidPropertyValueError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidPropertyValue,
		Message:  fmt.Sprintf("属性値が不正です: %s", reason),
		Category: "validation",
		Action:   "正の整数値を指定してください。",
	}
}

// NewResourceNotFoundError はリソース未検出エラーを生成する。
func NewResourceNotFoundError(id int64) *AppError {
	return &AppError{
		Code:     ErrCodeResourceNotFound,
		Message:  fmt.Sprintf("指定されたリソースが見つかりません: %d", id),
		Category: "validation",
		Action:   "リソースIDを確認してください。",
	}
}

// NewSaveFailedError は保存失敗エラーを生成する。
func NewSaveFailedError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeSaveFailed,
		Message:  fmt.Sprintf("ドキュメントの保存に失敗しました: %s", reason),
		Category: "persistence",
		Action:   "ディスク容量と書き込み権限を確認してください。元のファイルは保護されています。",
	}
}

// NewDiffUnavailableError は差分未計算エラーを生成する。
func NewDiffUnavailableError(id int64) *AppError {
	return &AppError{
		Code:     ErrCodeDiffUnavailable,
		Message:  fmt.Sprintf("差分を表示するにはリビジョンが2件必要です: %d", id),
		Category: "fetch",
		Action:   "リソースを2回以上フェッチしてから差分を表示してください。",
	}
}

// NewImportFailedError はフィードインポート失敗エラーを生成する。
func NewImportFailedError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeImportFailed,
		Message:  fmt.Sprintf("フィードからのインポートに失敗しました: %s", reason),
		Category: "fetch",
		Action:   "有効なRSS/AtomフィードのURLかどうか確認してください。",
	}
}
