package model

import (
	"errors"
	"fmt"
)

// ErrUnexpectedStatus はプロバイダが200以外のステータスを返したことを示す。
var ErrUnexpectedStatus = errors.New("unexpected http status")

// ErrDecode はプロバイダのレスポンスを解釈できなかったことを示す。
var ErrDecode = errors.New("failed to decode provider response")

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeRateLimited = "RATE_LIMIT_EXCEEDED"
	ErrCodeNotFound    = "NOT_FOUND"
)

// NewInternalError は内部エラーを生成する。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "指定された時間が経過してから再度お試しください。",
	}
}

// NewNotFoundError は未定義ルートへのアクセスエラーを生成する。
func NewNotFoundError(path string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定されたパスは存在しません: %s", path),
		Category: "validation",
		Action:   "URLを確認してください。",
	}
}

// StatusError はHTTPステータス付きのプロバイダエラーを生成する。
// errors.Is(err, ErrUnexpectedStatus) で判定できる。
func StatusError(provider string, statusCode int) error {
	return fmt.Errorf("%s: %w: %d", provider, ErrUnexpectedStatus, statusCode)
}
