package security

import (
	"net/http"
	"time"
)

// GuardedClientFactory はSSRF防止機能付きのHTTPクライアントを生成するファクトリ。
// フェッチワーカープールへ差し込むことで、追跡リソースのフェッチが
// プライベートネットワークへ向かうのを防ぐ。
type GuardedClientFactory struct {
	guard       SSRFGuardService
	maxBodySize int64
}

// NewGuardedClientFactory はGuardedClientFactoryを生成する。
func NewGuardedClientFactory(guard SSRFGuardService, maxBodySize int64) *GuardedClientFactory {
	return &GuardedClientFactory{guard: guard, maxBodySize: maxBodySize}
}

// NewClient は指定タイムアウトのSSRF防止付きHTTPクライアントを返す。
func (f *GuardedClientFactory) NewClient(timeout time.Duration) *http.Client {
	return f.guard.NewSafeClient(timeout, f.maxBodySize)
}
