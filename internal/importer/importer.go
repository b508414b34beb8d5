// Package importer はRSS/Atomフィードから追跡リソースを一括登録する。
package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/diffwatch/internal/model"
)

// defaultMaxBodySize はフィードレスポンスの最大サイズ（5MB）。
const defaultMaxBodySize = 5 * 1024 * 1024

// defaultTimeout はフィード取得のタイムアウト。
const defaultTimeout = 10 * time.Second

// ResourceAdder はインポーターがリソース登録に必要とするインターフェース。
// ストアが実装する。
type ResourceAdder interface {
	AddResource(selection []int64, url string) (*model.Resource, error)
}

// Importer はフィードを取得・パースし、各記事のリンクをリソースとして登録する。
type Importer struct {
	adder       ResourceAdder
	client      *http.Client
	logger      *slog.Logger
	maxBodySize int64
}

// New はImporterを生成する。clientがnilの場合はデフォルトタイムアウトのクライアントを使う。
func New(adder ResourceAdder, client *http.Client, logger *slog.Logger) *Importer {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Importer{
		adder:       adder,
		client:      client,
		logger:      logger,
		maxBodySize: defaultMaxBodySize,
	}
}

// ImportFromFeed はfeedURLのフィードを取得し、リンクを持つ各記事を
// リスト末尾へリソースとして追加する。追加した件数を返す。
// 無効なリンクを持つ記事はスキップし、残りの登録は継続する。
func (i *Importer) ImportFromFeed(ctx context.Context, feedURL string) (int, error) {
	if !model.IsValidURL(feedURL) {
		return 0, model.NewInvalidURLError(feedURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return 0, model.NewImportFailedError(err.Error())
	}

	resp, err := i.client.Do(req)
	if err != nil {
		i.logger.Error("フィードの取得に失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return 0, model.NewImportFailedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, model.NewImportFailedError(fmt.Sprintf("予期しないHTTPステータス: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBodySize))
	if err != nil {
		return 0, model.NewImportFailedError(fmt.Sprintf("レスポンス読み取り失敗: %s", err.Error()))
	}

	// gofeedでフィードをパース
	parser := gofeed.NewParser()
	parsedFeed, err := parser.ParseString(string(body))
	if err != nil {
		i.logger.Error("フィードのパースに失敗しました",
			slog.String("feed_url", feedURL),
			slog.String("error", err.Error()),
		)
		return 0, model.NewImportFailedError(err.Error())
	}

	added := 0
	for _, item := range parsedFeed.Items {
		if item.Link == "" {
			continue
		}
		if _, err := i.adder.AddResource(nil, item.Link); err != nil {
			// 無効なリンクはスキップして残りを登録する
			i.logger.Warn("記事リンクの登録をスキップしました",
				slog.String("link", item.Link),
				slog.String("error", err.Error()),
			)
			continue
		}
		added++
	}

	i.logger.Info("フィードからインポートしました",
		slog.String("feed_url", feedURL),
		slog.Int("items", len(parsedFeed.Items)),
		slog.Int("added", added),
	)
	return added, nil
}
