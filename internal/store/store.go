// Package store は追跡リソースの集合と、フェッチ・差分・永続化の編成を提供する。
// ストアはインメモリ状態の唯一の所有者であり、すべての変更を単一のミューテックスで直列化する。
package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/diffwatch/internal/content"
	"github.com/hitoshi/diffwatch/internal/diff"
	"github.com/hitoshi/diffwatch/internal/document"
	"github.com/hitoshi/diffwatch/internal/model"
	"github.com/hitoshi/diffwatch/internal/worker/fetch"
)

// Notifier はリソースリストの変更通知を受け取るインターフェース。
// 通知はストアのミューテックスを保持したまま呼ばれるため、
// 実装はストアのメソッドを呼び返してはならない。
type Notifier interface {
	ResourceInserted(id int64)
	ResourceUpdated(id int64)
	ResourceRemoved(id int64)
}

// NopNotifier は何も通知しないNotifier。
type NopNotifier struct{}

func (NopNotifier) ResourceInserted(int64) {}
func (NopNotifier) ResourceUpdated(int64)  {}
func (NopNotifier) ResourceRemoved(int64)  {}

// Submitter はフェッチジョブの投入インターフェース。
type Submitter interface {
	Submit(jobs []fetch.Job, done func(fetch.Result))
}

// Store は1つのドキュメントに属する全リソースを所有する追跡エンジン。
type Store struct {
	mu             sync.Mutex
	resources      []*model.Resource
	nextResourceID int64
	nextRevisionID int64
	dirty          bool

	doc      *document.Document
	pool     Submitter
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// New はドキュメントから状態を読み込んでストアを生成する。
func New(ctx context.Context, doc *document.Document, pool Submitter, notifier Notifier, logger *slog.Logger) (*Store, error) {
	resources, err := doc.Load(ctx)
	if err != nil {
		return nil, err
	}

	if notifier == nil {
		notifier = NopNotifier{}
	}

	s := &Store{
		resources:      resources,
		nextResourceID: 1,
		nextRevisionID: 1,
		doc:            doc,
		pool:           pool,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
	}

	for _, res := range s.resources {
		if res.ID >= s.nextResourceID {
			s.nextResourceID = res.ID + 1
		}
		for _, rev := range res.Revisions {
			if rev.ID >= s.nextRevisionID {
				s.nextRevisionID = rev.ID + 1
			}
		}
	}

	return s, nil
}

// Dirty は最後の保存以降に未保存の変更があるかどうかを返す。
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Path は現在のドキュメントパスを返す。インメモリの場合は空文字列。
func (s *Store) Path() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Path()
}

// List は全リソースを表示順で返す。返り値は呼び出し時点のコピー。
func (s *Store) List() []*model.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Resource, len(s.resources))
	for i, res := range s.resources {
		out[i] = cloneResource(res)
	}
	return out
}

// Get は指定IDのリソースのコピーを返す。
func (s *Store) Get(id int64) (*model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.findByID(id)
	if res == nil {
		return nil, model.NewResourceNotFoundError(id)
	}
	return cloneResource(res), nil
}

// AddResource は新しいリソースを追加する。
// 選択がある場合は選択中の最後のリソースの直後へ挿入し、後続の表示順を繰り下げる。
// 選択がない場合はリスト末尾へ追加する。
// urlが空の場合は未設定のプレースホルダとして追加する。
// urlが不正な場合は状態を一切変更せずエラーを返す。
func (s *Store) AddResource(selection []int64, url string) (*model.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if url != "" && !model.IsValidURL(url) {
		return nil, model.NewInvalidURLError(url)
	}

	order := len(s.resources)
	if last := s.lastSelected(selection); last != nil {
		order = last.Order + 1
	}

	for _, res := range s.resources {
		if res.Order >= order {
			res.Order++
		}
	}

	res := model.NewResource(s.nextResourceID, order, url, s.now())
	s.nextResourceID++
	s.resources = append(s.resources, res)
	s.sortByOrder()

	s.dirty = true
	s.notifier.ResourceInserted(res.ID)

	s.logger.Info("リソースを追加しました",
		slog.Int64("resource_id", res.ID),
		slog.String("url", url),
		slog.Int("order", order),
	)
	return cloneResource(res), nil
}

// RemoveResources は選択されたリソースを削除し、表示順の隙間を詰める。
// リビジョンはリソースと共に破棄される。
func (s *Store) RemoveResources(selection []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected := idSet(selection)
	kept := s.resources[:0]
	var removed []int64
	for _, res := range s.resources {
		if selected[res.ID] {
			removed = append(removed, res.ID)
			continue
		}
		kept = append(kept, res)
	}
	if len(removed) == 0 {
		return
	}
	s.resources = kept

	// 削除後も表示順は0始まりの連続を保つ
	for i, res := range s.resources {
		res.Order = i
	}

	s.dirty = true
	for _, id := range removed {
		s.notifier.ResourceRemoved(id)
	}

	s.logger.Info("リソースを削除しました", slog.Int("count", len(removed)))
}

// SetProperty は選択された全リソースへ属性変更を適用する。
// 検証は適用前に行い、不正な値の場合は一切適用せずエラーを返す。
func (s *Store) SetProperty(selection []int64, change model.PropertyChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateChange(change); err != nil {
		return err
	}

	targets := make([]*model.Resource, 0, len(selection))
	for _, id := range selection {
		res := s.findByID(id)
		if res == nil {
			return model.NewResourceNotFoundError(id)
		}
		targets = append(targets, res)
	}

	for _, res := range targets {
		applyChange(res, change)
		s.notifier.ResourceUpdated(res.ID)
	}
	if len(targets) > 0 {
		s.dirty = true
	}
	return nil
}

// validateChange は属性変更の値を検証する。
func validateChange(change model.PropertyChange) error {
	switch v := change.(type) {
	case model.URLChange:
		// 空文字列は「未設定のプレースホルダー」への戻しとして許容する
		if v.URL != "" && !model.IsValidURL(v.URL) {
			return model.NewInvalidURLError(v.URL)
		}
	case model.FavoriteChange:
	case model.TimeoutChange:
		if v.Seconds <= 0 {
			return model.NewInvalidPropertyValueError("タイムアウトは正の秒数が必要です")
		}
	case model.DiffThresholdChange:
		if v.Lines <= 0 {
			return model.NewInvalidPropertyValueError("変更行数の閾値は正の整数が必要です")
		}
	default:
		return model.NewUnknownPropertyError()
	}
	return nil
}

func applyChange(res *model.Resource, change model.PropertyChange) {
	switch v := change.(type) {
	case model.URLChange:
		res.URL = v.URL
	case model.FavoriteChange:
		res.IsFavorite = v.Favorite
	case model.TimeoutChange:
		res.TimeoutSec = v.Seconds
	case model.DiffThresholdChange:
		res.DiffThreshold = v.Lines
	}
}

// FetchSelected は選択されたリソースのフェッチを開始する。
// URLが空のリソースは対象外。投入は完了を待たずに戻り、
// 完了はワーカーから任意の順序で届く。
// 開始したジョブ数を返す。
func (s *Store) FetchSelected(selection []int64) int {
	s.mu.Lock()

	batchID := uuid.NewString()
	var jobs []fetch.Job
	for _, id := range selection {
		res := s.findByID(id)
		if res == nil || res.URL == "" {
			continue
		}
		res.InProcess = true
		s.notifier.ResourceUpdated(res.ID)
		jobs = append(jobs, fetch.Job{
			ID:      res.ID,
			URL:     res.URL,
			Timeout: time.Duration(res.TimeoutSec) * time.Second,
		})
	}
	s.mu.Unlock()

	if len(jobs) == 0 {
		return 0
	}

	s.logger.Info("フェッチバッチを開始しました",
		slog.String("batch_id", batchID),
		slog.Int("jobs", len(jobs)),
	)

	s.pool.Submit(jobs, func(result fetch.Result) {
		s.applyFetchResult(batchID, result)
	})
	return len(jobs)
}

// applyFetchResult は1件のフェッチ完了をストアへ反映する。
// ミューテックスで直列化され、常に現在のストア状態を対象とする。
// 完了までにリソースが削除されていた場合は何もしない。
func (s *Store) applyFetchResult(batchID string, result fetch.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.findByID(result.JobID)
	if res == nil {
		s.logger.Info("削除済みリソースのフェッチ完了を破棄しました",
			slog.String("batch_id", batchID),
			slog.Int64("resource_id", result.JobID),
		)
		return
	}

	res.InProcess = false

	if result.OK {
		rev := &model.Revision{
			ID:         s.nextRevisionID,
			ResourceID: res.ID,
			FetchedAt:  s.now(),
			Content:    result.Content,
		}
		s.nextRevisionID++
		res.Record(rev)
		res.LastFetch = model.FetchOutcomeSuccess
		recomputeMagnitude(res)

		if res.DiffLines != nil && *res.DiffLines >= res.DiffThreshold {
			res.IsUnread = true
		}
	} else {
		res.LastFetch = model.FetchOutcomeFailure
	}

	// 成否にかかわらず未保存の変更になる
	s.dirty = true
	s.notifier.ResourceUpdated(res.ID)

	diffLines := 0
	if res.DiffLines != nil {
		diffLines = *res.DiffLines
	}
	s.logger.Info("フェッチ結果を反映しました",
		slog.String("batch_id", batchID),
		slog.Int64("resource_id", res.ID),
		slog.Bool("ok", result.OK),
		slog.Int("diff_lines", diffLines),
		slog.Bool("is_unread", res.IsUnread),
	)
}

// UndoFetch は選択された各リソースの最新リビジョンを取り除き、変更行数を再計算する。
// リビジョンを持たないリソースは何もしない。
func (s *Store) UndoFetch(selection []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, id := range selection {
		res := s.findByID(id)
		if res == nil {
			continue
		}
		if res.UndoLast() == nil {
			continue
		}
		recomputeMagnitude(res)
		changed = true
		s.notifier.ResourceUpdated(res.ID)
	}
	if changed {
		s.dirty = true
	}
}

// MarkRead は選択された各リソースの未読フラグを下ろす。
func (s *Store) MarkRead(selection []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for _, id := range selection {
		res := s.findByID(id)
		if res == nil || !res.IsUnread {
			continue
		}
		res.IsUnread = false
		changed = true
		s.notifier.ResourceUpdated(res.ID)
	}
	if changed {
		s.dirty = true
	}
}

// Diff は指定リソースの最新2リビジョン間の差分テキストを返す。
// リビジョンが2件未満の場合は差分なしとしてエラーを返す。
func (s *Store) Diff(id int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.findByID(id)
	if res == nil {
		return "", model.NewResourceNotFoundError(id)
	}

	cur, prev := res.Current(), res.Previous()
	if cur == nil || prev == nil {
		return "", model.NewDiffUnavailableError(id)
	}

	result := diff.Compare(content.Fragments(cur.Content), content.Fragments(prev.Content))
	return result.Transcript, nil
}

// Save は全状態をドキュメントへフラッシュし、未保存フラグを下ろす。
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.doc.Save(ctx, s.resources); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// SaveAs は全状態を別名で保存し、セッションを新パスへ切り替える。
// 失敗した場合は未保存フラグを維持する。
func (s *Store) SaveAs(ctx context.Context, newPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.doc.SaveAs(ctx, newPath, s.resources); err != nil {
		return err
	}
	s.dirty = false
	return nil
}

// recomputeMagnitude は最新2リビジョンの正規化済み断片列から変更行数を再計算する。
func recomputeMagnitude(res *model.Resource) {
	res.RecomputeDiffLines(func(current, previous string) int {
		return diff.Magnitude(content.Fragments(current), content.Fragments(previous))
	})
}

// findByID は指定IDのリソースを返す。見つからない場合はnil。ロック保持前提。
func (s *Store) findByID(id int64) *model.Resource {
	for _, res := range s.resources {
		if res.ID == id {
			return res
		}
	}
	return nil
}

// lastSelected は選択中のリソースのうち表示順が最大のものを返す。ロック保持前提。
func (s *Store) lastSelected(selection []int64) *model.Resource {
	selected := idSet(selection)
	var last *model.Resource
	for _, res := range s.resources {
		if selected[res.ID] && (last == nil || res.Order > last.Order) {
			last = res
		}
	}
	return last
}

func (s *Store) sortByOrder() {
	for i := 1; i < len(s.resources); i++ {
		for j := i; j > 0 && s.resources[j-1].Order > s.resources[j].Order; j-- {
			s.resources[j-1], s.resources[j] = s.resources[j], s.resources[j-1]
		}
	}
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func cloneResource(res *model.Resource) *model.Resource {
	clone := *res
	if res.DiffLines != nil {
		n := *res.DiffLines
		clone.DiffLines = &n
	}
	clone.Revisions = append([]*model.Revision(nil), res.Revisions...)
	return &clone
}
