package store

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/diffwatch/internal/document"
	"github.com/hitoshi/diffwatch/internal/model"
	"github.com/hitoshi/diffwatch/internal/worker/fetch"
)

// fakeSubmitter はプールの代わりにジョブを記録し、テストから完了を注入する。
type fakeSubmitter struct {
	mu   sync.Mutex
	jobs []fetch.Job
	done func(fetch.Result)
}

func (f *fakeSubmitter) Submit(jobs []fetch.Job, done func(fetch.Result)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, jobs...)
	f.done = done
}

// complete は記録済みの完了コールバックへ結果を渡す。
func (f *fakeSubmitter) complete(result fetch.Result) {
	f.mu.Lock()
	done := f.done
	f.mu.Unlock()
	done(result)
}

func (f *fakeSubmitter) submittedJobs() []fetch.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fetch.Job(nil), f.jobs...)
}

// recordingNotifier は通知されたリソースIDを記録する。
type recordingNotifier struct {
	inserted []int64
	updated  []int64
	removed  []int64
}

func (n *recordingNotifier) ResourceInserted(id int64) { n.inserted = append(n.inserted, id) }
func (n *recordingNotifier) ResourceUpdated(id int64)  { n.updated = append(n.updated, id) }
func (n *recordingNotifier) ResourceRemoved(id int64)  { n.removed = append(n.removed, id) }

func newTestStore(t *testing.T) (*Store, *fakeSubmitter, *recordingNotifier) {
	t.Helper()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	doc, err := document.Open("", logger)
	if err != nil {
		t.Fatalf("ドキュメントのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { doc.Close() })

	pool := &fakeSubmitter{}
	notifier := &recordingNotifier{}
	s, err := New(context.Background(), doc, pool, notifier, logger)
	if err != nil {
		t.Fatalf("ストアの生成に失敗: %v", err)
	}

	// テストごとに単調増加する決定的な時刻を使う
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	step := 0
	s.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	return s, pool, notifier
}

// assertOrderContiguity は表示順が0始まりの連続であることを確認する。
func assertOrderContiguity(t *testing.T, s *Store) {
	t.Helper()

	resources := s.List()
	seen := make(map[int]bool, len(resources))
	for _, res := range resources {
		if res.Order < 0 || res.Order >= len(resources) {
			t.Errorf("Order = %d が範囲 [0, %d) を外れている", res.Order, len(resources))
		}
		if seen[res.Order] {
			t.Errorf("Order = %d が重複している", res.Order)
		}
		seen[res.Order] = true
	}
}

func TestStore_AddResource_AppendsAtEnd(t *testing.T) {
	s, _, notifier := newTestStore(t)

	first, err := s.AddResource(nil, "http://example.com/a")
	if err != nil {
		t.Fatalf("追加に失敗: %v", err)
	}
	second, err := s.AddResource(nil, "http://example.com/b")
	if err != nil {
		t.Fatalf("追加に失敗: %v", err)
	}

	if first.Order != 0 || second.Order != 1 {
		t.Errorf("Order = [%d, %d], want [0, 1]", first.Order, second.Order)
	}
	if first.TimeoutSec != model.DefaultTimeoutSec {
		t.Errorf("TimeoutSec = %d, want %d", first.TimeoutSec, model.DefaultTimeoutSec)
	}
	if first.DiffThreshold != model.DefaultDiffThreshold {
		t.Errorf("DiffThreshold = %d, want %d", first.DiffThreshold, model.DefaultDiffThreshold)
	}
	if !s.Dirty() {
		t.Error("追加後は未保存の変更があるべき")
	}
	if len(notifier.inserted) != 2 {
		t.Errorf("挿入通知 = %d件, want 2件", len(notifier.inserted))
	}
	assertOrderContiguity(t, s)
}

func TestStore_AddResource_InsertsAfterSelection(t *testing.T) {
	s, _, _ := newTestStore(t)

	a, _ := s.AddResource(nil, "http://example.com/a")
	b, _ := s.AddResource(nil, "http://example.com/b")
	c, _ := s.AddResource(nil, "http://example.com/c")

	// 先頭2つを選択した状態での追加はbの直後に入る
	inserted, err := s.AddResource([]int64{a.ID, b.ID}, "http://example.com/new")
	if err != nil {
		t.Fatalf("追加に失敗: %v", err)
	}

	if inserted.Order != 2 {
		t.Errorf("挿入位置のOrder = %d, want 2", inserted.Order)
	}

	got, err := s.Get(c.ID)
	if err != nil {
		t.Fatalf("取得に失敗: %v", err)
	}
	if got.Order != 3 {
		t.Errorf("後続リソースのOrder = %d, want 3（繰り下げ）", got.Order)
	}
	assertOrderContiguity(t, s)
}

func TestStore_AddResource_RejectsInvalidURL(t *testing.T) {
	s, _, notifier := newTestStore(t)

	_, err := s.AddResource(nil, "not a url")

	var appErr *model.AppError
	if !errors.As(err, &appErr) || appErr.Code != model.ErrCodeInvalidURL {
		t.Fatalf("INVALID_URLを返すべき: %v", err)
	}
	if len(s.List()) != 0 {
		t.Error("不正なURLの追加は状態を変更すべきでない")
	}
	if s.Dirty() {
		t.Error("拒否された追加で未保存フラグが立つべきでない")
	}
	if len(notifier.inserted) != 0 {
		t.Error("拒否された追加で挿入通知が出るべきでない")
	}
}

func TestStore_AddResource_EmptyURLPlaceholder(t *testing.T) {
	s, _, _ := newTestStore(t)

	res, err := s.AddResource(nil, "")
	if err != nil {
		t.Fatalf("プレースホルダの追加に失敗: %v", err)
	}
	if res.URL != "" {
		t.Errorf("URL = %q, want 空文字列", res.URL)
	}
}

func TestStore_RemoveResources_ClosesOrderGaps(t *testing.T) {
	s, _, notifier := newTestStore(t)

	var ids []int64
	for _, u := range []string{"a", "b", "c", "d", "e"} {
		res, _ := s.AddResource(nil, "http://example.com/"+u)
		ids = append(ids, res.ID)
	}

	// 中間の2件を削除しても表示順は連続を保つ
	s.RemoveResources([]int64{ids[1], ids[3]})

	resources := s.List()
	if len(resources) != 3 {
		t.Fatalf("リソース数 = %d, want 3", len(resources))
	}
	assertOrderContiguity(t, s)

	if len(notifier.removed) != 2 {
		t.Errorf("削除通知 = %d件, want 2件", len(notifier.removed))
	}
}

func TestStore_RemoveResources_UnknownIDIsNoop(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.AddResource(nil, "http://example.com")
	s.Save(context.Background())

	s.RemoveResources([]int64{999})

	if len(s.List()) != 1 {
		t.Error("存在しないIDの削除でリソースが消えるべきでない")
	}
	if s.Dirty() {
		t.Error("何も削除されない場合は未保存フラグが立つべきでない")
	}
}

func TestStore_SetProperty_AppliesToWholeSelection(t *testing.T) {
	s, _, _ := newTestStore(t)

	a, _ := s.AddResource(nil, "http://example.com/a")
	b, _ := s.AddResource(nil, "http://example.com/b")
	selection := []int64{a.ID, b.ID}

	cases := []struct {
		name   string
		change model.PropertyChange
		check  func(res *model.Resource) bool
	}{
		{"favorite", model.FavoriteChange{Favorite: true}, func(r *model.Resource) bool { return r.IsFavorite }},
		{"timeout", model.TimeoutChange{Seconds: 30}, func(r *model.Resource) bool { return r.TimeoutSec == 30 }},
		{"diff_threshold", model.DiffThresholdChange{Lines: 5}, func(r *model.Resource) bool { return r.DiffThreshold == 5 }},
		{"url", model.URLChange{URL: "https://example.org/new"}, func(r *model.Resource) bool { return r.URL == "https://example.org/new" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := s.SetProperty(selection, tc.change); err != nil {
				t.Fatalf("属性変更に失敗: %v", err)
			}
			for _, id := range selection {
				res, _ := s.Get(id)
				if !tc.check(res) {
					t.Errorf("リソース %d に変更が適用されていない", id)
				}
			}
		})
	}
}

func TestStore_SetProperty_InvalidValueRejectedWithoutPartialApply(t *testing.T) {
	s, _, _ := newTestStore(t)
	a, _ := s.AddResource(nil, "http://example.com/a")

	cases := []struct {
		name     string
		change   model.PropertyChange
		wantCode string
	}{
		{"zero timeout", model.TimeoutChange{Seconds: 0}, model.ErrCodeInvalidPropertyValue},
		{"negative threshold", model.DiffThresholdChange{Lines: -1}, model.ErrCodeInvalidPropertyValue},
		{"invalid url", model.URLChange{URL: "nope"}, model.ErrCodeInvalidURL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.SetProperty([]int64{a.ID}, tc.change)

			var appErr *model.AppError
			if !errors.As(err, &appErr) || appErr.Code != tc.wantCode {
				t.Fatalf("エラーコード = %v, want %s", err, tc.wantCode)
			}

			res, _ := s.Get(a.ID)
			if res.TimeoutSec != model.DefaultTimeoutSec || res.DiffThreshold != model.DefaultDiffThreshold {
				t.Error("拒否された変更が適用されている")
			}
		})
	}
}

func TestStore_SetProperty_MissingIDRejectsWholeSelection(t *testing.T) {
	s, _, _ := newTestStore(t)
	a, _ := s.AddResource(nil, "http://example.com/a")

	err := s.SetProperty([]int64{a.ID, 999}, model.FavoriteChange{Favorite: true})

	var appErr *model.AppError
	if !errors.As(err, &appErr) || appErr.Code != model.ErrCodeResourceNotFound {
		t.Fatalf("RESOURCE_NOT_FOUNDを返すべき: %v", err)
	}

	res, _ := s.Get(a.ID)
	if res.IsFavorite {
		t.Error("選択の一部にだけ変更が適用されている")
	}
}

func TestStore_SetProperty_EmptyURLResetsToPlaceholder(t *testing.T) {
	s, _, _ := newTestStore(t)
	a, _ := s.AddResource(nil, "http://example.com/a")

	if err := s.SetProperty([]int64{a.ID}, model.URLChange{URL: ""}); err != nil {
		t.Fatalf("空URLへの変更に失敗: %v", err)
	}

	res, _ := s.Get(a.ID)
	if res.URL != "" {
		t.Errorf("URL = %q, want 空文字列", res.URL)
	}
}

func TestStore_FetchSelected_SkipsEmptyURLAndMarksInProcess(t *testing.T) {
	s, pool, _ := newTestStore(t)

	withURL, _ := s.AddResource(nil, "http://example.com/a")
	placeholder, _ := s.AddResource(nil, "")

	started := s.FetchSelected([]int64{withURL.ID, placeholder.ID})

	if started != 1 {
		t.Errorf("開始ジョブ数 = %d, want 1", started)
	}

	jobs := pool.submittedJobs()
	if len(jobs) != 1 {
		t.Fatalf("投入ジョブ数 = %d, want 1", len(jobs))
	}
	if jobs[0].ID != withURL.ID {
		t.Errorf("ジョブID = %d, want %d", jobs[0].ID, withURL.ID)
	}
	if jobs[0].Timeout != time.Duration(model.DefaultTimeoutSec)*time.Second {
		t.Errorf("Timeout = %v, want %v", jobs[0].Timeout, time.Duration(model.DefaultTimeoutSec)*time.Second)
	}

	res, _ := s.Get(withURL.ID)
	if !res.InProcess {
		t.Error("フェッチ中のリソースはInProcessであるべき")
	}
	skipped, _ := s.Get(placeholder.ID)
	if skipped.InProcess {
		t.Error("空URLのリソースはフェッチ対象外であるべき")
	}
}

func TestStore_FetchCompletion_SuccessRecordsRevision(t *testing.T) {
	s, pool, _ := newTestStore(t)
	res, _ := s.AddResource(nil, "http://example.com/a")
	s.Save(context.Background())

	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: "<p>A</p><p>B</p><p>C</p>"})

	got, _ := s.Get(res.ID)
	if got.InProcess {
		t.Error("完了後のInProcessはfalseであるべき")
	}
	if got.LastFetch != model.FetchOutcomeSuccess {
		t.Errorf("LastFetch = %q, want success", got.LastFetch)
	}
	if len(got.Revisions) != 1 {
		t.Fatalf("リビジョン数 = %d, want 1", len(got.Revisions))
	}
	if got.DiffLines == nil || *got.DiffLines != 0 {
		t.Errorf("初回フェッチのDiffLines = %v, want 0", got.DiffLines)
	}
	if got.IsUnread {
		t.Error("リビジョン1件では未読にならないべき")
	}
	if !s.Dirty() {
		t.Error("フェッチ完了で未保存フラグが立つべき")
	}
}

func TestStore_FetchCompletion_FailureRecordsOutcomeOnly(t *testing.T) {
	s, pool, _ := newTestStore(t)
	res, _ := s.AddResource(nil, "http://example.com/a")
	s.Save(context.Background())

	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: false})

	got, _ := s.Get(res.ID)
	if got.LastFetch != model.FetchOutcomeFailure {
		t.Errorf("LastFetch = %q, want failure", got.LastFetch)
	}
	if len(got.Revisions) != 0 {
		t.Errorf("失敗フェッチでリビジョンが作られている: %d件", len(got.Revisions))
	}
	if got.IsUnread {
		t.Error("失敗フェッチで未読になるべきでない")
	}
	if !s.Dirty() {
		t.Error("失敗フェッチでも未保存フラグが立つべき")
	}
}

func TestStore_FetchCompletion_RemovedResourceIsNoop(t *testing.T) {
	s, pool, _ := newTestStore(t)
	res, _ := s.AddResource(nil, "http://example.com/a")

	s.FetchSelected([]int64{res.ID})
	s.RemoveResources([]int64{res.ID})

	// 削除済みリソースへの完了はパニックせず破棄される
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: "late"})

	if len(s.List()) != 0 {
		t.Error("破棄された完了でリソースが復活している")
	}
}

func TestStore_FetchCompletion_ConcurrentCallbacks(t *testing.T) {
	// ワーカーからの完了は任意の順序・並行で届く。
	// ストアのミューテックスで直列化され、最終状態が一貫することを確認する。
	s, pool, _ := newTestStore(t)

	const n = 16
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		res, err := s.AddResource(nil, "http://example.com/r")
		if err != nil {
			t.Fatalf("追加に失敗: %v", err)
		}
		ids = append(ids, res.ID)
	}

	s.FetchSelected(ids)

	// 1件はフェッチ中に削除し、その完了が破棄されることも同時に確認する
	removedID := ids[n-1]
	s.RemoveResources([]int64{removedID})

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			// 成功と失敗を混在させる
			if i%3 == 0 {
				pool.complete(fetch.Result{JobID: id, OK: false})
				return
			}
			pool.complete(fetch.Result{JobID: id, OK: true, Content: "<p>body</p>"})
		}(i, id)
	}
	// 完了と競合する読み取りも混ぜる
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.List()
			s.Dirty()
		}()
	}
	wg.Wait()

	if len(s.List()) != n-1 {
		t.Fatalf("リソース数 = %d, want %d", len(s.List()), n-1)
	}
	if _, err := s.Get(removedID); err == nil {
		t.Error("破棄された完了でリソースが復活している")
	}
	for i, id := range ids[:n-1] {
		got, err := s.Get(id)
		if err != nil {
			t.Fatalf("取得に失敗: %v", err)
		}
		if got.InProcess {
			t.Errorf("リソース %d: 完了後のInProcessはfalseであるべき", id)
		}
		if i%3 == 0 {
			if got.LastFetch != model.FetchOutcomeFailure {
				t.Errorf("リソース %d: LastFetch = %q, want failure", id, got.LastFetch)
			}
			if len(got.Revisions) != 0 {
				t.Errorf("リソース %d: 失敗フェッチでリビジョンが作られている", id)
			}
			continue
		}
		if got.LastFetch != model.FetchOutcomeSuccess {
			t.Errorf("リソース %d: LastFetch = %q, want success", id, got.LastFetch)
		}
		if len(got.Revisions) != 1 {
			t.Errorf("リソース %d: リビジョン数 = %d, want 1", id, len(got.Revisions))
		}
	}
	if !s.Dirty() {
		t.Error("フェッチ完了で未保存フラグが立つべき")
	}
	assertOrderContiguity(t, s)

	// リビジョンIDは全リソースを通して一意に採番される
	seen := map[int64]bool{}
	for _, res := range s.List() {
		for _, rev := range res.Revisions {
			if seen[rev.ID] {
				t.Errorf("リビジョンID %d が重複している", rev.ID)
			}
			seen[rev.ID] = true
		}
	}
}

func TestStore_FetchCompletion_UnreadExampleScenario(t *testing.T) {
	// 閾値2のリソース: "A B C" → "A C"（変更量1、未読にならない）→ 空（変更量2、未読になる）
	s, pool, _ := newTestStore(t)
	res, _ := s.AddResource(nil, "http://example.com/a")

	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: "<p>A</p><p>B</p><p>C</p>"})

	got, _ := s.Get(res.ID)
	if *got.DiffLines != 0 || got.IsUnread {
		t.Fatalf("フェッチ#1: DiffLines = %d, IsUnread = %v, want 0 / false", *got.DiffLines, got.IsUnread)
	}

	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: "<p>A</p><p>C</p>"})

	got, _ = s.Get(res.ID)
	if *got.DiffLines != 1 || got.IsUnread {
		t.Fatalf("フェッチ#2: DiffLines = %d, IsUnread = %v, want 1 / false", *got.DiffLines, got.IsUnread)
	}

	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: ""})

	got, _ = s.Get(res.ID)
	if *got.DiffLines != 2 {
		t.Fatalf("フェッチ#3: DiffLines = %d, want 2", *got.DiffLines)
	}
	if !got.IsUnread {
		t.Error("閾値以上の変更で未読になるべき")
	}
}

func TestStore_FetchCompletion_RevisionCap(t *testing.T) {
	s, pool, _ := newTestStore(t)
	res, _ := s.AddResource(nil, "http://example.com/a")

	contents := []string{"one", "two", "three", "four", "five"}
	for _, c := range contents {
		s.FetchSelected([]int64{res.ID})
		pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: c})
	}

	got, _ := s.Get(res.ID)
	if len(got.Revisions) != 3 {
		t.Fatalf("リビジョン数 = %d, want 3（上限）", len(got.Revisions))
	}

	// 保持されるのは直近3件
	kept := map[string]bool{}
	for _, rev := range got.Revisions {
		kept[rev.Content] = true
	}
	for _, want := range []string{"three", "four", "five"} {
		if !kept[want] {
			t.Errorf("直近リビジョン %q が保持されていない", want)
		}
	}
}

func TestStore_UndoFetch_RestoresPriorState(t *testing.T) {
	s, pool, _ := newTestStore(t)
	res, _ := s.AddResource(nil, "http://example.com/a")

	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: "<p>first</p>"})

	before, _ := s.Get(res.ID)
	beforeMagnitude := *before.DiffLines

	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: "<p>second</p>"})

	s.UndoFetch([]int64{res.ID})

	after, _ := s.Get(res.ID)
	if len(after.Revisions) != 1 {
		t.Fatalf("取り消し後のリビジョン数 = %d, want 1", len(after.Revisions))
	}
	if after.Current().Content != "<p>first</p>" {
		t.Errorf("取り消し後のCurrent = %q, want %q", after.Current().Content, "<p>first</p>")
	}
	if *after.DiffLines != beforeMagnitude {
		t.Errorf("取り消し後のDiffLines = %d, want %d", *after.DiffLines, beforeMagnitude)
	}
}

func TestStore_UndoFetch_NoRevisionsIsNoop(t *testing.T) {
	s, _, _ := newTestStore(t)
	res, _ := s.AddResource(nil, "http://example.com/a")
	s.Save(context.Background())

	s.UndoFetch([]int64{res.ID})

	if s.Dirty() {
		t.Error("リビジョンのないリソースの取り消しで未保存フラグが立つべきでない")
	}
}

func TestStore_MarkRead_ClearsUnread(t *testing.T) {
	s, pool, _ := newTestStore(t)
	res, _ := s.AddResource(nil, "http://example.com/a")
	s.SetProperty([]int64{res.ID}, model.DiffThresholdChange{Lines: 1})

	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: "<p>A</p><p>B</p>"})
	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: "<p>A</p>"})

	got, _ := s.Get(res.ID)
	if !got.IsUnread {
		t.Fatal("前提: 閾値以上の変更で未読になっているべき")
	}

	s.MarkRead([]int64{res.ID})

	got, _ = s.Get(res.ID)
	if got.IsUnread {
		t.Error("既読化後も未読フラグが残っている")
	}
}

func TestStore_Diff_RequiresTwoRevisions(t *testing.T) {
	s, pool, _ := newTestStore(t)
	res, _ := s.AddResource(nil, "http://example.com/a")

	_, err := s.Diff(res.ID)
	var appErr *model.AppError
	if !errors.As(err, &appErr) || appErr.Code != model.ErrCodeDiffUnavailable {
		t.Fatalf("リビジョン0件: DIFF_UNAVAILABLEを返すべき: %v", err)
	}

	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: "<p>A</p>"})

	_, err = s.Diff(res.ID)
	if !errors.As(err, &appErr) || appErr.Code != model.ErrCodeDiffUnavailable {
		t.Fatalf("リビジョン1件: DIFF_UNAVAILABLEを返すべき: %v", err)
	}

	s.FetchSelected([]int64{res.ID})
	pool.complete(fetch.Result{JobID: res.ID, OK: true, Content: "<p>B</p>"})

	transcript, err := s.Diff(res.ID)
	if err != nil {
		t.Fatalf("差分の取得に失敗: %v", err)
	}
	if !strings.Contains(transcript, "- A") || !strings.Contains(transcript, "+ B") {
		t.Errorf("差分テキストが期待と異なる: %q", transcript)
	}
}

func TestStore_Diff_UnknownResource(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, err := s.Diff(999)

	var appErr *model.AppError
	if !errors.As(err, &appErr) || appErr.Code != model.ErrCodeResourceNotFound {
		t.Errorf("RESOURCE_NOT_FOUNDを返すべき: %v", err)
	}
}

func TestStore_SaveClearsDirty(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.AddResource(nil, "http://example.com/a")

	if !s.Dirty() {
		t.Fatal("前提: 追加後は未保存の変更があるべき")
	}
	if err := s.Save(context.Background()); err != nil {
		t.Fatalf("保存に失敗: %v", err)
	}
	if s.Dirty() {
		t.Error("保存後は未保存フラグが下りるべき")
	}
}

func TestStore_SaveAsFailureKeepsDirty(t *testing.T) {
	s, _, _ := newTestStore(t)
	s.AddResource(nil, "http://example.com/a")

	// 不正な拡張子で別名保存を失敗させる
	err := s.SaveAs(context.Background(), "/tmp/out.db")
	if err == nil {
		t.Fatal("不正な拡張子の別名保存は失敗すべき")
	}
	if !s.Dirty() {
		t.Error("失敗した別名保存の後も未保存フラグが残るべき")
	}
}

func TestStore_LoadedStoreIsClean(t *testing.T) {
	s, _, _ := newTestStore(t)

	if s.Dirty() {
		t.Error("ロード直後のストアに未保存の変更があるべきでない")
	}
	if len(s.List()) != 0 {
		t.Error("空ドキュメントのストアは空であるべき")
	}
}
