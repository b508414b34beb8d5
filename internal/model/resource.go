// Package model はドメインモデルを定義する。
package model

import (
	"sort"
	"time"
)

// maxRevisions はリソースごとに保持するリビジョン数の上限。
const maxRevisions = 3

// FetchOutcome は直近フェッチの結果を表す3値。
type FetchOutcome string

const (
	// FetchOutcomeUnknown は未フェッチ状態。
	FetchOutcomeUnknown FetchOutcome = ""
	// FetchOutcomeSuccess は直近フェッチの成功。
	FetchOutcomeSuccess FetchOutcome = "success"
	// FetchOutcomeFailure は直近フェッチの失敗（タイムアウト・接続エラー・非200）。
	FetchOutcomeFailure FetchOutcome = "failure"
)

const (
	// DefaultTimeoutSec はフェッチタイムアウトのデフォルト値（秒）。
	DefaultTimeoutSec = 2
	// DefaultDiffThreshold は「有意な変更」とみなす変更行数のデフォルト閾値。
	DefaultDiffThreshold = 2
)

// Resource は追跡対象のWebリソース（URLとその設定・状態）を表す。
// リビジョン履歴を排他的に所有する。
type Resource struct {
	ID int64
	// Order はリスト内の表示順。ストア全体で常に0始まりの連続した値を取る。
	Order         int
	URL           string
	IsFavorite    bool
	TimeoutSec    int
	DiffThreshold int
	// IsUnread は閾値以上の変更が未確認であることを示す。
	IsUnread  bool
	AddedAt   time.Time
	LastFetch FetchOutcome
	// DiffLines は最新2リビジョン間の変更行数。未計算の場合はnil。
	DiffLines *int
	// InProcess はフェッチ実行中フラグ。永続化されず、ロード直後は常にfalse。
	InProcess bool

	Revisions []*Revision
}

// Revision はフェッチで取得したコンテンツの不変スナップショットを表す。
type Revision struct {
	ID         int64
	ResourceID int64
	FetchedAt  time.Time
	Content    string
}

// NewResource はデフォルト設定のリソースを生成する。
func NewResource(id int64, order int, url string, now time.Time) *Resource {
	return &Resource{
		ID:            id,
		Order:         order,
		URL:           url,
		TimeoutSec:    DefaultTimeoutSec,
		DiffThreshold: DefaultDiffThreshold,
		AddedAt:       now,
	}
}

// sortedRevisions はフェッチ日時の昇順に整列したリビジョンを返す。
// 日時が同一の場合はIDで順序を安定させる。
func (r *Resource) sortedRevisions() []*Revision {
	revs := append([]*Revision(nil), r.Revisions...)
	sort.Slice(revs, func(i, j int) bool {
		if revs[i].FetchedAt.Equal(revs[j].FetchedAt) {
			return revs[i].ID < revs[j].ID
		}
		return revs[i].FetchedAt.Before(revs[j].FetchedAt)
	})
	return revs
}

// Current は最新のリビジョンを返す。存在しない場合はnil。
func (r *Resource) Current() *Revision {
	revs := r.sortedRevisions()
	if len(revs) == 0 {
		return nil
	}
	return revs[len(revs)-1]
}

// Previous は2番目に新しいリビジョンを返す。存在しない場合はnil。
func (r *Resource) Previous() *Revision {
	revs := r.sortedRevisions()
	if len(revs) < 2 {
		return nil
	}
	return revs[len(revs)-2]
}

// Record はリビジョンを履歴へ追加する。
// 保持上限（3件）を超えた場合は最古のリビジョンを取り除いて返す。上限内の場合はnilを返す。
func (r *Resource) Record(rev *Revision) *Revision {
	r.Revisions = append(r.Revisions, rev)
	if len(r.Revisions) <= maxRevisions {
		return nil
	}
	oldest := r.sortedRevisions()[0]
	r.removeRevision(oldest)
	return oldest
}

// UndoLast は最新のリビジョンを履歴から取り除いて返す。
// リビジョンが存在しない場合は何もせずnilを返す。
func (r *Resource) UndoLast() *Revision {
	newest := r.Current()
	if newest == nil {
		return nil
	}
	r.removeRevision(newest)
	return newest
}

func (r *Resource) removeRevision(target *Revision) {
	kept := r.Revisions[:0]
	for _, rev := range r.Revisions {
		if rev != target {
			kept = append(kept, rev)
		}
	}
	r.Revisions = kept
}

// RecomputeDiffLines は最新2リビジョンの内容にcountを適用して変更行数を再計算する。
// リビジョンが2件未満の場合は0を設定する。
func (r *Resource) RecomputeDiffLines(count func(current, previous string) int) {
	cur, prev := r.Current(), r.Previous()
	if cur == nil || prev == nil {
		zero := 0
		r.DiffLines = &zero
		return
	}
	n := count(cur.Content, prev.Content)
	r.DiffLines = &n
}
