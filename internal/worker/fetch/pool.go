// Package fetch は追跡リソースの並行HTTPフェッチを提供する。
// 固定数のワーカーとジョブキュー、ジョブごとの完了コールバックを含む。
package fetch

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultWorkers はワーカー数のデフォルト値。
	DefaultWorkers = 5
	// DefaultMaxBodySize は取得するレスポンスボディの上限（5MB）。
	DefaultMaxBodySize = 5 * 1024 * 1024
)

// Job は1件のフェッチ要求を表す。
// IDは呼び出し側が完了結果を対応付けるための不透明な値で、
// プールはIDを解釈しない。
type Job struct {
	ID      int64
	URL     string
	Timeout time.Duration
}

// Result は1件のフェッチ結果を表す。
// 成功はHTTP 200のみで、失敗（ネットワークエラー・タイムアウト・非200）は
// 真偽値以外の詳細を持たない。
type Result struct {
	JobID   int64
	OK      bool
	Content string
}

// ClientFactory はジョブごとのタイムアウトを適用したHTTPクライアントを生成する。
type ClientFactory interface {
	NewClient(timeout time.Duration) *http.Client
}

// PlainClientFactory は標準のHTTPクライアントを生成するClientFactory。
type PlainClientFactory struct{}

// NewClient は指定タイムアウトのHTTPクライアントを返す。
func (PlainClientFactory) NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// submission はジョブと完了コールバックの組。
// コールバックをジョブと一緒に値で運ぶことで、ループ変数の共有キャプチャを避ける。
type submission struct {
	job  Job
	done func(Result)
}

// Pool は固定ワーカー数でフェッチジョブを実行するワーカープール。
// Submitはブロックせず、完了はワーカーのゴルーチンから任意の順序で通知される。
// コールバック側が自身の状態変更を直列化する責任を持つ。
type Pool struct {
	clients     ClientFactory
	recorder    Recorder
	logger      *slog.Logger
	maxBodySize int64
	jobs        chan submission
	quit        chan struct{}
}

// NewPool はワーカーを起動済みのPoolを生成する。
// workersが0以下の場合はデフォルト値5を使用する。
func NewPool(workers int, maxBodySize int64, clients ClientFactory, recorder Recorder, logger *slog.Logger) *Pool {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}

	p := &Pool{
		clients:     clients,
		recorder:    recorder,
		logger:      logger,
		maxBodySize: maxBodySize,
		jobs:        make(chan submission),
		quit:        make(chan struct{}),
	}

	for i := 0; i < workers; i++ {
		go p.worker()
	}

	return p
}

// Submit はジョブ一式をキューへ投入する。完了を待たずに即座に戻る。
// 各ジョブにつきdoneがちょうど1回、ワーカーのゴルーチンから呼ばれる。
// 完了順は投入順と無関係で、複数ワーカーからは並行に呼ばれうる。
func (p *Pool) Submit(jobs []Job, done func(Result)) {
	go func() {
		for _, job := range jobs {
			select {
			case p.jobs <- submission{job: job, done: done}:
			case <-p.quit:
				return
			}
		}
	}()
}

// Stop はワーカーを停止する。キューに残っているジョブは破棄される。
func (p *Pool) Stop() {
	close(p.quit)
}

func (p *Pool) worker() {
	for {
		select {
		case <-p.quit:
			return
		case sub := <-p.jobs:
			sub.done(p.fetchOne(sub.job))
		}
	}
}

// fetchOne は1件のジョブを実行して結果を返す。リトライは行わない。
func (p *Pool) fetchOne(job Job) Result {
	start := time.Now()
	p.recorder.IncInFlight()
	defer p.recorder.DecInFlight()

	res := p.doRequest(job)

	duration := time.Since(start)
	p.recorder.RecordFetchLatency(duration)
	if res.OK {
		p.recorder.RecordFetchSuccess()
	} else {
		p.recorder.RecordFetchFailure()
	}

	p.logger.Info("フェッチが完了しました",
		slog.Int64("job_id", job.ID),
		slog.String("url", job.URL),
		slog.Bool("ok", res.OK),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return res
}

func (p *Pool) doRequest(job Job) Result {
	req, err := http.NewRequest(http.MethodGet, job.URL, nil)
	if err != nil {
		return Result{JobID: job.ID}
	}
	req.Header.Set("User-Agent", "Diffwatch/1.0 Change Tracker")

	client := p.clients.NewClient(job.Timeout)
	resp, err := client.Do(req)
	if err != nil {
		return Result{JobID: job.ID}
	}
	defer resp.Body.Close()

	p.recorder.RecordHTTPStatus(resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return Result{JobID: job.ID}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize))
	if err != nil {
		return Result{JobID: job.ID}
	}

	return Result{JobID: job.ID, OK: true, Content: string(body)}
}
