package fetch

import "time"

// Recorder はフェッチ実行のメトリクス記録インターフェース。
type Recorder interface {
	RecordFetchSuccess()
	RecordFetchFailure()
	RecordHTTPStatus(statusCode int)
	RecordFetchLatency(duration time.Duration)
	IncInFlight()
	DecInFlight()
}

// NopRecorder は何も記録しないRecorder。
type NopRecorder struct{}

func (NopRecorder) RecordFetchSuccess()                {}
func (NopRecorder) RecordFetchFailure()                {}
func (NopRecorder) RecordHTTPStatus(int)               {}
func (NopRecorder) RecordFetchLatency(time.Duration)   {}
func (NopRecorder) IncInFlight()                       {}
func (NopRecorder) DecInFlight()                       {}
