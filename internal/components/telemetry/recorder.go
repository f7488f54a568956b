package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call made against a Recorder.
type Report struct {
	Level  string
	Id     string
	Params []any
}

// Recorder is an API that keeps everything reported to it, it is meant to be
// used in tests to assert that a component reported what it should have.
type Recorder struct {
	mutex   sync.Mutex
	reports []Report
}

func (r *Recorder) push(level, id string, params []any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.reports = append(r.reports, Report{Level: level, Id: id, Params: params})
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.push("broken", id, params)
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.push("warning", id, params)
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.push("debug", msg, params)
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.push("count", id, []any{count})
}

// Reports returns every report of a given level whose id contains `substr`.
func (r *Recorder) Reports(level, substr string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if rep.Level == level && strings.Contains(rep.Id, substr) {
			out = append(out, rep)
		}
	}
	return out
}
