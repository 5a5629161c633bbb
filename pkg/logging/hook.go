package logging

import (
	"github.com/modern-go/gls"
	"github.com/sirupsen/logrus"
)

// tableField is the goroutine-local-storage key SetGoroutineTable writes
// and Hook reads back, so every log line emitted from a table-sync
// goroutine carries its table name without threading a *logrus.Entry
// through the whole call stack.
const tableField = "table"

// Hook attaches the current goroutine's table name (if any) to every log
// entry, mirroring pkg/utils/job_hook.go's use of gls to recover a
// per-goroutine identifier logrus itself has no notion of.
type Hook struct {
	levels []logrus.Level
}

func NewHook(levels ...logrus.Level) *Hook {
	h := &Hook{levels: levels}
	if len(h.levels) == 0 {
		h.levels = logrus.AllLevels
	}
	return h
}

func (h *Hook) Levels() []logrus.Level {
	return h.levels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	if table := gls.Get(tableField); table != nil {
		entry.Data[tableField] = table
	}
	return nil
}

// SetGoroutineTable tags the calling goroutine with tableName for the
// rest of its lifetime (or until ClearGoroutineTable), the way
// ingest_binlog_job.go tags its worker goroutine with "job" before
// running it.
func SetGoroutineTable(tableName string) {
	gls.ResetGls(gls.GoID(), map[interface{}]interface{}{})
	gls.Set(tableField, tableName)
}

// ClearGoroutineTable removes the calling goroutine's tag, for reuse of
// a worker goroutine across tables (e.g. a pool).
func ClearGoroutineTable() {
	gls.ResetGls(gls.GoID(), map[interface{}]interface{}{})
}
