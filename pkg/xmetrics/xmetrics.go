package xmetrics

import (
	"github.com/hashicorp/go-metrics"
	"github.com/hashicorp/go-metrics/prometheus"

	"github.com/rowsync/rowsync/pkg/xerror"
)

func InitGlobal(serviceName string) error {
	sink, err := prometheus.NewPrometheusSink()
	if err != nil {
		return xerror.Wrap(err, xerror.Normal, "init prometheus sink failed")
	}

	if _, err := metrics.NewGlobal(metrics.DefaultConfig(serviceName), sink); err != nil {
		return xerror.Wrap(err, xerror.Normal, "new global metrics failed")
	}

	return nil
}

func AddError(err error) {
	metrics.IncrCounter(ErrorMetrics(err).Tag(), 1)
}

func JobStarted() {
	metrics.IncrCounter(DashboardMetrics().ActiveJobs().Tag(), 1)
}

func JobFinished() {
	metrics.IncrCounter(DashboardMetrics().ActiveJobs().Tag(), -1)
}

// RangeProcessed records one HASH-probe-resolved range for tableName,
// the hash algorithm's rowCount rows it covered, and whether that probe
// found a mismatch (and so needed a ROWS fetch/apply) or matched
// outright.
func RangeProcessed(tableName string, rowCount int, mismatched bool) {
	metrics.IncrCounter(TableMetrics(tableName).RangesProcessed().Tag(), 1)
	metrics.IncrCounter(TableMetrics(tableName).RowsHashed().Tag(), float32(rowCount))
	if mismatched {
		metrics.IncrCounter(TableMetrics(tableName).HashMismatches().Tag(), 1)
	}
}

// RowsConverged records rowsChanged rows inserted/replaced/deleted for
// tableName by one sync job run.
func RowsConverged(tableName string, rowsChanged int) {
	metrics.IncrCounter(TableMetrics(tableName).RowsChanged().Tag(), float32(rowsChanged))
	metrics.IncrCounter(DashboardMetrics().RowsConverged().Tag(), float32(rowsChanged))
}
