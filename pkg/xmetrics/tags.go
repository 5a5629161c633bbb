package xmetrics

import "github.com/rowsync/rowsync/pkg/xerror"

// IMetricsTag yields the dotted metric name hashicorp/go-metrics expects
// as a []string, built up fluently the way the teacher's metricsTag
// composition does.
type IMetricsTag interface {
	Tag() []string
}

type metricsTag struct {
	tags []string
}

// dashboard metrics
type dashboardMetrics struct {
	metricsTag
}

func DashboardMetrics() *dashboardMetrics {
	return &dashboardMetrics{
		metricsTag: metricsTag{[]string{"dashboard"}},
	}
}

func (d *dashboardMetrics) Tag() []string {
	return d.tags
}

func (d *dashboardMetrics) ActiveJobs() IMetricsTag {
	d.tags = append(d.tags, "activeJobs")
	return d
}

func (d *dashboardMetrics) RowsConverged() IMetricsTag {
	d.tags = append(d.tags, "rowsConverged")
	return d
}

// table metrics, keyed by table name the way the teacher's jobMetrics is
// keyed by job name
type tableMetrics struct {
	metricsTag
	name string
}

func TableMetrics(tableName string) *tableMetrics {
	return &tableMetrics{
		metricsTag: metricsTag{[]string{"table"}},
		name:       tableName,
	}
}

func (t *tableMetrics) Tag() []string {
	t.tags = append(t.tags, t.name)
	return t.tags
}

func (t *tableMetrics) RowsHashed() IMetricsTag {
	t.tags = append(t.tags, "rowsHashed")
	return t
}

func (t *tableMetrics) RowsChanged() IMetricsTag {
	t.tags = append(t.tags, "rowsChanged")
	return t
}

func (t *tableMetrics) RangesProcessed() IMetricsTag {
	t.tags = append(t.tags, "rangesProcessed")
	return t
}

func (t *tableMetrics) HashMismatches() IMetricsTag {
	t.tags = append(t.tags, "hashMismatches")
	return t
}

// error metrics, keyed by the failing operation's xerror.Category
type errorMetrics struct {
	metricsTag
}

func ErrorMetrics(err error) IMetricsTag {
	name := "unknown"
	if cat, ok := xerror.CategoryOf(err); ok {
		name = cat.Name()
	}
	return &errorMetrics{
		metricsTag: metricsTag{[]string{"error", name}},
	}
}

func (e *errorMetrics) Tag() []string {
	return e.tags
}
