// Package syncjob implements the destination-side orchestrator spec.md
// names only as "the destination drives": it walks one table's key space
// top-down, asking the source protocol engine for range/hash/row
// information and applying whatever rows diverge, via an explicit
// state-machine loop in the shape of the teacher's ccr/checker.go (a
// `state` field, a `next()` transition function kept separate from the
// per-state `handle*` actions, and a `run()` dispatch loop).
package syncjob

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rowsync/rowsync/pkg/applier"
	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/hashalgo"
	"github.com/rowsync/rowsync/pkg/rowretriever"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/wire"
	"github.com/rowsync/rowsync/pkg/xerror"
	"github.com/rowsync/rowsync/pkg/xmetrics"
)

// MinRangeRows bounds jobStateRecurse's bisection: a mismatched range
// estimated at or below this many rows goes straight to jobStateFetchRows
// instead of splitting further, analogous to the source engine's
// 10,000-row ROWS batching cap but tuned smaller since it bounds
// recursion depth rather than one SQL query's result set.
const MinRangeRows = 1000

// probeHashRowCount is how many rows a single HASH request asks the
// source to cover. It is large enough that most ranges resolve in one
// probe; a range that hits the cap is treated the same as any other
// mismatch and gets bisected like any other, since a full re-hash of the
// remainder happens naturally once its sub-ranges are probed in turn.
const probeHashRowCount = 100000

type jobState int

const (
	jobStateRange jobState = iota
	jobStateHash
	jobStateCompare
	jobStateRecurse
	jobStateFetchRows
	jobStateCheckpoint
	jobStateDone
	jobStateError
)

func (s jobState) String() string {
	switch s {
	case jobStateRange:
		return "jobStateRange"
	case jobStateHash:
		return "jobStateHash"
	case jobStateCompare:
		return "jobStateCompare"
	case jobStateRecurse:
		return "jobStateRecurse"
	case jobStateFetchRows:
		return "jobStateFetchRows"
	case jobStateCheckpoint:
		return "jobStateCheckpoint"
	case jobStateDone:
		return "jobStateDone"
	case jobStateError:
		return "jobStateError"
	default:
		return fmt.Sprintf("unknown job state %d", int(s))
	}
}

// rangeWork is one not-yet-resolved key range awaiting a HASH probe. It
// holds only the range's bounds; whether a mismatch bisects further or
// goes straight to a row fetch is decided from the row counts of the
// latest HASH probe and local hash.
type rangeWork struct {
	prevKey, lastKey wire.ColumnValues
}

// Job drives one table's full sync against a source protocol engine
// reachable over output/input, converging client's copy of the table to
// match. Ranges are resolved in ascending key order via a LIFO stack,
// which keeps matched_up_to_key always advancing forward, never
// backward, so Checkpointer only ever needs to persist one growing
// prefix.
type Job struct {
	client      dbcap.DatabaseClient
	table       *schema.Table
	output      *wire.Packer
	input       *wire.Unpacker
	checkpoint  Checkpointer
	log         *logrus.Entry
	applier     *applier.RowApplier

	hashAlgorithm  hashalgo.Algorithm
	matchedUpToKey wire.ColumnValues
	rowsConverged  int

	stack   []rangeWork
	current rangeWork
	hash    hashProbe

	localHashRowCount int
	localHashDigest   []byte
	recursed          bool

	state jobState
	err   error
}

type hashProbe struct {
	sourceRowCount int
	sourceDigest   []byte
}

// NewJob prepares a job for table, reading/writing the given source
// connection streams and converging client's copy via checkpoint for
// progress persistence. Pass NopCheckpointer{} for one-shot runs.
func NewJob(client dbcap.DatabaseClient, table *schema.Table, input *wire.Unpacker, output *wire.Packer, checkpoint Checkpointer, log *logrus.Entry) *Job {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Job{
		client:        client,
		table:         table,
		output:        output,
		input:         input,
		checkpoint:    checkpoint,
		log:           log,
		applier:       applier.NewRowApplier(client, table),
		hashAlgorithm: hashalgo.Default,
	}
}

// RowsConverged returns the total number of rows inserted, replaced, or
// deleted so far.
func (j *Job) RowsConverged() int {
	return j.applier.RowsChanged()
}

// State returns the job's current state-machine state as a string, for
// status reporting.
func (j *Job) State() string {
	return j.state.String()
}

// TableName returns the name of the table this job is converging.
func (j *Job) TableName() string {
	return j.table.Name
}

// Run drives the table to convergence or returns the first error
// encountered. The row applier's pending batches are flushed before
// returning, matching or not, since §4.4's "apply on scope exit" rule
// holds on every return path.
func (j *Job) Run() error {
	j.state = jobStateRange
	xmetrics.JobStarted()
	defer xmetrics.JobFinished()

	for {
		j.log.Debugf("sync job state: %s", j.state)
		switch j.state {
		case jobStateRange:
			j.handleRange()
		case jobStateHash:
			j.handleHash()
		case jobStateCompare:
			j.handleCompare()
		case jobStateRecurse:
			j.handleRecurse()
		case jobStateFetchRows:
			j.handleFetchRows()
		case jobStateCheckpoint:
			j.handleCheckpoint()
		case jobStateDone:
			j.sendQuit()
			return j.finish(nil)
		case jobStateError:
			j.sendQuit()
			return j.finish(j.err)
		default:
			j.err = xerror.Errorf(xerror.Sync, "unknown sync job state %d", int(j.state))
			return j.finish(j.err)
		}
		j.next()
	}
}

func (j *Job) next() {
	if j.err != nil {
		j.state = jobStateError
		return
	}

	switch j.state {
	case jobStateRange:
		if j.current.lastKey.Empty() {
			// source table is empty: one FetchRows/apply call clears
			// whatever the destination still holds and we're done
			j.state = jobStateFetchRows
		} else {
			// probe the whole table, open past the source's last key, so
			// destination rows beyond it are compared and cleared too
			j.current.lastKey = nil
			j.state = jobStateHash
		}
	case jobStateHash:
		j.state = jobStateCompare
	case jobStateCompare:
		if j.rangeMatches() {
			j.state = jobStateCheckpoint
		} else {
			j.state = jobStateRecurse
		}
	case jobStateRecurse:
		if j.recursed {
			j.state = jobStateHash
		} else {
			j.state = jobStateFetchRows
		}
	case jobStateFetchRows:
		j.state = jobStateCheckpoint
	case jobStateCheckpoint:
		if len(j.stack) == 0 {
			j.state = jobStateDone
		} else {
			j.current = j.pop()
			j.state = jobStateHash
		}
	default:
		j.err = xerror.Errorf(xerror.Sync, "unexpected sync job state %s in next()", j.state)
		j.state = jobStateError
	}
}

func (j *Job) pop() rangeWork {
	n := len(j.stack) - 1
	w := j.stack[n]
	j.stack = j.stack[:n]
	return w
}

func (j *Job) finish(err error) error {
	if applyErr := j.applier.Apply(); applyErr != nil && err == nil {
		err = applyErr
	}
	j.rowsConverged = j.applier.RowsChanged()
	xmetrics.RowsConverged(j.table.Name, j.rowsConverged)
	if err != nil {
		xmetrics.AddError(err)
	}
	return err
}

func (j *Job) handleRange() {
	if err := j.output.PackFrame(int64(wire.Range), j.table.Name); err != nil {
		j.err = xerror.Wrap(err, xerror.Protocol, "send RANGE failed")
		return
	}
	if err := j.output.Flush(); err != nil {
		j.err = xerror.Wrap(err, xerror.Protocol, "flush RANGE failed")
		return
	}

	reply, err := j.input.UnpackFrame()
	if err != nil {
		j.err = xerror.Wrap(err, xerror.Protocol, "read RANGE reply failed")
		return
	}
	firstKey, err := wire.ArgColumnValues(reply, 2)
	if err != nil {
		j.err = err
		return
	}
	lastKey, err := wire.ArgColumnValues(reply, 3)
	if err != nil {
		j.err = err
		return
	}

	j.current = rangeWork{prevKey: nil, lastKey: lastKey}
	_ = firstKey // the least key itself isn't needed: our range always starts from the open beginning
}

func (j *Job) handleHash() {
	w := j.current

	if err := j.output.PackFrame(int64(wire.Hash), j.table.Name, w.prevKey, w.lastKey, int64(probeHashRowCount)); err != nil {
		j.err = xerror.Wrap(err, xerror.Protocol, "send HASH failed")
		return
	}
	if err := j.output.Flush(); err != nil {
		j.err = xerror.Wrap(err, xerror.Protocol, "flush HASH failed")
		return
	}

	reply, err := j.input.UnpackFrame()
	if err != nil {
		j.err = xerror.Wrap(err, xerror.Protocol, "read HASH reply failed")
		return
	}
	rowCount, err := wire.ArgInt64(reply, 5)
	if err != nil {
		j.err = err
		return
	}
	digest, err := wire.ArgBytes(reply, 6)
	if err != nil {
		j.err = err
		return
	}

	j.hash = hashProbe{sourceRowCount: int(rowCount), sourceDigest: digest}
}

func (j *Job) rangeMatches() bool {
	if j.hash.sourceRowCount >= probeHashRowCount {
		// the probe stopped at its cap, so rows past it were not compared
		return false
	}
	return j.hash.sourceRowCount == j.localHashRowCount && bytesEqual(j.hash.sourceDigest, j.localHashDigest)
}

func (j *Job) handleCompare() {
	w := j.current

	hasher, err := hashalgo.NewRowHasher(j.hashAlgorithm)
	if err != nil {
		j.err = xerror.Wrap(err, xerror.Sync, "construct row hasher failed")
		return
	}
	rowCount, err := rowretriever.Retrieve(j.client, j.table, w.prevKey, w.lastKey, probeHashRowCount, hasher.AbsorbRow)
	if err != nil {
		j.err = err
		return
	}

	j.localHashRowCount = rowCount
	j.localHashDigest = hasher.Finish()

	xmetrics.RangeProcessed(j.table.Name, j.hash.sourceRowCount, !j.rangeMatches())
}

func (j *Job) handleRecurse() {
	w := j.current
	j.recursed = false

	estimate := j.hash.sourceRowCount
	if j.localHashRowCount > estimate {
		estimate = j.localHashRowCount
	}
	if estimate <= MinRangeRows {
		return // stays on the current range; next() routes to jobStateFetchRows
	}

	half := estimate / 2
	if half < 1 {
		half = 1
	}

	midKey, found := j.midpointKey(w.prevKey, w.lastKey, half)
	if !found {
		// destination has no rows in range to anchor a split on; a
		// mismatch with nothing to bisect against can only be resolved
		// by fetching the whole range
		return
	}

	j.stack = append(j.stack, rangeWork{prevKey: midKey, lastKey: w.lastKey})
	j.current = rangeWork{prevKey: w.prevKey, lastKey: midKey}
	j.recursed = true
}

func (j *Job) midpointKey(prevKey, lastKey wire.ColumnValues, count int) (wire.ColumnValues, bool) {
	var lastSeen wire.ColumnValues
	seen := 0
	_, err := rowretriever.Retrieve(j.client, j.table, prevKey, lastKey, count, func(row []*string) {
		seen++
		lastSeen = wire.RowFromPtrs(row).PrimaryKey(j.table.PrimaryKeyColumns)
	})
	if err != nil {
		j.err = err
		return nil, false
	}
	return lastSeen, seen > 0
}

func (j *Job) handleFetchRows() {
	w := j.current

	if err := j.output.PackFrame(int64(wire.Rows), j.table.Name, w.prevKey, w.lastKey); err != nil {
		j.err = xerror.Wrap(err, xerror.Protocol, "send ROWS failed")
		return
	}
	if err := j.output.Flush(); err != nil {
		j.err = xerror.Wrap(err, xerror.Protocol, "flush ROWS failed")
		return
	}

	if _, err := j.input.UnpackFrame(); err != nil { // ROWS header echo
		j.err = xerror.Wrap(err, xerror.Protocol, "read ROWS header failed")
		return
	}

	var rows []wire.NullableRow
	for {
		frame, err := j.input.UnpackFrame()
		if err != nil {
			j.err = xerror.Wrap(err, xerror.Protocol, "read row failed")
			return
		}
		if len(frame) == 0 {
			break
		}
		row, err := wire.FrameToNullableRow(frame)
		if err != nil {
			j.err = err
			return
		}
		rows = append(rows, row)
	}

	if _, err := j.applier.ApplyRange(w.prevKey, w.lastKey, rows); err != nil {
		j.err = err
		return
	}
}

func (j *Job) handleCheckpoint() {
	j.matchedUpToKey = j.current.lastKey
	if err := j.checkpoint.SaveCheckpoint(j.table.Name, []string(j.matchedUpToKey), j.hashAlgorithm); err != nil {
		j.err = err
	}
}

func (j *Job) sendQuit() {
	if err := j.output.PackFrame(int64(wire.Quit)); err != nil {
		return
	}
	j.output.Flush()
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
