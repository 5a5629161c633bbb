package applier

import (
	"strings"

	"github.com/rowsync/rowsync/pkg/dbcap"
)

// MaxSensibleInsertCommandSize is the byte-length threshold past which an
// accumulated INSERT/REPLACE batch is flushed, bounding peak statement
// size and memory while amortizing round trips (§4.4 step 5).
const MaxSensibleInsertCommandSize = 1 << 20 // 1 MiB

// BaseSQL accumulates a batched SQL statement — prefix, then
// comma-separated row tuples, then suffix — flushing it via a client once
// content has accumulated, matching the original's BaseSQL builder.
type BaseSQL struct {
	prefix string
	suffix string
	body   strings.Builder
}

// NewBaseSQL constructs a batch builder that will render
// "prefix<row>,<row>,...suffix" when flushed.
func NewBaseSQL(prefix, suffix string) *BaseSQL {
	return &BaseSQL{prefix: prefix, suffix: suffix}
}

// HaveContent reports whether any row has been added since the last Apply.
func (b *BaseSQL) HaveContent() bool {
	return b.body.Len() > 0
}

// AddRowTuple appends one already-rendered "(v1,v2,...)" tuple to the
// batch, separating it from any prior tuple with ",\n".
func (b *BaseSQL) AddRowTuple(tuple string) {
	if b.HaveContent() {
		b.body.WriteString(",\n")
	}
	b.body.WriteString(tuple)
}

// Size returns the current accumulated byte length of the row tuples,
// used to trigger an opportunistic flush past MaxSensibleInsertCommandSize.
func (b *BaseSQL) Size() int {
	return b.body.Len()
}

// Apply executes the accumulated statement via client if there is any
// content, then resets the builder. A no-op when empty.
func (b *BaseSQL) Apply(client dbcap.DatabaseClient) (int64, error) {
	if !b.HaveContent() {
		return 0, nil
	}
	sqlText := b.prefix + b.body.String() + b.suffix
	b.body.Reset()
	return client.Execute(sqlText)
}
