// Package syncfrom implements the source ("from") side protocol engine of
// §4.3: it reads verbs off a framed stream, consults a database client,
// and replies, serving exactly the table named by whatever verb it's
// given — it never initiates anything itself. Data flow: the destination
// drives.
package syncfrom

import (
	"github.com/sirupsen/logrus"

	"github.com/rowsync/rowsync/pkg/dbcap"
	"github.com/rowsync/rowsync/pkg/hashalgo"
	"github.com/rowsync/rowsync/pkg/rowretriever"
	"github.com/rowsync/rowsync/pkg/schema"
	"github.com/rowsync/rowsync/pkg/wire"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// rowsPerQuery bounds how many rows a single ROWS batch pulls from
// the database in one query, chaining on the last emitted key so the
// client still observes one contiguous stream (§4.3's ROWS verb note).
const rowsPerQuery = 10000

// Engine is one source-side connection's worth of protocol state: which
// hash algorithm is currently negotiated, and the set of tables it's
// willing to serve.
type Engine struct {
	client         dbcap.DatabaseClient
	tablesByName   map[string]*schema.Table
	input          *wire.Unpacker
	output         *wire.Packer
	hashAlgorithm  hashalgo.Algorithm
	snapshotWorker SnapshotWorker
	log            *logrus.Entry
}

// NewEngine constructs an engine that reads verbs from input and writes
// replies to output, serving the given tables against client. snapshot
// handles the snapshot/schema/filter verbs out of the engine's own
// scope; pass NopSnapshotWorker{} if those verbs only need to
// round-trip.
func NewEngine(client dbcap.DatabaseClient, tables []*schema.Table, input *wire.Unpacker, output *wire.Packer, snapshot SnapshotWorker, log *logrus.Entry) *Engine {
	tablesByName := make(map[string]*schema.Table, len(tables))
	for _, t := range tables {
		tablesByName[t.Name] = t
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		client:         client,
		tablesByName:   tablesByName,
		input:          input,
		output:         output,
		hashAlgorithm:  hashalgo.Default,
		snapshotWorker: snapshot,
		log:            log,
	}
}

// HandleCommands runs the verb dispatch loop until a QUIT verb is
// received or an unrecoverable protocol error occurs.
func (e *Engine) HandleCommands() error {
	for {
		args, err := e.input.UnpackFrame()
		if err != nil {
			return xerror.Wrap(err, xerror.Protocol, "read verb failed")
		}
		verb, err := wire.ArgInt64(args, 0)
		if err != nil {
			return err
		}

		switch wire.Verb(verb) {
		case wire.Range:
			err = e.handleRange(args[1:])
		case wire.Hash:
			err = e.handleHash(args[1:])
		case wire.Rows:
			err = e.handleRows(args[1:])
		case wire.ExportSnapshot:
			err = e.snapshotWorker.HandleExportSnapshot(args[1:], e.output)
		case wire.ImportSnapshot:
			err = e.snapshotWorker.HandleImportSnapshot(args[1:], e.output)
		case wire.UnholdSnapshot:
			err = e.snapshotWorker.HandleUnholdSnapshot(args[1:], e.output)
		case wire.WithoutSnapshot:
			err = e.snapshotWorker.HandleWithoutSnapshot(args[1:], e.output)
		case wire.Schema:
			err = e.snapshotWorker.HandleSchema(args[1:], e.output)
		case wire.TargetBlockSize:
			err = e.handleTargetBlockSize(args[1:])
		case wire.HashAlgorithm:
			err = e.handleHashAlgorithm(args[1:])
		case wire.Filters:
			err = e.snapshotWorker.HandleFilters(args[1:], e.output)
		case wire.Quit:
			return nil
		default:
			return xerror.Errorf(xerror.Command, "unknown verb %d", verb)
		}
		if err != nil {
			return err
		}
		if err := e.output.Flush(); err != nil {
			return xerror.Wrap(err, xerror.Protocol, "flush reply failed")
		}
	}
}

func (e *Engine) tableNamed(name string) (*schema.Table, error) {
	t, ok := e.tablesByName[name]
	if !ok {
		return nil, xerror.Errorf(xerror.Command, "unknown table %q", name)
	}
	return t, nil
}

func (e *Engine) handleRange(args []interface{}) error {
	tableName, err := wire.ArgString(args, 0)
	if err != nil {
		return err
	}
	table, err := e.tableNamed(tableName)
	if err != nil {
		return err
	}
	e.log.Infof("syncing %s", tableName)

	firstKey, err := rowretriever.FirstKey(e.client, table)
	if err != nil {
		return err
	}
	lastKey, err := rowretriever.LastKey(e.client, table)
	if err != nil {
		return err
	}

	return e.output.PackFrame(int64(wire.Range), tableName, wire.ColumnValues(firstKey), wire.ColumnValues(lastKey))
}

func (e *Engine) handleHash(args []interface{}) error {
	tableName, err := wire.ArgString(args, 0)
	if err != nil {
		return err
	}
	prevKey, err := wire.ArgColumnValues(args, 1)
	if err != nil {
		return err
	}
	lastKey, err := wire.ArgColumnValues(args, 2)
	if err != nil {
		return err
	}
	rowsToHash, err := wire.ArgInt64(args, 3)
	if err != nil {
		return err
	}
	table, err := e.tableNamed(tableName)
	if err != nil {
		return err
	}
	e.log.Infof("syncing %s", tableName)

	hasher, err := hashalgo.NewRowHasher(e.hashAlgorithm)
	if err != nil {
		return xerror.Wrap(err, xerror.Protocol, "construct row hasher failed")
	}

	rowCount, err := rowretriever.Retrieve(e.client, table, prevKey, lastKey, int(rowsToHash), hasher.AbsorbRow)
	if err != nil {
		return err
	}

	return e.output.PackFrame(int64(wire.Hash), tableName, prevKey, lastKey, rowsToHash, int64(rowCount), hasher.Finish())
}

func (e *Engine) handleRows(args []interface{}) error {
	tableName, err := wire.ArgString(args, 0)
	if err != nil {
		return err
	}
	prevKey, err := wire.ArgColumnValues(args, 1)
	if err != nil {
		return err
	}
	lastKey, err := wire.ArgColumnValues(args, 2)
	if err != nil {
		return err
	}
	table, err := e.tableNamed(tableName)
	if err != nil {
		return err
	}
	e.log.Infof("syncing %s", tableName)

	if err := e.output.PackFrame(int64(wire.Rows), tableName, prevKey, lastKey); err != nil {
		return xerror.Wrap(err, xerror.Protocol, "write rows header failed")
	}

	// batching only works consistently with a usable primary key; without
	// one, a single unbounded query is required (§4.3's ROWS note).
	batchSize := rowsPerQuery
	if table.PrimaryKeyType == schema.NoAvailableKey {
		batchSize = rowretriever.NoRowCountLimit
	}

	for {
		var lastRowKey wire.ColumnValues
		var packErr error
		rowCount, retrieveErr := rowretriever.Retrieve(e.client, table, prevKey, lastKey, batchSize, func(row []*string) {
			if packErr != nil {
				return
			}
			nrow := wire.RowFromPtrs(row)
			if err := e.output.PackRowFrame(nrow); err != nil {
				packErr = err
				return
			}
			lastRowKey = nrow.PrimaryKey(table.PrimaryKeyColumns)
		})
		if retrieveErr != nil {
			return retrieveErr
		}
		if packErr != nil {
			return xerror.Wrap(packErr, xerror.Protocol, "write row failed")
		}
		if rowCount != batchSize || batchSize == rowretriever.NoRowCountLimit {
			break
		}
		prevKey = lastRowKey
	}

	// terminate the row stream with an empty-row frame (§4.3's ROWS verb)
	if err := e.output.PackRowFrame(wire.NullableRow{}); err != nil {
		return xerror.Wrap(err, xerror.Protocol, "write rows terminator failed")
	}
	return nil
}

func (e *Engine) handleHashAlgorithm(args []interface{}) error {
	requested, err := wire.ArgInt64(args, 0)
	if err != nil {
		return err
	}
	e.hashAlgorithm = hashalgo.Negotiate(e.hashAlgorithm, hashalgo.Algorithm(requested))
	return e.output.PackFrame(int64(wire.HashAlgorithm), int64(e.hashAlgorithm))
}

func (e *Engine) handleTargetBlockSize(args []interface{}) error {
	n, err := wire.ArgInt64(args, 0)
	if err != nil {
		return err
	}
	// deprecated: older versions require the requested size echoed back unchanged
	return e.output.PackFrame(int64(wire.TargetBlockSize), n)
}
