package jobstore

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rowsync/rowsync/pkg/hashalgo"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// SQLiteStore persists checkpoints in a "checkpoints" table, grounded on
// storage/sqlite.go's NewSQLiteDB startup sequence and its use of `?`
// placeholders rather than the MySQL/PostgreSQL stores' inline fmt.Sprintf
// quoting.
type SQLiteStore struct {
	db      *sql.DB
	jobName string
}

// NewSQLiteStore opens (creating the schema if absent) a checkpoint
// store for jobName at the database file dbPath.
func NewSQLiteStore(dbPath, jobName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "jobstore sqlite: open %s failed", dbPath)
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS checkpoints (job_name TEXT, table_name TEXT, progress TEXT, PRIMARY KEY (job_name, table_name))"); err != nil {
		db.Close()
		return nil, xerror.Wrap(err, xerror.Database, "jobstore sqlite: create table checkpoints failed")
	}

	return &SQLiteStore{db: db, jobName: jobName}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) SaveCheckpoint(tableName string, matchedUpToKey []string, algorithm hashalgo.Algorithm) error {
	progress, err := encodeProgress(matchedUpToKey, algorithm)
	if err != nil {
		return err
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM checkpoints WHERE job_name = ? AND table_name = ?", s.jobName, tableName).Scan(&count); err != nil {
		return xerror.Wrapf(err, xerror.Database, "jobstore sqlite: query checkpoint for %s failed", tableName)
	}

	if count == 0 {
		_, err = s.db.Exec("INSERT INTO checkpoints (job_name, table_name, progress) VALUES (?, ?, ?)", s.jobName, tableName, progress)
	} else {
		_, err = s.db.Exec("UPDATE checkpoints SET progress = ? WHERE job_name = ? AND table_name = ?", progress, s.jobName, tableName)
	}
	if err != nil {
		return xerror.Wrapf(err, xerror.Database, "jobstore sqlite: save checkpoint for %s failed", tableName)
	}
	return nil
}

// LoadCheckpoint returns the last saved checkpoint for tableName, or
// found=false if none exists yet.
func (s *SQLiteStore) LoadCheckpoint(tableName string) (matchedUpToKey []string, algorithm hashalgo.Algorithm, found bool, err error) {
	var progress string
	row := s.db.QueryRow("SELECT progress FROM checkpoints WHERE job_name = ? AND table_name = ?", s.jobName, tableName)
	if scanErr := row.Scan(&progress); scanErr == sql.ErrNoRows {
		return nil, 0, false, nil
	} else if scanErr != nil {
		return nil, 0, false, xerror.Wrapf(scanErr, xerror.Database, "jobstore sqlite: load checkpoint for %s failed", tableName)
	}
	matchedUpToKey, algorithm, err = decodeProgress(progress)
	if err != nil {
		return nil, 0, false, err
	}
	return matchedUpToKey, algorithm, true, nil
}
