package jobstore

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/rowsync/rowsync/pkg/hashalgo"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// PostgreSQLStore persists checkpoints in a "checkpoints" table, grounded
// on pkg/storage/postgresql.go's NewPostgresqlDB create-schema-then-
// create-tables startup sequence.
type PostgreSQLStore struct {
	db      *sql.DB
	jobName string
}

// NewPostgreSQLStore opens (creating the schema if absent) a checkpoint
// store for jobName at host:port/database as user.
func NewPostgreSQLStore(host string, port int, user, password, database, jobName string) (*PostgreSQLStore, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable", user, password, host, port, database)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "jobstore postgresql: open %s:%d failed", host, port)
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS checkpoints (" +
		"job_name VARCHAR(128), table_name VARCHAR(128), progress TEXT, " +
		"PRIMARY KEY (job_name, table_name))"); err != nil {
		db.Close()
		return nil, xerror.Wrap(err, xerror.Database, "jobstore postgresql: create table checkpoints failed")
	}

	return &PostgreSQLStore{db: db, jobName: jobName}, nil
}

func (s *PostgreSQLStore) Close() error { return s.db.Close() }

func (s *PostgreSQLStore) SaveCheckpoint(tableName string, matchedUpToKey []string, algorithm hashalgo.Algorithm) error {
	progress, err := encodeProgress(matchedUpToKey, algorithm)
	if err != nil {
		return err
	}
	sqlText := fmt.Sprintf(
		"INSERT INTO checkpoints (job_name, table_name, progress) VALUES ('%s', '%s', '%s') "+
			"ON CONFLICT (job_name, table_name) DO UPDATE SET progress = EXCLUDED.progress",
		s.jobName, tableName, progress)
	if _, err := s.db.Exec(sqlText); err != nil {
		return xerror.Wrapf(err, xerror.Database, "jobstore postgresql: save checkpoint for %s failed", tableName)
	}
	return nil
}

// LoadCheckpoint returns the last saved checkpoint for tableName, or
// found=false if none exists yet.
func (s *PostgreSQLStore) LoadCheckpoint(tableName string) (matchedUpToKey []string, algorithm hashalgo.Algorithm, found bool, err error) {
	var progress string
	row := s.db.QueryRow(fmt.Sprintf("SELECT progress FROM checkpoints WHERE job_name = '%s' AND table_name = '%s'", s.jobName, tableName))
	if scanErr := row.Scan(&progress); scanErr == sql.ErrNoRows {
		return nil, 0, false, nil
	} else if scanErr != nil {
		return nil, 0, false, xerror.Wrapf(scanErr, xerror.Database, "jobstore postgresql: load checkpoint for %s failed", tableName)
	}
	matchedUpToKey, algorithm, err = decodeProgress(progress)
	if err != nil {
		return nil, 0, false, err
	}
	return matchedUpToKey, algorithm, true, nil
}
