package jobstore

import (
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/rowsync/rowsync/pkg/hashalgo"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// MySQLStore persists checkpoints in a "checkpoints" table, grounded on
// storage/mysql.go's NewMysqlDB create-database-then-create-tables
// startup sequence.
type MySQLStore struct {
	db      *sql.DB
	jobName string
}

// NewMySQLStore opens (creating the schema if absent) a checkpoint store
// for jobName at host:port/database as user.
func NewMySQLStore(host string, port int, user, password, database, jobName string) (*MySQLStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/", user, password, host, port)
	bootstrap, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "jobstore mysql: open %s@tcp(%s:%d) failed", user, host, port)
	}
	if _, err := bootstrap.Exec(fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", database)); err != nil {
		bootstrap.Close()
		return nil, xerror.Wrapf(err, xerror.Database, "jobstore mysql: create database %s failed", database)
	}
	bootstrap.Close()

	db, err := sql.Open("mysql", dsn+database)
	if err != nil {
		return nil, xerror.Wrapf(err, xerror.Database, "jobstore mysql: open database %s failed", database)
	}
	if _, err := db.Exec("CREATE TABLE IF NOT EXISTS checkpoints (" +
		"`job_name` VARCHAR(128), `table_name` VARCHAR(128), `progress` VARCHAR(4096), " +
		"PRIMARY KEY (`job_name`, `table_name`))"); err != nil {
		db.Close()
		return nil, xerror.Wrap(err, xerror.Database, "jobstore mysql: create table checkpoints failed")
	}

	return &MySQLStore{db: db, jobName: jobName}, nil
}

func (s *MySQLStore) Close() error { return s.db.Close() }

func (s *MySQLStore) SaveCheckpoint(tableName string, matchedUpToKey []string, algorithm hashalgo.Algorithm) error {
	progress, err := encodeProgress(matchedUpToKey, algorithm)
	if err != nil {
		return err
	}
	sqlText := fmt.Sprintf(
		"INSERT INTO checkpoints (job_name, table_name, progress) VALUES ('%s', '%s', '%s') "+
			"ON DUPLICATE KEY UPDATE progress = '%s'",
		s.jobName, tableName, progress, progress)
	if _, err := s.db.Exec(sqlText); err != nil {
		return xerror.Wrapf(err, xerror.Database, "jobstore mysql: save checkpoint for %s failed", tableName)
	}
	return nil
}

// LoadCheckpoint returns the last saved checkpoint for tableName, or
// found=false if none exists yet.
func (s *MySQLStore) LoadCheckpoint(tableName string) (matchedUpToKey []string, algorithm hashalgo.Algorithm, found bool, err error) {
	var progress string
	row := s.db.QueryRow(fmt.Sprintf("SELECT progress FROM checkpoints WHERE job_name = '%s' AND table_name = '%s'", s.jobName, tableName))
	if scanErr := row.Scan(&progress); scanErr == sql.ErrNoRows {
		return nil, 0, false, nil
	} else if scanErr != nil {
		return nil, 0, false, xerror.Wrapf(scanErr, xerror.Database, "jobstore mysql: load checkpoint for %s failed", tableName)
	}
	matchedUpToKey, algorithm, err = decodeProgress(progress)
	if err != nil {
		return nil, 0, false, err
	}
	return matchedUpToKey, algorithm, true, nil
}
