package syncjob

import "github.com/rowsync/rowsync/pkg/hashalgo"

// Checkpointer persists a job's sync progress for one table: its
// matched_up_to_key and negotiated hash algorithm (expansion of §4.5:
// spec.md names the checkpoint concept but not its storage). Job only
// saves checkpoints and never reads one back, so every Run starts from
// the beginning of the table. pkg/jobstore provides the durable
// implementation.
type Checkpointer interface {
	SaveCheckpoint(tableName string, matchedUpToKey []string, algorithm hashalgo.Algorithm) error
}

// NopCheckpointer discards every checkpoint, for one-shot jobs that
// always run a table to completion and never resume.
type NopCheckpointer struct{}

func (NopCheckpointer) SaveCheckpoint(tableName string, matchedUpToKey []string, algorithm hashalgo.Algorithm) error {
	return nil
}
