// Package jobstore implements durable per-table sync checkpoints: the
// "matched_up_to_key" progress §4.5 says a restartable job needs, plus
// the negotiated hash algorithm it was last saved with. It is grounded
// on storage/db.go's progresses table/DB interface — one opaque
// progress blob per job name, base64-encoded the way
// pkg/storage/postgresql.go's UpdateProgress/GetProgress already do,
// except the blob here is this package's own JSON checkpointRecord
// instead of the teacher's binlog position string.
package jobstore

import (
	"encoding/base64"
	"encoding/json"

	"github.com/rowsync/rowsync/pkg/hashalgo"
	"github.com/rowsync/rowsync/pkg/xerror"
)

// checkpointRecord is JSON-marshaled, then base64-encoded, before being
// stored as the opaque progress column value.
type checkpointRecord struct {
	MatchedUpToKey []string          `json:"matched_up_to_key"`
	Algorithm      hashalgo.Algorithm `json:"algorithm"`
}

func encodeProgress(matchedUpToKey []string, algorithm hashalgo.Algorithm) (string, error) {
	data, err := json.Marshal(checkpointRecord{MatchedUpToKey: matchedUpToKey, Algorithm: algorithm})
	if err != nil {
		return "", xerror.Wrap(err, xerror.Sync, "jobstore: marshal checkpoint failed")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

func decodeProgress(progress string) ([]string, hashalgo.Algorithm, error) {
	data, err := base64.StdEncoding.DecodeString(progress)
	if err != nil {
		return nil, 0, xerror.Wrap(err, xerror.Sync, "jobstore: base64 decode checkpoint failed")
	}
	var rec checkpointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, 0, xerror.Wrap(err, xerror.Sync, "jobstore: unmarshal checkpoint failed")
	}
	return rec.MatchedUpToKey, rec.Algorithm, nil
}
