package jobstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rowsync/rowsync/pkg/hashalgo"
)

func TestEncodeDecodeProgress_RoundTrips(t *testing.T) {
	progress, err := encodeProgress([]string{"42", "abc"}, hashalgo.SHA256)
	require.NoError(t, err)
	assert.NotEmpty(t, progress)

	key, algorithm, err := decodeProgress(progress)
	require.NoError(t, err)
	assert.Equal(t, []string{"42", "abc"}, key)
	assert.Equal(t, hashalgo.SHA256, algorithm)
}

func TestDecodeProgress_RejectsInvalidBase64(t *testing.T) {
	_, _, err := decodeProgress("not valid base64 !!!")
	assert.Error(t, err)
}
