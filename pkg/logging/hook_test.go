package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestHook_TagsEntryWithGoroutineTable(t *testing.T) {
	SetGoroutineTable("orders")
	defer ClearGoroutineTable()

	hook := NewHook()
	entry := logrus.NewEntry(logrus.StandardLogger())
	entry.Data = logrus.Fields{}

	assert.NoError(t, hook.Fire(entry))
	assert.Equal(t, "orders", entry.Data["table"])
}

func TestHook_LeavesFieldUnsetWithoutGoroutineTable(t *testing.T) {
	ClearGoroutineTable()

	hook := NewHook()
	entry := logrus.NewEntry(logrus.StandardLogger())
	entry.Data = logrus.Fields{}

	assert.NoError(t, hook.Fire(entry))
	assert.NotContains(t, entry.Data, "table")
}
