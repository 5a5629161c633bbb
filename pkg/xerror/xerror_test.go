package xerror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategory(t *testing.T) {
	assert.Equal(t, "normal", Normal.Name())
	assert.Equal(t, "command", Command.Name())
	assert.Equal(t, "sync", Sync.Name())
	assert.Equal(t, "database", Database.Name())
	assert.Equal(t, "protocol", Protocol.Name())
}

func TestErrorf(t *testing.T) {
	err := Errorf(Command, "unknown verb %d", 99)
	assert.NotNil(t, err)

	var xerr *XError
	assert.True(t, errors.As(err, &xerr))
	assert.Equal(t, fmt.Sprintf("[%s] %s", Command.Name(), "unknown verb 99"), xerr.Error())
	assert.Equal(t, Command, xerr.Category())
}

func TestWrapNilIsNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, Database, "should stay nil"))
	assert.Nil(t, Wrapf(nil, Database, "should stay nil: %d", 1))
}

func TestWrapPreservesCategory(t *testing.T) {
	base := errors.New("connection refused")
	wrapped := Wrap(base, Database, "retrieve rows failed")

	var xerr *XError
	assert.True(t, errors.As(wrapped, &xerr))
	assert.Equal(t, Database, xerr.Category())
	assert.Equal(t, base.Error(), xerr.Unwrap().Error())
}

func TestCategoryOf(t *testing.T) {
	cat, ok := CategoryOf(Errorf(Protocol, "short frame"))
	assert.True(t, ok)
	assert.Equal(t, Protocol, cat)

	_, ok = CategoryOf(errors.New("plain error"))
	assert.False(t, ok)
}
