// Package xerror wraps errors with a category tag, mirroring the error
// taxonomy of §7: CommandError, SyncError, DatabaseError, ProtocolError.
package xerror

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Category identifies which layer of the sync a failure belongs to.
type Category interface {
	Name() string
}

var (
	// Normal is for ambient failures outside the four wire-protocol
	// categories (config, logging setup, and the like).
	Normal = newCategory("normal")
	// Command marks an unknown verb or malformed verb arguments; fatal
	// to the connection.
	Command = newCategory("command")
	// Sync marks a data- or schema-level divergence the core cannot
	// reconcile, e.g. an observed-null primary key column; fatal to the
	// current table.
	Sync = newCategory("sync")
	// Database marks an error surfaced from the DatabaseClient; fatal to
	// the current operation.
	Database = newCategory("database")
	// Protocol marks stream truncation or frame corruption; fatal.
	Protocol = newCategory("protocol")
)

type category struct{ name string }

func (c *category) Name() string { return c.name }

func newCategory(name string) Category { return &category{name: name} }

// XError is an error tagged with a Category.
type XError struct {
	category Category
	err      error
}

func (e *XError) Category() Category { return e.category }

func (e *XError) Error() string {
	return fmt.Sprintf("[%s] %s", e.category.Name(), e.err.Error())
}

func (e *XError) Unwrap() error { return e.err }

// New creates a category-tagged error with a stack trace attached.
func New(cat Category, message string) error {
	return errors.WithStack(&XError{category: cat, err: stderrors.New(message)})
}

// Errorf is New with fmt.Sprintf-style formatting.
func Errorf(cat Category, format string, args ...interface{}) error {
	return errors.WithStack(&XError{category: cat, err: fmt.Errorf(format, args...)})
}

// Wrap attaches a category and a stack trace to an existing error. Returns
// nil if err is nil.
func Wrap(err error, cat Category, message string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(&XError{category: cat, err: err}, message)
}

// Wrapf is Wrap with fmt.Sprintf-style formatting of the added message.
func Wrapf(err error, cat Category, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(&XError{category: cat, err: err}, format, args...)
}

// CategoryOf extracts the Category of err, if it (or something it wraps)
// is an *XError, along with whether one was found.
func CategoryOf(err error) (Category, bool) {
	var xerr *XError
	if stderrors.As(err, &xerr) {
		return xerr.category, true
	}
	return nil, false
}
