package director

import "errors"

var (
	// ErrUnexpectedRecord means the provider returned a record that cannot
	// produce rows. The director panics with an error wrapping it.
	ErrUnexpectedRecord = errors.New("unexpected record in result provider")

	// ErrNotOnUIQueue means a UI-affine operation was called off the UI loop.
	ErrNotOnUIQueue = errors.New("director used off the UI queue")

	// ErrSectionIndex means a flat section index is outside the layout.
	ErrSectionIndex = errors.New("section index out of range")
)
