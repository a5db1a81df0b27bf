package domain

import "errors"

var (
	// ErrNotFound is returned by lookups (secrets, stored objects) when the
	// requested name does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks transport failures talking to an upstream provider.
	ErrUnavailable = errors.New("upstream unavailable")

	// ErrMalformed marks a feed that cannot be processed at all, e.g. one
	// missing required columns.
	ErrMalformed = errors.New("malformed feed")

	ErrInvalidContact  = errors.New("invalid contact")
	ErrInvalidAreaCode = errors.New("invalid area code")
	ErrInvalidChannel  = errors.New("invalid channel handle")
)

// IsValidation reports whether err is one of the subscriber validation errors.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidContact) ||
		errors.Is(err, ErrInvalidAreaCode) ||
		errors.Is(err, ErrInvalidChannel)
}
