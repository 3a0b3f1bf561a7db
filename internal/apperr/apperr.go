// Package apperr defines the error kinds surfaced by the store, the
// reminder coordinator and the backup service. Callers attach a kind with
// %w and test for it with errors.Is or KindOf.
package apperr

import "errors"

// Kind classifies an error for user-facing handling.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindStorage
	KindPermissionDenied
	KindCancelled
	KindInvalidFormat
	KindIncompatibleFile
	KindNoData
)

// Sentinel errors, one per kind.
var (
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrStorage          = errors.New("storage failure")
	ErrPermissionDenied = errors.New("permission denied")
	ErrCancelled        = errors.New("cancelled")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrIncompatibleFile = errors.New("incompatible file")
	ErrNoData           = errors.New("no data")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrValidation, KindValidation},
	{ErrStorage, KindStorage},
	{ErrPermissionDenied, KindPermissionDenied},
	{ErrCancelled, KindCancelled},
	{ErrInvalidFormat, KindInvalidFormat},
	{ErrIncompatibleFile, KindIncompatibleFile},
	{ErrNoData, KindNoData},
}

// KindOf returns the kind of the first sentinel found in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindStorage:
		return "storage_failure"
	case KindPermissionDenied:
		return "permission_denied"
	case KindCancelled:
		return "cancelled"
	case KindInvalidFormat:
		return "invalid_format"
	case KindIncompatibleFile:
		return "incompatible_file"
	case KindNoData:
		return "no_data"
	default:
		return "unknown"
	}
}

// Silent reports whether err should be dropped without alerting the user.
// Only a user-initiated cancellation qualifies.
func Silent(err error) bool {
	return errors.Is(err, ErrCancelled)
}
