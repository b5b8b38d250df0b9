package ledger

import "errors"

var (
	// ErrDuplicateCompany is returned when a company id is already registered.
	ErrDuplicateCompany = errors.New("company already exists")
	// ErrUnknownCompany is returned when an operation names a company that does not exist.
	ErrUnknownCompany = errors.New("company does not exist")
	// ErrInvalidIndex is returned for a positional index outside [0, len).
	ErrInvalidIndex = errors.New("invalid transaction index")
	// ErrUnknownTransaction is returned when a transaction id is not present in the company.
	ErrUnknownTransaction = errors.New("transaction does not exist")
	// ErrDuplicateTransaction is returned when a transaction id is already stored.
	ErrDuplicateTransaction = errors.New("transaction already exists")
	// ErrInvalidInput is returned when ids or names are empty or a transaction
	// belongs to a different company than the one it is added to.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStorageUnavailable wraps backend read and write failures.
	ErrStorageUnavailable = errors.New("ledger storage unavailable")
	// ErrCorrupt is returned when the stored document cannot be parsed.
	ErrCorrupt = errors.New("ledger document is corrupt")
)

// IsUserError reports whether err is something the caller can fix by
// changing its input. Storage failures are never user errors.
func IsUserError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrStorageUnavailable) || errors.Is(err, ErrCorrupt) {
		return false
	}
	for _, target := range []error{
		ErrDuplicateCompany,
		ErrUnknownCompany,
		ErrInvalidIndex,
		ErrUnknownTransaction,
		ErrDuplicateTransaction,
		ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
