package registry

import "errors"

// Sentinel errors returned by Registry operations.  Every one of them
// is terminal: the call was rejected and no state was changed.
var (
	// ErrUnauthorized is returned when the caller is not allowed to
	// perform the operation (non-owner adding a spot, non-renter
	// releasing one, anonymous caller reserving).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrDuplicateID is returned when a spot with the same id exists.
	ErrDuplicateID = errors.New("spot id already exists")

	// ErrNotFound is returned when no spot has the requested id.
	ErrNotFound = errors.New("spot not found")

	// ErrNotAvailable is returned when reserving a spot that is held.
	ErrNotAvailable = errors.New("spot is not available")

	// ErrIncorrectPayment is returned when the payment differs from the
	// spot's hourly price in either direction.
	ErrIncorrectPayment = errors.New("incorrect payment amount")

	// ErrInvalidSpot is returned for a zero id or a blank or overlong
	// location.
	ErrInvalidSpot = errors.New("invalid spot")

	// ErrOwnerMismatch is returned by New when the store was claimed by
	// a different owner.
	ErrOwnerMismatch = errors.New("registry already owned by another identity")

	// ErrNothingToWithdraw is returned by Withdraw when no funds are held.
	ErrNothingToWithdraw = errors.New("no funds held")
)
