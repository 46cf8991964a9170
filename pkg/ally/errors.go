package ally

import "errors"

var (
	// ErrUnknownKind is returned when a queued message has no send operation.
	ErrUnknownKind = errors.New("unknown outbound message kind")

	// ErrDiscarded marks a message dropped from the queue before delivery.
	ErrDiscarded = errors.New("discarded before delivery")

	// ErrInvalidStatus is returned for a user status other than good, okay
	// or need_help.
	ErrInvalidStatus = errors.New("invalid user status")
)
