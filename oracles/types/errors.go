package types

import (
	"errors"

	"pythgo/clock"
	"pythgo/lib/pyth"
)

var (
	ErrInvalidFeedId            = pyth.ErrInvalidFeedId
	ErrFeedMismatch             = errors.New("price update does not contain the requested feed")
	ErrStalePrice               = errors.New("price is stale")
	ErrClockUnavailable         = clock.ErrClockUnavailable
	ErrInsufficientVerification = errors.New("price update has insufficient verification level")
)
