package levelservice

import "errors"

// ErrUnknownOwner is returned by registry implementations when the requested
// owner has no island in the group.
var ErrUnknownOwner = errors.New("unknown owner")

// The only failure texts that reach end users. Internal detail stays in the
// logs.
const (
	ReasonUnknownPlayer = "unknown player"
	ReasonUnavailable   = "level could not be calculated right now"
)
