package domain

import "errors"

// Boundary authentication errors. Requests failing these are rejected and
// never processed further.
var (
	ErrStaleRequest = errors.New("request timestamp outside freshness window")
	ErrBadSignature = errors.New("request signature mismatch")
)

// Classification errors. Both fail closed: the caller treats the message as
// not a commitment and creates nothing.
var (
	ErrNoProvider  = errors.New("no reasoning provider configured")
	ErrUnparseable = errors.New("unparseable classifier response")
)

// Lifecycle errors. Only a successful cancel mutates state; each of these
// maps to a distinct user-facing notice at the router.
var (
	ErrNotFound       = errors.New("no tracked commitment for key")
	ErrUnauthorized   = errors.New("only the original author may cancel")
	ErrWindowExpired  = errors.New("cancellation window expired")
	ErrDeletionFailed = errors.New("tracker task deletion failed")
)
