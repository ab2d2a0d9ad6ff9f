package dpos

import "errors"

// Every failure an action can return wraps one of these sentinels, so callers
// can classify failures with errors.Is without parsing messages.
var (
	// ErrValidation is malformed or conflicting input: an oversized url, an
	// unsorted or oversized producer list, voting for a proxy and producers
	// at the same time, a registration change with no effect.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is a reference to a producer or proxy that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAuthorization is a caller which is not the account an action names.
	ErrAuthorization = errors.New("authorization error")

	// ErrInvariant is state corruption: a proxy or producer which prior state
	// guarantees to exist could not be looked up. It signals an engine bug,
	// never a user error, and is never recovered from.
	ErrInvariant = errors.New("invariant violation")
)
