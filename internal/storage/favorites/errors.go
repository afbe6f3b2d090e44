package favorites

import "errors"

// Sentinel errors returned by Store operations. Use [errors.Is] to match them.
var (
	// ErrNoCapacity indicates every slot is occupied. The dictionary is left untouched.
	ErrNoCapacity = errors.New("favorites: no free slot")

	// ErrNotFound indicates no slot holds a record with the requested id.
	ErrNotFound = errors.New("favorites: not found")

	// ErrAlreadyExists indicates a record with the same id already occupies a slot.
	ErrAlreadyExists = errors.New("favorites: already exists")

	// ErrInvalidRecord indicates a record without an id was passed to Save.
	ErrInvalidRecord = errors.New("favorites: invalid record")

	// ErrCorrupt indicates a stored slot value could not be decoded.
	ErrCorrupt = errors.New("favorites: corrupt slot value")
)
