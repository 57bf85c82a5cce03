package emotion

import (
	"errors"
	"fmt"
)

// ErrConfig is the root of every error returned while building a controller.
var ErrConfig = errors.New("emotion config")

var (
	// ErrNoProfiles is returned when the profile list is empty.
	ErrNoProfiles = fmt.Errorf("%w: no profiles", ErrConfig)

	// ErrDuplicateProfile is returned when two profiles share a name.
	ErrDuplicateProfile = fmt.Errorf("%w: duplicate profile", ErrConfig)

	// ErrUnknownDefault is returned when the default emotion is not among the profiles.
	ErrUnknownDefault = fmt.Errorf("%w: unknown default emotion", ErrConfig)

	// ErrInvalidProfile is returned when a profile has malformed fields.
	ErrInvalidProfile = fmt.Errorf("%w: invalid profile", ErrConfig)
)
