package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidConfiguration = errors.New("invalid weight configuration")
	ErrValidation           = errors.New("validation error")
	ErrProjectLocked        = errors.New("assessment is finalized")
	ErrNotFound             = errors.New("not found")
	ErrProjectBusy          = errors.New("another recalculation or finalization is in progress")
	ErrSignalsUnavailable   = errors.New("contribution signals unavailable")
)

// Specific lookups wrap ErrNotFound so callers can match either.
var (
	ErrScoreNotFound   = fmt.Errorf("contribution score %w", ErrNotFound)
	ErrProjectNotFound = fmt.Errorf("project %w", ErrNotFound)
	ErrGroupNotFound   = fmt.Errorf("group %w", ErrNotFound)
)
