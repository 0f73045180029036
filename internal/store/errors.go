package store

import "errors"

var (
	// ErrResearchExists indicates an idea already has a research record.
	ErrResearchExists = errors.New("research already exists for idea")

	// ErrNotClaimable indicates an idea is not in a state that permits
	// starting research, or another worker claimed it first.
	ErrNotClaimable = errors.New("idea is not claimable for research")

	// ErrInvalidTransition indicates a status change that the entity's
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)
