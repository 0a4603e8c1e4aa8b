package domain

import "errors"

var (
	// ErrNotFound reports a lookup by id that matched nothing.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyGenerated reports an attempt to generate a post for a
	// candidate that already has one; retry is only allowed from error.
	ErrAlreadyGenerated = errors.New("candidate already generated")

	// ErrNoGenerator reports that the generation client is not configured.
	// Ranking and pool maintenance are unaffected by this condition.
	ErrNoGenerator = errors.New("generation client not configured")

	// ErrInvalidStatus reports a post status outside the review workflow.
	ErrInvalidStatus = errors.New("invalid post status")
)
