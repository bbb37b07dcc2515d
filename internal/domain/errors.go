package domain

import "errors"

// Domain errors
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUnranked         = errors.New("user not present in leaderboard")
	ErrTemplateNotFound = errors.New("image template not found")
	ErrInvalidSession   = errors.New("invalid session event")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInternalError    = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrTemplateNotFound)
}
