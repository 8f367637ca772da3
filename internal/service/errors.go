package service

import (
	"errors"
	"fmt"
)

var (
	ErrAlreadyCompleted   = errors.New("user has already completed the course")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrUserNotFound       = errors.New("user not found")
	ErrChapterNotFound    = errors.New("chapter not found")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrNoQuestions        = errors.New("chapter has no active questions")
	ErrQuizNotPassed      = errors.New("chapter quiz has not been passed")
	ErrVideoNotWatched    = errors.New("chapter video has not been watched")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAdminNotConfigured = errors.New("admin credentials are not configured")
)

// IncompleteError is returned when a user asks for course completion while
// Active chapters remain unfinished.
type IncompleteError struct {
	Completed int
	Total     int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%d of %d chapters completed", e.Completed, e.Total)
}

// AsIncomplete unwraps an *IncompleteError from err
func AsIncomplete(err error) (*IncompleteError, bool) {
	var ie *IncompleteError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
