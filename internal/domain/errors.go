package domain

import "errors"

var (
	// ErrUnauthorized indicates the current session token was rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned when a login attempt is rejected.
	ErrInvalidCredentials = errors.New("invalid username or posting key")
	// ErrUserNotFound is returned when the profile owner does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidLevel indicates a level outside 1..MaxLevel.
	ErrInvalidLevel = errors.New("invalid level")
	// ErrLevelLocked indicates the player has not unlocked the level yet.
	ErrLevelLocked = errors.New("level not unlocked yet")
	// ErrAnswerCount indicates the submission length does not match the question count.
	ErrAnswerCount = errors.New("invalid number of answers")
	// ErrNoSession is returned when an operation requires an authenticated session.
	ErrNoSession = errors.New("no active session")
)
