package auth

import "errors"

var (
	// ErrUserAlreadyExists means the username or email is already taken.
	// Which of the two collided is deliberately not reported.
	ErrUserAlreadyExists = errors.New("username or email already exists")

	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so that callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrSessionNotFound means logout found no active session for the token.
	ErrSessionNotFound = errors.New("session not found or already invalidated")

	// ErrInvalidSession covers missing, invalidated and expired sessions.
	ErrInvalidSession = errors.New("invalid or expired session")

	// ErrInternal hides collaborator failures from callers.
	ErrInternal = errors.New("internal authentication error")
)
