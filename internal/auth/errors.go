package auth

import "github.com/pkg/errors"

var (
	ErrNoToken            = errors.New("not signed in")
	ErrNoUserID           = errors.New("access token carries no user id")
	ErrNoRefreshToken     = errors.New("no refresh token available")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRefreshRejected    = errors.New("refresh token rejected, sign in again")
)
