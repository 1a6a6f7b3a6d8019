package user

import "errors"

var (
	ErrNotFound           = errors.New("user not found")
	ErrRoleNotFound       = errors.New("role document not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrEmailExists        = errors.New("a user with this email already exists")
	ErrInvalidCredential  = errors.New("Invalid email or password.")
	ErrProfileIncomplete  = errors.New("Your account profile is incomplete. Please sign up again.")
	ErrAccountNotFound    = errors.New("Account not found. Please sign up, select a role, and try again.")
	ErrRoleRequired       = errors.New("Please select a role before signing up.")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrNotAGuest          = errors.New("account is not a guest account")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrInvalidIDToken     = errors.New("invalid identity token")
)
