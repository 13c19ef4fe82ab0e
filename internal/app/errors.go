package app

import "errors"

var (
	// ErrNotFound indicates the addressed document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the caller is not the owner of the document.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidArgument indicates a malformed or missing request field.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidCredentials indicates a failed signin.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailAlreadyExists indicates a duplicate signup email.
	ErrEmailAlreadyExists = errors.New("email already exists")
	// ErrCannotFollowSelf rejects follow toggles targeting the caller.
	ErrCannotFollowSelf = errors.New("cannot follow yourself")
	// ErrEmailAlreadyVerified rejects verification of a verified email.
	ErrEmailAlreadyVerified = errors.New("email is already verified")
)
