// Package repository defines the credential store and the error values
// that are shared by all of its implementations.  These sentinel values
// allow the account service to distinguish between failure scenarios
// without knowing which database sits underneath.
package repository

import "errors"

// ErrNotFound is returned when no account matches the lookup.  The
// service turns it into 401, 403 or 404 depending on the operation.
var ErrNotFound = errors.New("account not found")

// ErrEmailExists is returned when an insert or update would give two
// accounts in the same partition the same email.  Handlers translate it
// into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrUsernameExists is the username counterpart of ErrEmailExists.
var ErrUsernameExists = errors.New("username already exists")
