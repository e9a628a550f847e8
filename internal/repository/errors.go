// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow the service layer to tell
// missing records apart from conflicting writes and from plain
// infrastructure failures.
package repository

import "errors"

// ErrNotFound is returned when the requested event, ticket or user
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write cannot be performed because of
// conflicting state, such as deleting an event that tickets still
// reference or inserting a duplicate unique value.
var ErrConflict = errors.New("conflict")

// ErrUsernameExists is returned when a staff account with the same
// username is already provisioned.
var ErrUsernameExists = errors.New("username already exists")
