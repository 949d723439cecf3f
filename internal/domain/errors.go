// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist in the caller's tenant.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates the write collided with existing state.
var ErrConflict = errors.New("conflict: resource was modified by another request")

// ErrValidation indicates the caller supplied invalid input.
var ErrValidation = errors.New("validation error")
