// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, memory) inside this directory.
package repository

import "errors"

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateShortLink is returned by Create when the short link is already taken.
	ErrDuplicateShortLink = errors.New("short link already exists")
	// ErrDuplicateUser is returned when the username or email is already registered.
	ErrDuplicateUser = errors.New("username or email already exists")
)

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
