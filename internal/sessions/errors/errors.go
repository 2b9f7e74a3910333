package errors

import "errors"

var (
	ErrNotFound = errors.New("session not found")

	ErrExpired = errors.New("session expired")

	ErrAlreadyResolved = errors.New("session already resolved")
)
