package errors

import "errors"

var (
	ErrNotFound = errors.New("room not found")

	ErrProofMismatch = errors.New("proof token does not match")

	ErrOccupied = errors.New("room is already occupied")

	ErrNotOccupied = errors.New("room is not occupied")

	ErrNotHolder = errors.New("room is held by another user")

	ErrInvalidDuration = errors.New("booking duration out of range")

	ErrSeatsExceedCapacity = errors.New("seat count exceeds room capacity")
)
