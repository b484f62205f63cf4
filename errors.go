package main

import "errors"

// Outcomes the handlers report back to a single connection. None of them are
// faults: they never stop the game loop and are not logged as errors.
var (
	ErrPlayerNotFound          = errors.New("player not found")
	ErrPlayerExists            = errors.New("player already registered")
	ErrFoodNotFound            = errors.New("food not found")
	ErrInvalidPayload          = errors.New("invalid payload")
	ErrCollaboratorUnavailable = errors.New("service unavailable")
)
