package service

import "errors"

// Common service errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("resource not found")
)

// Player service specific errors
var (
	ErrPlayerNotFound      = errors.New("player not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPlayerAlreadyExists = errors.New("player already exists")
)
