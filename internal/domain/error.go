package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrBadCredentials  = errors.New("bad credentials")
	ErrCodeNotFound    = errors.New("kami code not found")
	ErrCodeAlreadyUsed = errors.New("kami code already used")
	ErrCodeExpired     = errors.New("kami code expired")
	ErrCodeLocked      = errors.New("kami code is being redeemed by another request")
)
