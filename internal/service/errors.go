package service

import "errors"

var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication failed")
)
