package models

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid arguments")
	ErrForbidden       = errors.New("forbidden")
)
