package domain

import "errors"

var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("authentication failed")
	ErrNotFound   = errors.New("not found")
	ErrUpstream   = errors.New("upstream service error")
	ErrInternal   = errors.New("internal error")
)
