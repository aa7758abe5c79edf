package domain

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrUnknownCollection = errors.New("unknown collection")
	ErrConflict          = errors.New("duplicate id")
	ErrInvalid           = errors.New("invalid record")
)
