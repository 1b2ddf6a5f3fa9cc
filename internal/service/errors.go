package service

import "errors"

var (
	ErrIDRequired      = errors.New("id is required")
	ErrNotFound        = errors.New("meeting not found")
	ErrConflict        = errors.New("summary already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file too large")
)
