package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrNoData        = errors.New("no data for tick")
	ErrContextDone   = errors.New("context cancelled")
)
