package repository

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyFinished = errors.New("session already finished")
)
