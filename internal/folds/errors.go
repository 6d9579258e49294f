package folds

import "errors"

var (
	ErrConfiguration    = errors.New("folds: invalid configuration")
	ErrInsufficientData = errors.New("folds: insufficient data")
	ErrIO               = errors.New("folds: io failure")
	ErrInvalidRecord    = errors.New("folds: invalid record")
)
