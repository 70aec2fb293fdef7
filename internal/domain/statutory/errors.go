package statutory

import "errors"

var (
	ErrConfigNotFound = errors.New("statutory configuration not found")
	ErrInvalidConfig  = errors.New("invalid statutory configuration")
)
