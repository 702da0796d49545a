package service

import "errors"

// ErrInvalidInput marks caller mistakes such as a malformed limit
var ErrInvalidInput = errors.New("invalid input")
