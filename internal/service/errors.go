package service

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput       = errors.New("phone_number and message are required")
	ErrInvalidVerifyToken = errors.New("invalid verification token")
)

// ValidationError lists every structural problem found in a webhook payload.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid webhook payload: " + strings.Join(e.Problems, "; ")
}
