package api

import (
	"errors"
	"fmt"
)

var ErrNoToken = errors.New("no token received")

// AppError is a failure reported by the backend in a response body.
type AppError struct {
	Status  int    `json:"-"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("backend error (HTTP %d)", e.Status)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// TransportError means no response was received at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
