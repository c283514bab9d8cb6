package db

import (
	"errors"
	"strconv"
)

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Op constants name backend operations for error context.
const (
	OpCreateIndex = "indices.create"
	OpDropIndex   = "indices.delete"
	OpIndexExists = "indices.exists"
	OpSearch      = "search"
	OpPing        = "PING"
	OpGet         = "GET"
	OpSet         = "SET"
	OpDel         = "DEL"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// StatusError is a non-2xx backend response.
type StatusError struct {
	Status int
	Type   string
	Reason string
}

func (e *StatusError) Error() string {
	msg := "status " + strconv.Itoa(e.Status)
	if e.Type != "" {
		msg += ": " + e.Type
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Retryable reports whether the status is a transient backend condition (429, 5xx).
func (e *StatusError) Retryable() bool {
	return e.Status == 429 || e.Status >= 500
}
