package service

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInputShape   = errors.New("input shape error")
	ErrNoMatch      = errors.New("no matching technicians between the file and the system list")
	ErrNoUpload     = errors.New("no report uploaded")
	ErrNoSessions   = errors.New("sessions are not available")
)
