package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrAuthRequired     = fmt.Errorf("authentication required")
	ErrTransport        = fmt.Errorf("transport failure")
	ErrFrameDecode      = fmt.Errorf("frame decode failed")
	ErrFileRead         = fmt.Errorf("attachment could not be read")
	ErrNotConnected     = fmt.Errorf("session is not connected")
	ErrSessionClosed    = fmt.Errorf("session is closed")
	ErrEmptyMessage     = fmt.Errorf("message is empty")
	ErrSendQueueFull    = fmt.Errorf("send queue is full")
	ErrRegistry         = fmt.Errorf("consultation registry error")
	ErrBootstrapTimeout = fmt.Errorf("no consultation assigned in time")
	ErrInvalidRequest   = fmt.Errorf("invalid consultation request")
	ErrServerRejected   = fmt.Errorf("server rejected the connection")
	ErrInvalidConfig    = fmt.Errorf("invalid configuration")
	ErrWorkerPanic      = fmt.Errorf("worker panic")
)

// Is lets callers match sentinels without importing the standard package
// under another name.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

func As(err error, target any) bool {
	return stderrors.As(err, target)
}
