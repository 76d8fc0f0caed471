package transport

import "errors"

// ErrBusy is returned when Send is called while a previous request on
// the same connection hasn't yet been completed by a matching Receive.
var ErrBusy = errors.New("transport: connection busy")

// ErrTimeout is returned when a receive's deadline elapses before a
// complete frame arrives.
var ErrTimeout = errors.New("transport: timed out waiting for reply")
