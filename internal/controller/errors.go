package controller

import "errors"

// ErrClosed classifies the assertion raised when a closed controller is
// used.
var ErrClosed = errors.New("controller is closed")
