package repositories

import "errors"

// ErrNotFound is wrapped by every repository lookup miss.
var ErrNotFound = errors.New("record not found")
