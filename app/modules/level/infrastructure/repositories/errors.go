package leveldb

import "errors"

// ErrRecordNotFound is returned when no durable record exists for the
// requested key.
var ErrRecordNotFound = errors.New("record not found")
