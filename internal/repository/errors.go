package repository

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDateFull is returned by the capacity ledger when a date has no
// remaining units under the venue's ceiling.
var ErrDateFull = errors.New("date fully booked")
