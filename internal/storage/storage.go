package storage

import "errors"

const (
	UniqueViolation     = "23505"
	ForeignKeyViolation = "23503"
)

var (
	ErrItemNotFound       = errors.New("item not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrAlreadyWatching    = errors.New("item is already in the watchlist")
	ErrWatchEntryNotFound = errors.New("watch entry not found")
	ErrAlertNotFound      = errors.New("alert not found")
	ErrSweepInProgress    = errors.New("a price sweep is already running")
)
