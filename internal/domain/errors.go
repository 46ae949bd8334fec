package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrWikiNotFound     = errors.New("wiki not configured")
	ErrUnderMaintenance = errors.New("wiki database cluster under maintenance")
	ErrUnknownVersion   = errors.New("version not served by farm")
)

// WikiExistsError is returned when a database name is already registered.
type WikiExistsError struct {
	DBName string
}

func (e *WikiExistsError) Error() string {
	return fmt.Sprintf("wiki %q already exists", e.DBName)
}

// TransitionError is returned when a lifecycle transition is not allowed.
type TransitionError struct {
	Event   Event
	Current Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid from state %q", e.Event, e.Current)
}

// UnknownFarmError is returned for a farm name or database name no farm owns.
type UnknownFarmError struct {
	Name string
}

func (e *UnknownFarmError) Error() string {
	return fmt.Sprintf("no farm matches %q", e.Name)
}

// CacheCorruptError reports a persisted cache file that cannot be decoded.
// Recomputing over it would hide on-disk corruption, so callers must fail
// the request.
type CacheCorruptError struct {
	Path string
	Err  error
}

func (e *CacheCorruptError) Error() string {
	return fmt.Sprintf("config cache failure: decoding %s: %v", e.Path, e.Err)
}

func (e *CacheCorruptError) Unwrap() error {
	return e.Err
}
