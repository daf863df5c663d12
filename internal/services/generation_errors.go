package services

import (
  "errors"

  "gorm.io/gorm"
)

// ErrNotFound marks a trigger that references a missing entity. It is the
// only fatal generation error: retrying cannot fix a caller passing a bad id.
var ErrNotFound = errors.New("entity not found")

// Reasons attached to error status events. Fixed taxonomy; the stream is the
// only place these strings surface.
const (
  reasonNotFound    = "not_found"
  reasonConflict    = "conflict"
  reasonPersistence = "persistence_failed"
  reasonGeneration  = "generation_failed"
)

type persistenceError struct {
  err error
}

func (e *persistenceError) Error() string { return e.err.Error() }
func (e *persistenceError) Unwrap() error { return e.err }

// wrapPersistence tags err as coming from a write, so the status stream can
// tell storage faults apart from model faults.
func wrapPersistence(err error) error {
  if err == nil {
    return nil
  }
  return &persistenceError{err: err}
}

func reasonFor(err error) string {
  if err == nil {
    return ""
  }
  if errors.Is(err, ErrNotFound) {
    return reasonNotFound
  }
  if errors.Is(err, gorm.ErrDuplicatedKey) {
    return reasonConflict
  }
  var pe *persistenceError
  if errors.As(err, &pe) {
    return reasonPersistence
  }
  return reasonGeneration
}
