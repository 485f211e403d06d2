package service

import (
	"errors"
	"time"

	"github.com/perttula/whispden/internal/game/storage"
	"github.com/perttula/whispden/internal/platform/id"
)

// nowFrom reads the clock in UTC, defaulting to time.Now.
func nowFrom(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}

// newIDFrom resolves the ID generator, defaulting to URL-safe record IDs.
func newIDFrom(newID func() string) func() string {
	if newID != nil {
		return newID
	}
	return id.MustNewID
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
