// Package testutil provides testing utilities for requestline.
package testutil

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
// It verifies that no goroutines were leaked during the test.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, append(IgnoreDatabaseGoroutines(), opts...)...)
}

// IgnoreDatabaseGoroutines returns goleak options to ignore the connection
// opener of a *sql.DB that is closed by t.Cleanup after the leak check runs.
func IgnoreDatabaseGoroutines() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	}
}
