// Package testing is imported for its side effects by handler tests that
// need the process in test mode.
package testing

import (
	"os"
	stdtesting "testing"

	"github.com/odyssey-bank/banking-api/internal/testing/guard"
)

func TestMain(m *stdtesting.M) {
	guard.Enable()
	os.Exit(m.Run())
}
