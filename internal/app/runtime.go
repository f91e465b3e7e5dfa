package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv names the variable that disables runtime side effects.
const TestModeEnv = "BANKING_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether BANKING_TEST_MODE holds a true value. The
// variable is read once; call RefreshTestMode after changing it.
func InTestMode() bool {
	if cached := testMode.Load(); cached != nil {
		return *cached
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads the variable and returns the new state.
func RefreshTestMode() bool {
	enabled, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	enabled = err == nil && enabled
	testMode.Store(&enabled)
	return enabled
}
