// Package guard switches the process into test mode on import: runtime
// startup is skipped and the in-memory store is selected unless a driver was
// chosen explicitly.
package guard

import "os"

// Defaults applied by Enable when the variable is unset.
var Defaults = map[string]string{
	"BANKING_TEST_MODE": "1",
	"STORE_DRIVER":      "memory",
}

// Enable applies Defaults without overriding values already present.
func Enable() {
	for key, value := range Defaults {
		if _, ok := os.LookupEnv(key); !ok {
			_ = os.Setenv(key, value)
		}
	}
}

func init() {
	Enable()
}
