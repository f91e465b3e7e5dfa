package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	_ "github.com/odyssey-bank/banking-api/internal/testing/guard"
)

func TestTestModeFlag(t *testing.T) {
	t.Cleanup(func() { RefreshTestMode() })

	cases := map[string]bool{"1": true, "true": true, "TRUE": true, "0": false, "": false, "yes": false}
	for value, want := range cases {
		t.Setenv(TestModeEnv, value)
		assert.Equal(t, want, RefreshTestMode(), "value %q", value)
		assert.Equal(t, want, InTestMode(), "cached value %q", value)
	}
}
