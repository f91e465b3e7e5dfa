package shared

import (
	"fmt"

	"github.com/odyssey-bank/banking-api/internal/platform/httpx"
)

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials: %w", httpx.ErrUnauthorized)
)

var (
	// ErrDuplicateUsername indicates the username is already registered.
	ErrDuplicateUsername = fmt.Errorf("username already exists: %w", httpx.ErrDuplicate)
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = fmt.Errorf("email already exists: %w", httpx.ErrDuplicate)
)
