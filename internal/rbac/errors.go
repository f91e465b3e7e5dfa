package rbac

import (
	"fmt"

	"github.com/odyssey-bank/banking-api/internal/platform/httpx"
)

var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = fmt.Errorf("rbac: %w", httpx.ErrNotFound)
	// ErrDuplicate indicates a unique name/email conflict in the store.
	ErrDuplicate = fmt.Errorf("rbac: %w", httpx.ErrDuplicate)

	// ErrPrincipalNotFound means a verified token names an unknown user.
	ErrPrincipalNotFound = fmt.Errorf("rbac: principal not found: %w", httpx.ErrUnauthorized)
	// ErrPrincipalDisabled means a verified token names a disabled user.
	ErrPrincipalDisabled = fmt.Errorf("rbac: principal disabled: %w", httpx.ErrUnauthorized)
	// ErrUnauthenticated means the route needs an identity and none was presented.
	ErrUnauthenticated = fmt.Errorf("rbac: authentication required: %w", httpx.ErrUnauthorized)
	// ErrPermissionDenied means the caller lacks the permission a route requires.
	ErrPermissionDenied = fmt.Errorf("rbac: permission denied: %w", httpx.ErrForbidden)
)
