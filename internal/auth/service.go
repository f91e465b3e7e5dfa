package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/odyssey-bank/banking-api/internal/rbac"
	"github.com/odyssey-bank/banking-api/internal/shared"
)

// Repository is the credential persistence the auth flows need.
type Repository interface {
	WithTx(ctx context.Context, fn func(rbac.Store) error) error
	FindUserByUsername(ctx context.Context, username string) (rbac.User, error)
}

// TokenIssuer mints bearer tokens for a subject.
type TokenIssuer interface {
	Issue(subject string, now time.Time) (string, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	hasher Hasher
	tokens TokenIssuer
	now    func() time.Time

	// dummyHash is compared for unknown usernames to keep login timing uniform.
	dummyHash string
}

// NewService constructs a new Service.
func NewService(repo Repository, hasher Hasher, tokens TokenIssuer) *Service {
	dummy, _ := hasher.Hash("not-a-real-password")
	return &Service{
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// Login validates username/password credentials and issues a token.
// Unknown users, wrong passwords and disabled accounts are indistinguishable.
func (s *Service) Login(ctx context.Context, req LoginRequest) (AuthResponse, error) {
	user, err := s.repo.FindUserByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, rbac.ErrNotFound) {
			_ = s.hasher.Compare(s.dummyHash, req.Password)
			return AuthResponse{}, shared.ErrInvalidCredentials
		}
		return AuthResponse{}, err
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return AuthResponse{}, shared.ErrInvalidCredentials
		}
		return AuthResponse{}, err
	}
	if !user.Enabled {
		return AuthResponse{}, shared.ErrInvalidCredentials
	}
	return s.respond(user)
}

// Register creates an enabled user and issues a token. Unknown role names
// are ignored; a user left with no role gets the default role.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (AuthResponse, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return AuthResponse{}, fmt.Errorf("auth: hash password: %w", err)
	}

	var created rbac.User
	err = s.repo.WithTx(ctx, func(tx rbac.Store) error {
		username := strings.TrimSpace(req.Username)
		email := strings.TrimSpace(req.Email)

		taken, err := tx.UsernameExists(ctx, username)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %q", shared.ErrDuplicateUsername, username)
		}
		taken, err = tx.EmailExists(ctx, email)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %q", shared.ErrDuplicateEmail, email)
		}

		roles, err := knownRoles(ctx, tx, req.RoleNames)
		if err != nil {
			return err
		}
		if len(roles) == 0 {
			roles, err = knownRoles(ctx, tx, []string{shared.DefaultRole})
			if err != nil {
				return err
			}
		}

		created, err = tx.CreateUser(ctx, rbac.User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Enabled:      true,
			Roles:        roles,
		})
		return err
	})
	if err != nil {
		return AuthResponse{}, err
	}
	return s.respond(created)
}

func knownRoles(ctx context.Context, store rbac.CredentialStore, names []string) ([]string, error) {
	var roles []string
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		role, err := store.FindRoleByName(ctx, name)
		if err != nil {
			if errors.Is(err, rbac.ErrNotFound) {
				continue
			}
			return nil, err
		}
		roles = append(roles, role.Name)
	}
	return roles, nil
}

func (s *Service) respond(user rbac.User) (AuthResponse, error) {
	raw, err := s.tokens.Issue(user.Username, s.now())
	if err != nil {
		return AuthResponse{}, fmt.Errorf("auth: issue token: %w", err)
	}
	roles := user.Roles
	if roles == nil {
		roles = []string{}
	}
	return AuthResponse{
		AccessToken: raw,
		TokenType:   TokenType,
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Roles:       roles,
	}, nil
}
