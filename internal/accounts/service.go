package accounts

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/currency"

	"github.com/odyssey-bank/banking-api/internal/platform/httpx"
)

// Service implements account business rules.
type Service struct {
	repo Repository
}

// NewService builds Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]AccountResponse, error) {
	accounts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toResponse(a))
	}
	return out, nil
}

// Get returns an account by id.
func (s *Service) Get(ctx context.Context, id int64) (AccountResponse, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return AccountResponse{}, err
	}
	return toResponse(a), nil
}

// Create opens an ACTIVE account.
func (s *Service) Create(ctx context.Context, req CreateAccountRequest) (AccountResponse, error) {
	code, err := normalizeCurrency(req.Currency)
	if err != nil {
		return AccountResponse{}, err
	}
	var balance float64
	if req.Balance != nil {
		balance = *req.Balance
	}
	a, err := s.repo.Create(ctx, Account{
		AccountNumber:     strings.TrimSpace(req.AccountNumber),
		AccountHolderName: strings.TrimSpace(req.AccountHolderName),
		Balance:           balance,
		Currency:          code,
		Status:            StatusActive,
	})
	if err != nil {
		return AccountResponse{}, err
	}
	return toResponse(a), nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, req UpdateAccountRequest) (AccountResponse, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return AccountResponse{}, err
	}
	if req.AccountHolderName != nil {
		a.AccountHolderName = strings.TrimSpace(*req.AccountHolderName)
	}
	if req.Balance != nil {
		a.Balance = *req.Balance
	}
	if req.Currency != nil {
		code, err := normalizeCurrency(*req.Currency)
		if err != nil {
			return AccountResponse{}, err
		}
		a.Currency = code
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return AccountResponse{}, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, *req.Status)
		}
		a.Status = *req.Status
	}
	updated, err := s.repo.Update(ctx, a)
	if err != nil {
		return AccountResponse{}, err
	}
	return toResponse(updated), nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func normalizeCurrency(raw string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: unknown currency %q", httpx.ErrValidation, raw)
	}
	return unit.String(), nil
}
