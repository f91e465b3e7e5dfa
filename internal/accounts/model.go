package accounts

import "time"

// Status enumerates account lifecycle states.
type Status string

const (
	StatusActive Status = "ACTIVE"
	StatusFrozen Status = "FROZEN"
	StatusClosed Status = "CLOSED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusFrozen, StatusClosed:
		return true
	}
	return false
}

// Account models a customer bank account.
type Account struct {
	ID                int64
	AccountNumber     string
	AccountHolderName string
	Balance           float64
	Currency          string
	Status            Status
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// CreateAccountRequest is the body of POST /api/accounts.
type CreateAccountRequest struct {
	AccountNumber     string   `json:"accountNumber" validate:"required,max=50"`
	AccountHolderName string   `json:"accountHolderName" validate:"required,max=255"`
	Balance           *float64 `json:"balance" validate:"required,gte=0"`
	Currency          string   `json:"currency" validate:"required,len=3"`
}

// UpdateAccountRequest is the body of PUT /api/accounts/{id}. Nil fields are
// left unchanged.
type UpdateAccountRequest struct {
	AccountHolderName *string  `json:"accountHolderName" validate:"omitempty,min=1,max=255"`
	Balance           *float64 `json:"balance" validate:"omitempty,gte=0"`
	Currency          *string  `json:"currency" validate:"omitempty,len=3"`
	Status            *Status  `json:"status" validate:"omitempty,oneof=ACTIVE FROZEN CLOSED"`
}

// AccountResponse is the JSON view of an account.
type AccountResponse struct {
	ID                int64     `json:"id"`
	AccountNumber     string    `json:"accountNumber"`
	AccountHolderName string    `json:"accountHolderName"`
	Balance           float64   `json:"balance"`
	Currency          string    `json:"currency"`
	Status            Status    `json:"status"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toResponse(a Account) AccountResponse {
	return AccountResponse{
		ID:                a.ID,
		AccountNumber:     a.AccountNumber,
		AccountHolderName: a.AccountHolderName,
		Balance:           a.Balance,
		Currency:          a.Currency,
		Status:            a.Status,
		CreatedAt:         a.CreatedAt,
		UpdatedAt:         a.UpdatedAt,
	}
}
