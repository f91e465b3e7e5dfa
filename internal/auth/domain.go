package auth

// TokenType is the scheme returned with every issued token.
const TokenType = "Bearer"

// LoginRequest carries credentials for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest carries a new account for POST /api/auth/register.
type RegisterRequest struct {
	Username  string   `json:"username" validate:"required,min=3,max=100"`
	Email     string   `json:"email" validate:"required,email,max=255"`
	Password  string   `json:"password" validate:"required,min=6"`
	RoleNames []string `json:"roleNames"`
}

// AuthResponse is returned on successful login or registration.
type AuthResponse struct {
	AccessToken string   `json:"accessToken"`
	TokenType   string   `json:"tokenType"`
	ID          int64    `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Roles       []string `json:"roles"`
}
