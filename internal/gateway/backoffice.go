package gateway

import (
	"context"
	"net/http"

	"github.com/Zuzuna54/fintech-app-demo/internal/domain"
)

// Token exchanges credentials for a token pair.
func (c *Client) Token(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	req := map[string]string{"email": email, "password": password}
	var pair domain.TokenPair
	if err := c.do(ctx, http.MethodPost, "/auth/token", req, &pair, false); err != nil {
		return nil, err
	}
	if err := pair.Validate(); err != nil {
		return nil, c.fail(&APIError{Kind: KindValidation, Method: http.MethodPost,
			URL: c.baseURL.JoinPath("/auth/token").String(), Message: err.Error()})
	}
	return &pair, nil
}

// Me fetches the current operator profile.
func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &user, true); err != nil {
		return nil, err
	}
	if err := user.Validate(); err != nil {
		return nil, c.fail(&APIError{Kind: KindValidation, Method: http.MethodGet,
			URL: c.baseURL.JoinPath("/auth/me").String(), Message: err.Error()})
	}
	return &user, nil
}

// RefreshToken exchanges the refresh token for a new pair plus the user
// snapshot. Shape failures are validation errors, not auth errors: they
// must not be mistaken for a rejected refresh token.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*domain.AuthResponse, error) {
	req := map[string]string{"refresh_token": refreshToken}
	var resp domain.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/refresh", req, &resp, false); err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, c.fail(&APIError{Kind: KindValidation, Method: http.MethodPost,
			URL: c.baseURL.JoinPath("/auth/refresh").String(), Message: err.Error()})
	}
	return &resp, nil
}

// UpdateMe patches the operator profile.
func (c *Client) UpdateMe(ctx context.Context, patch map[string]any) (*domain.User, error) {
	var resp struct {
		User domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPatch, "/auth/me", patch, &resp, true); err != nil {
		return nil, err
	}
	if err := resp.User.Validate(); err != nil {
		return nil, c.fail(&APIError{Kind: KindValidation, Method: http.MethodPatch,
			URL: c.baseURL.JoinPath("/auth/me").String(), Message: err.Error()})
	}
	return &resp.User, nil
}

// Logout tells the backend to invalidate the session. Best effort; the
// caller clears local state regardless.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, true)
}

// accountsEnvelope mirrors the backend's split account listing.
type accountsEnvelope struct {
	InternalAccounts *struct {
		Total    int              `json:"total"`
		Accounts []domain.Account `json:"accounts"`
	} `json:"internal_accounts"`
	ExternalAccounts *struct {
		Total    int              `json:"total"`
		Accounts []domain.Account `json:"accounts"`
	} `json:"external_accounts"`
}

// Accounts fetches all accounts visible to the operator, internal and
// external merged.
func (c *Client) Accounts(ctx context.Context) ([]domain.Account, error) {
	var envelope accountsEnvelope
	if err := c.do(ctx, http.MethodGet, "/accounts", nil, &envelope, true); err != nil {
		return nil, err
	}
	var accounts []domain.Account
	if envelope.InternalAccounts != nil {
		accounts = append(accounts, envelope.InternalAccounts.Accounts...)
	}
	if envelope.ExternalAccounts != nil {
		accounts = append(accounts, envelope.ExternalAccounts.Accounts...)
	}
	return accounts, nil
}

// PaymentRequest is the wire shape of a payment creation call.
type PaymentRequest struct {
	PaymentType    domain.PaymentType `json:"payment_type"`
	FromAccountID  string             `json:"from_account_id"`
	ToAccountID    string             `json:"to_account_id"`
	AmountCents    int64              `json:"amount"`
	Description    string             `json:"description"`
	IdempotencyKey string             `json:"idempotency_key"`
}

// PaymentResult is the backend's acknowledgement of a created payment.
type PaymentResult struct {
	ID        string               `json:"id"`
	UUID      string               `json:"uuid"`
	Status    domain.PaymentStatus `json:"status"`
	CreatedAt string               `json:"created_at"`
}

// CreatePayment submits a validated ACH payment.
func (c *Client) CreatePayment(ctx context.Context, req *PaymentRequest) (*PaymentResult, error) {
	var result PaymentResult
	if err := c.do(ctx, http.MethodPost, "/payments", req, &result, true); err != nil {
		return nil, err
	}
	return &result, nil
}
