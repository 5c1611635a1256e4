package domain

import "errors"

// TokenPair represents an access/refresh token pair issued by the backend
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Validate checks that both tokens are present
func (p *TokenPair) Validate() error {
	if p == nil {
		return errors.New("token pair is nil")
	}
	if p.AccessToken == "" {
		return errors.New("access_token is missing")
	}
	if p.RefreshToken == "" {
		return errors.New("refresh_token is missing")
	}
	return nil
}

// AuthResponse represents the refresh endpoint response: a new token pair
// plus the user snapshot.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`
}

// Validate checks the full response shape
func (r *AuthResponse) Validate() error {
	if r == nil {
		return errors.New("auth response is nil")
	}
	pair := TokenPair{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
	if err := pair.Validate(); err != nil {
		return err
	}
	return r.User.Validate()
}
