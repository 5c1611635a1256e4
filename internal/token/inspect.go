package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRefreshThreshold is how close to expiry an access token may get
// before a silent refresh is due.
const DefaultRefreshThreshold = 300 * time.Second

// Inspector classifies access tokens by their expiry claim. It never
// verifies signatures; that is the backend's job. An undecodable token is
// treated as expired (fail closed).
type Inspector struct {
	threshold time.Duration
	parser    *jwt.Parser
	now       func() time.Time
}

// NewInspector creates an Inspector with the given refresh threshold.
// A non-positive threshold falls back to DefaultRefreshThreshold.
func NewInspector(threshold time.Duration) *Inspector {
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}
	return &Inspector{
		threshold: threshold,
		parser:    jwt.NewParser(),
		now:       time.Now,
	}
}

// IsExpired reports whether the token's expiry is at or before the current
// time, or the token cannot be decoded.
func (i *Inspector) IsExpired(tokenString string) bool {
	exp, err := i.expiresAt(tokenString)
	if err != nil {
		return true
	}
	return !exp.After(i.now())
}

// NeedsRefresh reports whether the token expires within the refresh
// threshold, or cannot be decoded.
func (i *Inspector) NeedsRefresh(tokenString string) bool {
	exp, err := i.expiresAt(tokenString)
	if err != nil {
		return true
	}
	return exp.Sub(i.now()) < i.threshold
}

func (i *Inspector) expiresAt(tokenString string) (time.Time, error) {
	tok, _, err := i.parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, err
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no expiry claim")
	}
	return exp.Time, nil
}
