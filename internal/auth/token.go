package auth

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"notedump/internal/services"
)

// expiryMargin renews tokens slightly early so a token that is valid now
// is still valid when the request lands.
const expiryMargin = 60 * time.Second

// Token is the persisted credential set.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the access token can still be used at the given
// instant.
func (t *Token) Valid(now time.Time) bool {
	return t != nil && t.AccessToken != "" && now.Before(t.ExpiresAt.Add(-expiryMargin))
}

// LoadToken reads the cached token. A missing cache file is not an error;
// it returns (nil, nil) so the caller falls through to login.
func LoadToken(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrIO, "auth", "token cache", path, err)
	}
	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		// A corrupt cache just forces a fresh login.
		return nil, nil
	}
	return &token, nil
}

// SaveToken writes the token cache with owner-only permissions.
func SaveToken(path string, token *Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrIO, "auth", "token cache", path, err)
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrIO, "auth", "token cache", "encode", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return services.Wrap(services.ErrIO, "auth", "token cache", path, err)
	}
	return nil
}
