package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"notedump/internal/config"
	"notedump/internal/logging"
	"notedump/internal/services"
)

const scopes = "offline_access Notes.Read"

// Manager hands out valid access tokens, refreshing silently when the
// cached one expires. Safe for concurrent use by pipeline workers.
type Manager struct {
	cfg        *config.Config
	httpClient *http.Client
	logger     *slog.Logger

	mu     sync.Mutex
	token  *Token
	loaded bool

	now func() time.Time
}

func NewManager(cfg *config.Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.NewComponentLogger(logger, "auth"),
		now:        time.Now,
	}
}

// AccessToken returns a token usable right now. It fails with
// services.ErrAuthExpired when neither the cache nor a silent refresh can
// produce one.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.loaded {
		token, err := LoadToken(m.cfg.Paths.TokenPath)
		if err != nil {
			return "", err
		}
		m.token = token
		m.loaded = true
	}
	if m.token.Valid(m.now()) {
		return m.token.AccessToken, nil
	}
	if m.token == nil || m.token.RefreshToken == "" {
		return "", services.Wrap(services.ErrAuthExpired, "auth", "token", "no cached credentials, login required", nil)
	}

	m.logger.Debug("refreshing access token")
	token, err := m.redeem(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {m.token.RefreshToken},
	})
	if err != nil {
		return "", err
	}
	if token.RefreshToken == "" {
		token.RefreshToken = m.token.RefreshToken
	}
	m.token = token
	if err := SaveToken(m.cfg.Paths.TokenPath, token); err != nil {
		return "", err
	}
	return token.AccessToken, nil
}

// redeem posts a grant to the token endpoint and normalizes the response.
func (m *Manager) redeem(ctx context.Context, form url.Values) (*Token, error) {
	form.Set("client_id", m.cfg.Graph.ClientID)
	form.Set("scope", scopes)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.Graph.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, services.Wrap(services.ErrFatal, "auth", "token request", "", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "auth", "token request", m.cfg.Graph.TokenURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "auth", "token response", "", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, services.Wrap(services.ErrAuthExpired, "auth", "token request",
			"grant rejected: "+strings.TrimSpace(string(body)), nil)
	}

	var payload struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, services.Wrap(services.ErrAuthExpired, "auth", "token response", "decode", err)
	}
	if payload.AccessToken == "" {
		return nil, services.Wrap(services.ErrAuthExpired, "auth", "token response", "no access token in grant", nil)
	}
	return &Token{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresAt:    m.now().Add(time.Duration(payload.ExpiresIn) * time.Second),
	}, nil
}
