package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"notedump/internal/services"
)

const loginPage = `<html><body><p>Login complete. You can close this window and return to the terminal.</p></body></html>`

// Login runs the interactive browser flow: it listens on the configured
// loopback redirect address, hands the authorization URL to prompt for the
// user to open, then exchanges the returned code and writes the token
// cache. It blocks until the redirect arrives or ctx is cancelled.
func (m *Manager) Login(ctx context.Context, prompt func(authURL string)) error {
	redirect, err := url.Parse(m.cfg.Graph.RedirectURL)
	if err != nil {
		return services.Wrap(services.ErrFatal, "auth", "login", "invalid redirect url", err)
	}

	state, err := randomState()
	if err != nil {
		return services.Wrap(services.ErrFatal, "auth", "login", "generate state", err)
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return services.Wrap(services.ErrIO, "auth", "login", "listen on "+redirect.Host, err)
	}
	defer listener.Close()

	type outcome struct {
		code string
		err  error
	}
	results := make(chan outcome, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		switch {
		case query.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- outcome{err: services.Wrap(services.ErrAuthExpired, "auth", "login", "state mismatch in redirect", nil)}
		case query.Get("error") != "":
			http.Error(w, query.Get("error_description"), http.StatusBadRequest)
			results <- outcome{err: services.Wrap(services.ErrAuthExpired, "auth", "login",
				"provider returned "+query.Get("error"), nil)}
		case query.Get("code") == "":
			http.Error(w, "missing code", http.StatusBadRequest)
			results <- outcome{err: services.Wrap(services.ErrAuthExpired, "auth", "login", "redirect carried no code", nil)}
		default:
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, loginPage)
			results <- outcome{code: query.Get("code")}
		}
	})

	server := &http.Server{Handler: mux}
	go server.Serve(listener)
	defer server.Close()

	prompt(m.authorizeURL(state))

	var got outcome
	select {
	case <-ctx.Done():
		return ctx.Err()
	case got = <-results:
	}
	if got.err != nil {
		return got.err
	}

	m.logger.Info("authorization code received, redeeming")
	token, err := m.redeem(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {got.code},
		"redirect_uri": {m.cfg.Graph.RedirectURL},
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.token = token
	m.loaded = true
	m.mu.Unlock()
	return SaveToken(m.cfg.Paths.TokenPath, token)
}

func (m *Manager) authorizeURL(state string) string {
	query := url.Values{
		"client_id":     {m.cfg.Graph.ClientID},
		"response_type": {"code"},
		"redirect_uri":  {m.cfg.Graph.RedirectURL},
		"response_mode": {"query"},
		"scope":         {scopes},
		"state":         {state},
	}
	return m.cfg.Graph.AuthURL + "?" + query.Encode()
}

func randomState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
