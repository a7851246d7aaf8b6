package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"notedump/internal/config"
	"notedump/internal/logging"
	"notedump/internal/services"
)

// TokenProvider supplies a valid access token for each request. It fails
// with services.ErrAuthExpired when a new interactive login is needed.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

const (
	initialBackoff   = 500 * time.Millisecond
	maxBackoff       = 30 * time.Second
	fallbackWait     = 20 * time.Second
	pageSelectFields = "id,title,order,createdDateTime,lastModifiedDateTime,contentUrl,links"
)

// Client talks to the OneNote endpoints of the Graph API.
type Client struct {
	httpClient       *http.Client
	baseURL          string
	tokens           TokenProvider
	maxRetries       int
	maxRateLimitWait time.Duration
	logger           *slog.Logger

	// sleep is replaced in tests so retry timing is observable.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewClient(cfg *config.Config, tokens TokenProvider, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Client{
		httpClient:       &http.Client{Timeout: time.Duration(cfg.Graph.RequestTimeout) * time.Second},
		baseURL:          strings.TrimRight(cfg.Graph.BaseURL, "/"),
		tokens:           tokens,
		maxRetries:       cfg.Export.MaxRetries,
		maxRateLimitWait: time.Duration(cfg.Export.MaxRateLimitWait) * time.Second,
		logger:           logging.NewComponentLogger(logger, "graph"),
		sleep:            sleepContext,
	}
}

// Notebooks returns every notebook in the account.
func (c *Client) Notebooks(ctx context.Context) ([]Notebook, error) {
	return collectAll[Notebook](ctx, c, c.baseURL+"/notebooks?$select=id,displayName")
}

// Sections returns the sections directly under a notebook.
func (c *Client) Sections(ctx context.Context, notebookID string) ([]Section, error) {
	sections, err := collectAll[Section](ctx, c, c.baseURL+"/notebooks/"+url.PathEscape(notebookID)+"/sections?$select=id,displayName")
	if err != nil {
		return nil, err
	}
	for i := range sections {
		sections[i].NotebookID = notebookID
	}
	return sections, nil
}

// SectionGroups returns the section groups directly under a notebook.
func (c *Client) SectionGroups(ctx context.Context, notebookID string) ([]SectionGroup, error) {
	return collectAll[SectionGroup](ctx, c, c.baseURL+"/notebooks/"+url.PathEscape(notebookID)+"/sectionGroups?$select=id,displayName")
}

// GroupSections returns the sections directly under a section group.
func (c *Client) GroupSections(ctx context.Context, groupID string) ([]Section, error) {
	return collectAll[Section](ctx, c, c.baseURL+"/sectionGroups/"+url.PathEscape(groupID)+"/sections?$select=id,displayName")
}

// GroupSectionGroups returns the child groups of a section group.
func (c *Client) GroupSectionGroups(ctx context.Context, groupID string) ([]SectionGroup, error) {
	return collectAll[SectionGroup](ctx, c, c.baseURL+"/sectionGroups/"+url.PathEscape(groupID)+"/sectionGroups?$select=id,displayName")
}

// PageStubs returns one page of a section's page listing plus the cursor
// for the next one. Pass an empty cursor to start; an empty returned
// cursor means the listing is exhausted. Stubs come back in notebook
// order.
func (c *Client) PageStubs(ctx context.Context, sectionID, cursor string) ([]PageStub, string, error) {
	target := cursor
	if target == "" {
		target = c.baseURL + "/sections/" + url.PathEscape(sectionID) +
			"/pages?$select=" + url.QueryEscape(pageSelectFields) + "&$orderby=" + url.QueryEscape("order asc")
	}
	body, err := c.get(ctx, target)
	if err != nil {
		return nil, "", err
	}
	var envelope listEnvelope[PageStub]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, "", services.Wrap(services.ErrFatal, "graph", "page listing", "decode response", err)
	}
	for i := range envelope.Value {
		envelope.Value[i].SectionID = sectionID
	}
	return envelope.Value, envelope.NextLink, nil
}

// PageContent fetches the XHTML body of one page.
func (c *Client) PageContent(ctx context.Context, pageID string) ([]byte, error) {
	return c.get(ctx, c.baseURL+"/pages/"+url.PathEscape(pageID)+"/content")
}

// Attachment fetches an embedded resource by its absolute URL, as found in
// page content img and object elements.
func (c *Client) Attachment(ctx context.Context, resourceURL string) ([]byte, error) {
	return c.get(ctx, resourceURL)
}

// collectAll follows @odata.nextLink cursors until the listing is
// exhausted.
func collectAll[T any](ctx context.Context, c *Client, target string) ([]T, error) {
	var all []T
	for target != "" {
		body, err := c.get(ctx, target)
		if err != nil {
			return nil, err
		}
		var envelope listEnvelope[T]
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, services.Wrap(services.ErrFatal, "graph", "listing", "decode response", err)
		}
		all = append(all, envelope.Value...)
		target = envelope.NextLink
	}
	return all, nil
}

// get issues one authenticated GET, retrying rate-limit and transient
// failures up to the configured bound.
func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	backoff := initialBackoff
	for attempt := 0; ; attempt++ {
		body, err := c.getOnce(ctx, target)
		if err == nil {
			return body, nil
		}
		if !services.Retryable(err) || attempt >= c.maxRetries {
			return nil, err
		}

		var delay time.Duration
		if errors.Is(err, services.ErrRateLimited) {
			delay = services.RetryAfter(err, fallbackWait)
			if delay > c.maxRateLimitWait {
				delay = c.maxRateLimitWait
			}
		} else {
			delay = backoff + rand.N(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
		c.logger.Warn("request failed, retrying",
			logging.String("url", target),
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay),
			logging.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) getOnce(ctx context.Context, target string) ([]byte, error) {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrFatal, "graph", "request", target, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "graph", "request", target, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "graph", "response", target, err)
		}
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, services.Wrap(services.ErrAuthExpired, "graph", "request", target, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		wait := retryAfterHeader(resp, fallbackWait)
		return nil, services.Wrap(&services.RateLimitError{RetryAfter: wait}, "graph", "request", target, nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, services.Wrap(services.ErrNotFound, "graph", "request", target, nil)
	case resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "graph", "request",
			fmt.Sprintf("%s: status %d", target, resp.StatusCode), nil)
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, services.Wrap(services.ErrFatal, "graph", "request",
			fmt.Sprintf("%s: status %d: %s", target, resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
}

func retryAfterHeader(resp *http.Response, fallback time.Duration) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return fallback
	}
	if seconds, err := strconv.Atoi(raw); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(raw); err == nil {
		if wait := time.Until(when); wait > 0 {
			return wait
		}
	}
	return fallback
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
