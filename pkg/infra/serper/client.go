// Package serper implements profile discovery through the Serper web search
// API (https://serper.dev).
package serper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/prospector/pkg/domain/interfaces"
	"github.com/m-mizutani/prospector/pkg/domain/model"
	"github.com/m-mizutani/prospector/pkg/domain/types"
	"github.com/m-mizutani/prospector/pkg/utils/ratelimit"
)

const defaultEndpoint = "https://google.serper.dev/search"

type client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	gate       *ratelimit.Gate
	numResults int
}

// Option configures the client
type Option func(*client)

// WithEndpoint overrides the API endpoint, for tests
func WithEndpoint(endpoint string) Option {
	return func(c *client) { c.endpoint = endpoint }
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.httpClient = hc }
}

// WithGate replaces the rate gate
func WithGate(gate *ratelimit.Gate) Option {
	return func(c *client) { c.gate = gate }
}

// NewClient creates a Serper search client
func NewClient(apiKey string, opts ...Option) (interfaces.SearchClient, error) {
	if apiKey == "" {
		return nil, goerr.New("Serper API key is required", goerr.T(types.ErrTagValidation))
	}

	c := &client{
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		gate:       ratelimit.New("serper"),
		numResults: 5,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type searchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type searchResponse struct {
	Organic []struct {
		Title     string `json:"title"`
		Link      string `json:"link"`
		Snippet   string `json:"snippet"`
		Image     string `json:"imageUrl,omitempty"`
		Thumbnail string `json:"thumbnail,omitempty"`
	} `json:"organic"`
}

// SearchPerson runs a profile discovery query built from the available hints
func (c *client) SearchPerson(ctx context.Context, q model.PersonQuery) ([]model.SearchHit, error) {
	parts := []string{`"` + q.Name + `"`, "site:linkedin.com/in/"}
	if q.Company != "" {
		parts = append(parts, `"`+q.Company+`"`)
	}
	if q.Location != "" {
		parts = append(parts, q.Location)
	}
	if q.Username != "" {
		parts = append(parts, q.Username)
	}

	body, err := json.Marshal(searchRequest{Q: strings.Join(parts, " "), Num: c.numResults})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal search request")
	}

	var hits []model.SearchHit
	err = c.gate.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return goerr.Wrap(err, "failed to create search request", goerr.T(types.ErrTagPermanent))
		}
		req.Header.Set("X-API-KEY", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return goerr.Wrap(err, "search request failed", goerr.T(types.ErrTagTransient))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return goerr.New("search provider rate limit", goerr.T(types.ErrTagRateLimited))
		case resp.StatusCode >= 500:
			return goerr.New("search provider unavailable",
				goerr.T(types.ErrTagTransient),
				goerr.V("status", resp.StatusCode),
			)
		case resp.StatusCode != http.StatusOK:
			return goerr.New("search request rejected",
				goerr.T(types.ErrTagPermanent),
				goerr.V("status", resp.StatusCode),
			)
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return goerr.Wrap(err, "failed to read search response", goerr.T(types.ErrTagTransient))
		}

		var result searchResponse
		if err := json.Unmarshal(data, &result); err != nil {
			return goerr.Wrap(err, "malformed search response", goerr.T(types.ErrTagPermanent))
		}

		hits = hits[:0]
		for _, r := range result.Organic {
			image := r.Image
			if image == "" {
				image = r.Thumbnail
			}
			hits = append(hits, model.SearchHit{
				Title:   r.Title,
				Link:    r.Link,
				Snippet: r.Snippet,
				Image:   image,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}
