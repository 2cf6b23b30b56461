// Package upstream talks to the publications REST API the portal fronts. The
// API is a black box: the client owns the three endpoint contracts the viewer
// depends on and nothing else.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/gurwnx222/research-publication-portal/internal/models"
	"github.com/gurwnx222/research-publication-portal/pkg/config"
	appErrors "github.com/gurwnx222/research-publication-portal/pkg/errors"
)

// Client issues JSON requests against the upstream publications API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient constructs a Client with the configured base URL and timeout.
func NewClient(cfg config.UpstreamConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// AuthorLookup is the outcome of an author-existence check. HTTP 404 and a
// success:false body are the same not-found signal, so Exists carries both.
type AuthorLookup struct {
	Exists     bool
	AuthorName string
	Department string
}

type authorLookupResponse struct {
	Success   bool              `json:"success"`
	AuthorBio *models.AuthorBio `json:"authorBio"`
	Message   string            `json:"message"`
}

// AuthorByEmployeeID checks whether an author record exists for the employee
// ID and returns the bio enrichment when it does.
func (c *Client) AuthorByEmployeeID(ctx context.Context, employeeID int) (*AuthorLookup, error) {
	query := url.Values{}
	query.Set("q", strconv.Itoa(employeeID))

	var payload authorLookupResponse
	status, err := c.getJSON(ctx, "/authors/employee-id", query, &payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrLookupFailed.Code, appErrors.ErrLookupFailed.Status, appErrors.ErrLookupFailed.Message)
	}

	if status == http.StatusNotFound || !payload.Success {
		return &AuthorLookup{Exists: false}, nil
	}
	if status != http.StatusOK {
		message := payload.Message
		if message == "" {
			message = fmt.Sprintf("author lookup returned status %d", status)
		}
		return nil, appErrors.Clone(appErrors.ErrLookupFailed, message)
	}

	lookup := &AuthorLookup{Exists: true}
	if payload.AuthorBio != nil {
		lookup.AuthorName = payload.AuthorBio.AuthorName
		lookup.Department = payload.AuthorBio.Department
	}
	return lookup, nil
}

// ListOptions scopes a publication listing request. Department and Author are
// mutually exclusive; both empty means an unscoped, university-wide page.
type ListOptions struct {
	Page       int
	Limit      int
	Department string
	Author     string
}

// Publications fetches one page of the publication listing.
func (c *Client) Publications(ctx context.Context, opts ListOptions) (*models.PublicationPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(opts.Page))
	query.Set("limit", strconv.Itoa(opts.Limit))
	if opts.Department != "" {
		query.Set("department", opts.Department)
	}
	if opts.Author != "" {
		query.Set("author", opts.Author)
	}

	return c.fetchPage(ctx, "/publications", query)
}

// SearchPublications runs the free-text search endpoint. The term round-trips
// verbatim into the q parameter.
func (c *Client) SearchPublications(ctx context.Context, term string, page, limit int) (*models.PublicationPage, error) {
	query := url.Values{}
	query.Set("q", term)
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	return c.fetchPage(ctx, "/publications/text-search", query)
}

func (c *Client) fetchPage(ctx context.Context, path string, query url.Values) (*models.PublicationPage, error) {
	var payload struct {
		models.PublicationPage
		Message string `json:"message"`
	}

	status, err := c.getJSON(ctx, path, query, &payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrQueryFailed.Code, appErrors.ErrQueryFailed.Status, appErrors.ErrQueryFailed.Message)
	}
	if status != http.StatusOK {
		message := payload.Message
		if message == "" {
			message = fmt.Sprintf("publications request returned status %d", status)
		}
		return nil, appErrors.Clone(appErrors.ErrQueryFailed, message)
	}

	page := payload.PublicationPage
	if page.Publications == nil {
		page.Publications = []models.PublicationRecord{}
	}
	return &page, nil
}

// getJSON performs the request and decodes the body into dest when present.
// Non-2xx statuses are returned to the caller for contract-specific handling;
// only transport failures surface as errors.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, dest interface{}) (int, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request %s: %w", path, err)
	}
	defer res.Body.Close()

	if dest != nil {
		if err := json.NewDecoder(res.Body).Decode(dest); err != nil {
			c.logger.Debug("upstream body decode failed", zap.String("path", path), zap.Int("status", res.StatusCode), zap.Error(err))
		}
	}

	return res.StatusCode, nil
}
