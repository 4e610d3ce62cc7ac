package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/content-dashboard/internal/config"
	"github.com/content-dashboard/internal/models"
	"github.com/rs/zerolog"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 16 << 20

// UpdateMode selects how updates reach the content API
type UpdateMode string

const (
	// UpdateModeOverride sends POST with a _method=PUT marker, for backends
	// that cannot parse multipart PUT bodies
	UpdateModeOverride UpdateMode = "override"
	UpdateModePut      UpdateMode = "put"
)

// ContentStore defines the operations of the remote content API
type ContentStore interface {
	ListContents(ctx context.Context, session models.Session, categoryID, subcategoryID int64, page, perPage int) (*models.ContentPage, error)
	CreateContent(ctx context.Context, session models.Session, form *models.ContentForm) (*models.ContentItem, error)
	UpdateContent(ctx context.Context, session models.Session, form *models.ContentForm) (*models.ContentItem, error)
	DeleteContent(ctx context.Context, session models.Session, id int64) error
	ChangeStatus(ctx context.Context, session models.Session, id int64, status models.Status) error
	ListCategories(ctx context.Context, session models.Session) ([]models.Category, error)
	ListSubcategories(ctx context.Context, session models.Session, categoryID int64) ([]models.Subcategory, error)
}

// Client talks to the content API over HTTP
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	updateMode UpdateMode
	log        zerolog.Logger
}

var _ ContentStore = (*Client)(nil)

// New creates a Client for the configured content API
func New(cfg *config.ContentAPIConfig, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid content API URL: %w", err)
	}

	mode := UpdateMode(cfg.UpdateMode)
	if mode == "" {
		mode = UpdateModeOverride
	}

	return &Client{
		baseURL: base,
		// Zero timeout means none; a hanging request is left to the caller's context
		httpClient: &http.Client{Timeout: cfg.Timeout},
		updateMode: mode,
		log:        log.With().Str("component", "content-client").Logger(),
	}, nil
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// ListContents handles GET /api/content-dashboard/{categoryId}/{subcategoryId}
func (c *Client) ListContents(ctx context.Context, session models.Session, categoryID, subcategoryID int64, page, perPage int) (*models.ContentPage, error) {
	query := url.Values{}
	query.Set("paginate_count", strconv.Itoa(perPage))
	query.Set("page", strconv.Itoa(page))

	var result models.ContentPage
	path := fmt.Sprintf("/api/content-dashboard/%d/%d", categoryID, subcategoryID)
	if err := c.do(ctx, session, http.MethodGet, path, query, nil, "", &result); err != nil {
		return nil, err
	}
	if result.CurrentPage == 0 {
		result.CurrentPage = page
	}
	if result.PerPage == 0 {
		result.PerPage = perPage
	}
	return &result, nil
}

// CreateContent handles POST /api/contents
func (c *Client) CreateContent(ctx context.Context, session models.Session, form *models.ContentForm) (*models.ContentItem, error) {
	return c.submit(ctx, session, http.MethodPost, "/api/contents", nil, form, false)
}

// UpdateContent handles POST /api/contents/{id}?_method=PUT, or PUT when the
// backend accepts multipart PUT bodies
func (c *Client) UpdateContent(ctx context.Context, session models.Session, form *models.ContentForm) (*models.ContentItem, error) {
	if !form.IsEdit() {
		return nil, fmt.Errorf("update requires a content id")
	}
	path := fmt.Sprintf("/api/contents/%d", form.ID)

	if c.updateMode == UpdateModePut {
		return c.submit(ctx, session, http.MethodPut, path, nil, form, false)
	}
	query := url.Values{}
	query.Set("_method", "PUT")
	return c.submit(ctx, session, http.MethodPost, path, query, form, true)
}

func (c *Client) submit(ctx context.Context, session models.Session, method, path string, query url.Values, form *models.ContentForm, methodOverride bool) (*models.ContentItem, error) {
	// Stream the body so staged images are never held in memory at once
	pr, pw := io.Pipe()
	defer pr.Close()
	encoder := NewFormEncoder(pw)
	go func() {
		pw.CloseWithError(encoder.Encode(form, methodOverride))
	}()

	var item models.ContentItem
	if err := c.do(ctx, session, method, path, query, pr, encoder.ContentType(), &item); err != nil {
		return nil, err
	}
	if item.ID == 0 {
		// The envelope's data is optional; describe what was sent instead
		return models.ItemFromForm(form), nil
	}
	return &item, nil
}

// DeleteContent handles DELETE /api/contents/{id}
func (c *Client) DeleteContent(ctx context.Context, session models.Session, id int64) error {
	return c.do(ctx, session, http.MethodDelete, fmt.Sprintf("/api/contents/%d", id), nil, nil, "", nil)
}

// ChangeStatus handles POST /api/status/{id}
func (c *Client) ChangeStatus(ctx context.Context, session models.Session, id int64, status models.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", models.ErrInvalidStatus, status)
	}

	body, err := json.Marshal(map[string]models.Status{"status": status})
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	path := fmt.Sprintf("/api/status/%d", id)
	return c.do(ctx, session, http.MethodPost, path, nil, bytes.NewReader(body), "application/json", nil)
}

// ListCategories handles GET /api/categories
func (c *Client) ListCategories(ctx context.Context, session models.Session) ([]models.Category, error) {
	var categories []models.Category
	if err := c.do(ctx, session, http.MethodGet, "/api/categories", nil, nil, "", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListSubcategories handles GET /api/categories/{id}/subcategories
func (c *Client) ListSubcategories(ctx context.Context, session models.Session, categoryID int64) ([]models.Subcategory, error) {
	var subcategories []models.Subcategory
	path := fmt.Sprintf("/api/categories/%d/subcategories", categoryID)
	if err := c.do(ctx, session, http.MethodGet, path, nil, nil, "", &subcategories); err != nil {
		return nil, err
	}
	return subcategories, nil
}

// do sends one request and decodes the response envelope into dest. Both the
// HTTP status and the envelope's status flag are checked.
func (c *Client) do(ctx context.Context, session models.Session, method, path string, query url.Values, body io.Reader, contentType string, dest interface{}) error {
	endpoint := c.endpoint(path, query)

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("Content API request failed")
		return &TransportError{Method: method, URL: endpoint, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Content API request completed")

	var envelope models.APIResponse[json.RawMessage]
	decodeErr := json.Unmarshal(raw, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Message: envelope.Message}
	}
	if decodeErr != nil {
		return &TransportError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if !envelope.OK() {
		return &ApplicationError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	if dest == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return &TransportError{Method: method, URL: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
