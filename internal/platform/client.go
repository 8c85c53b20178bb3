// Package platform is a client for the remote platform core API that owns
// kapps, categories, forms and submissions.
package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"techbar/internal/models"
)

const (
	apiPrefix = "/app/api/v1"

	// DefaultTimeout bounds every request when Options.Timeout is zero.
	DefaultTimeout = 15 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the platform core API over HTTP.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// Error is returned for responses with a status code of 400 or above.
type Error struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("platform request failed: %s %s (status: %d)", e.Method, e.URL, e.Status)
}

// IsNotFound reports whether err is a platform 404.
func IsNotFound(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Status == http.StatusNotFound
}

// IsConflict reports whether err is a platform 409, returned when a slug
// is already taken.
func IsConflict(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Status == http.StatusConflict
}

// NewClient creates a platform client. Basic auth is only set when a
// username is given.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	c := &Client{baseURL: opts.BaseURL}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(opts.BaseURL + apiPrefix).
		SetTimeout(timeout).
		SetHeaders(map[string]string{
			"Accept":       "application/json",
			"Content-Type": "application/json",
		})
	if opts.Username != "" {
		c.httpClient.SetBasicAuth(opts.Username, opts.Password)
	}
	return c
}

// BaseURL returns the platform server URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) req(ctx context.Context, result any) *resty.Request {
	request := c.httpClient.NewRequest().SetContext(ctx)
	if result != nil {
		request.SetResult(result)
	}
	return request
}

// handleError turns failing responses into *Error. Without it a 4xx or 5xx
// response would come back with a nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, &Error{
			Method: res.Request.Method,
			URL:    res.Request.URL,
			Status: res.StatusCode(),
			Body:   res.String(),
		}
	}
	return res, nil
}

type categoriesResponse struct {
	Categories []models.RawCategory `json:"categories"`
}

type categoryResponse struct {
	Category models.RawCategory `json:"category"`
}

type formsResponse struct {
	Forms []models.Form `json:"forms"`
}

type submissionResponse struct {
	Submission models.Submission `json:"submission"`
}

type submissionsResponse struct {
	Submissions   []models.Submission `json:"submissions"`
	NextPageToken string              `json:"nextPageToken"`
}

// Categories fetches every category of a kapp with its attributes and the
// forms categorized under it.
func (c *Client) Categories(ctx context.Context, kapp string) ([]models.RawCategory, error) {
	result := &categoriesResponse{}
	_, err := handleError(c.req(ctx, result).
		SetPathParam("kapp", kapp).
		SetQueryParam("include", "attributesMap,categorizations.form").
		Get("/kapps/{kapp}/categories"))
	if err != nil {
		return nil, fmt.Errorf("fetch categories of %s: %w", kapp, err)
	}
	return result.Categories, nil
}

// Forms fetches the forms of a kapp.
func (c *Client) Forms(ctx context.Context, kapp string) ([]models.Form, error) {
	result := &formsResponse{}
	_, err := handleError(c.req(ctx, result).
		SetPathParam("kapp", kapp).
		SetQueryParam("include", "categorizations").
		Get("/kapps/{kapp}/forms"))
	if err != nil {
		return nil, fmt.Errorf("fetch forms of %s: %w", kapp, err)
	}
	return result.Forms, nil
}

type attribute struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

type categoryBody struct {
	Name       string      `json:"name"`
	Slug       string      `json:"slug"`
	Attributes []attribute `json:"attributes"`
}

func newCategoryBody(raw models.RawCategory) categoryBody {
	names := make([]string, 0, len(raw.Attributes))
	for name := range raw.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	body := categoryBody{Name: raw.Name, Slug: raw.Slug, Attributes: []attribute{}}
	for _, name := range names {
		body.Attributes = append(body.Attributes, attribute{Name: name, Values: raw.Attributes[name]})
	}
	return body
}

// CreateCategory creates a category in a kapp.
func (c *Client) CreateCategory(ctx context.Context, kapp string, raw models.RawCategory) error {
	_, err := handleError(c.req(ctx, &categoryResponse{}).
		SetPathParam("kapp", kapp).
		SetBody(newCategoryBody(raw)).
		Post("/kapps/{kapp}/categories"))
	if err != nil {
		return fmt.Errorf("create category %s: %w", raw.Slug, err)
	}
	return nil
}

// UpdateCategory replaces the category stored under slug. The new record
// may carry a different slug.
func (c *Client) UpdateCategory(ctx context.Context, kapp, slug string, raw models.RawCategory) error {
	_, err := handleError(c.req(ctx, &categoryResponse{}).
		SetPathParams(map[string]string{"kapp": kapp, "slug": slug}).
		SetBody(newCategoryBody(raw)).
		Put("/kapps/{kapp}/categories/{slug}"))
	if err != nil {
		return fmt.Errorf("update category %s: %w", slug, err)
	}
	return nil
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, kapp, slug string) error {
	_, err := handleError(c.req(ctx, nil).
		SetPathParams(map[string]string{"kapp": kapp, "slug": slug}).
		Delete("/kapps/{kapp}/categories/{slug}"))
	if err != nil {
		return fmt.Errorf("delete category %s: %w", slug, err)
	}
	return nil
}

// Submission fetches one submission with its values.
func (c *Client) Submission(ctx context.Context, id string) (*models.Submission, error) {
	result := &submissionResponse{}
	_, err := handleError(c.req(ctx, result).
		SetPathParam("id", id).
		SetQueryParam("include", "values,form").
		Get("/submissions/{id}"))
	if err != nil {
		return nil, fmt.Errorf("fetch submission %s: %w", id, err)
	}
	return &result.Submission, nil
}

// SearchSubmissions runs a KQL query against a form's submissions and
// follows page tokens until the result set is exhausted.
func (c *Client) SearchSubmissions(ctx context.Context, kapp, form, query string) ([]models.Submission, error) {
	var (
		all       []models.Submission
		pageToken string
	)
	for {
		result := &submissionsResponse{}
		req := c.req(ctx, result).
			SetPathParams(map[string]string{"kapp": kapp, "form": form}).
			SetQueryParams(map[string]string{
				"include": "values",
				"limit":   "1000",
			})
		if query != "" {
			req.SetQueryParam("q", query)
		}
		if pageToken != "" {
			req.SetQueryParam("pageToken", pageToken)
		}

		if _, err := handleError(req.Get("/kapps/{kapp}/forms/{form}/submissions")); err != nil {
			return nil, fmt.Errorf("search %s/%s submissions: %w", kapp, form, err)
		}
		all = append(all, result.Submissions...)

		if result.NextPageToken == "" {
			return all, nil
		}
		pageToken = result.NextPageToken
	}
}
