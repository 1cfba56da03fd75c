// Package client is a Go client for the chapteradmin HTTP API.
//
// Requests carry a bearer token. Either a fixed token is supplied, or the
// client obtains one with the OAuth2 client-credentials grant and refreshes
// it as it expires.
//
//	c, err := client.New(ctx, client.Config{
//		BaseURL:      "https://chapters.example.com",
//		ClientID:     "chapterctl",
//		ClientSecret: secret,
//		TokenURL:     "https://accounts.example.com/oauth2/token",
//	})
//	admins, err := c.ListAdminsForSchool(ctx, "school-1")
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/httputil"
)

// Config describes the server and how to authenticate to it
type Config struct {
	BaseURL string

	// Token is a fixed bearer token. It takes precedence over client credentials.
	Token string

	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string

	Timeout time.Duration

	// HTTPClient is the base transport; http.DefaultClient when nil
	HTTPClient *http.Client
}

// Client calls the /api/v1 routes
type Client struct {
	baseURL string
	http    *http.Client
}

// APIError is a non-2xx response
type APIError struct {
	StatusCode int
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("chapteradmin: %d %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("chapteradmin: %d %s %v", e.StatusCode, e.Message, e.Details)
}

// IsStatus reports whether err is an APIError with the given status
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// New builds a client. ctx is only used to carry HTTPClient into the
// token source.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	base := cfg.HTTPClient
	if base == nil {
		base = http.DefaultClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)

	var httpClient *http.Client
	switch {
	case cfg.Token != "":
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	case cfg.ClientID != "":
		if cfg.TokenURL == "" {
			return nil, fmt.Errorf("token URL is required for client credentials")
		}
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		httpClient = cc.Client(ctx)
	default:
		return nil, fmt.Errorf("a token or client credentials are required")
	}

	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
	}, nil
}

// ListAdminsForSchool returns the active admins of a school
func (c *Client) ListAdminsForSchool(ctx context.Context, schoolID string) ([]*chapters.Assignment, error) {
	var out []*chapters.Assignment
	err := c.do(ctx, http.MethodGet, "/api/v1/admins?"+url.Values{"schoolId": {schoolID}}.Encode(), nil, &out)
	return out, err
}

// ListSchoolsForUser returns a user's active assignments
func (c *Client) ListSchoolsForUser(ctx context.Context, userID string) ([]*chapters.Assignment, error) {
	var out []*chapters.Assignment
	err := c.do(ctx, http.MethodGet, "/api/v1/admins?"+url.Values{"userId": {userID}}.Encode(), nil, &out)
	return out, err
}

// ListAllSchoolsWithAdmins returns every active school with its admins
func (c *Client) ListAllSchoolsWithAdmins(ctx context.Context) ([]*chapters.SchoolWithAdmins, error) {
	var out []*chapters.SchoolWithAdmins
	err := c.do(ctx, http.MethodGet, "/api/v1/admins", nil, &out)
	return out, err
}

// Assign grants role to userID at schoolID
func (c *Client) Assign(ctx context.Context, schoolID, userID string, role chapters.Role) (*chapters.Assignment, error) {
	body := map[string]string{
		"schoolId":     schoolID,
		"targetUserId": userID,
		"role":         string(role),
	}
	var out chapters.Assignment
	if err := c.do(ctx, http.MethodPost, "/api/v1/admins", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove deactivates an assignment
func (c *Client) Remove(ctx context.Context, assignmentID string) (*chapters.Assignment, error) {
	var out chapters.Assignment
	if err := c.do(ctx, http.MethodDelete, "/api/v1/admins/"+url.PathEscape(assignmentID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateSchool adds a school
func (c *Client) CreateSchool(ctx context.Context, req chapters.SchoolRequest) (*chapters.School, error) {
	var out chapters.School
	if err := c.do(ctx, http.MethodPost, "/api/v1/schools", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateSchoolStats sets the non-nil statistics of a school
func (c *Client) UpdateSchoolStats(ctx context.Context, schoolID string, volunteerHours, activeMembers *int64) (*chapters.School, error) {
	req := chapters.StatsRequest{VolunteerHours: volunteerHours, ActiveMembers: activeMembers}
	var out chapters.School
	if err := c.do(ctx, http.MethodPatch, "/api/v1/schools/"+url.PathEscape(schoolID)+"/stats", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Permissions summarizes what the authenticated caller may do, optionally at
// a school
func (c *Client) Permissions(ctx context.Context, schoolID string) (*chapters.PermissionSummary, error) {
	path := "/api/v1/permissions"
	if schoolID != "" {
		path += "?" + url.Values{"schoolId": {schoolID}}.Encode()
	}
	var out chapters.PermissionSummary
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e httputil.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.Details = e.Details
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
