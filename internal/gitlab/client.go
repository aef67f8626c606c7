// Package gitlab talks to the GitLab REST API to create project repositories.
package gitlab

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jfpatrick/bipy-gui-manager/internal/output"
)

//go:embed assets/avatar.png
var defaultAvatar []byte

// ErrUnauthorized is returned when the token endpoint rejects the credentials.
var ErrUnauthorized = errors.New("authentication on GitLab failed")

// ReporterAccess is GitLab's "Reporter" member access level.
const ReporterAccess = 20

// HTTPError is a non-2xx response.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, strings.TrimSpace(e.Body))
}

// Token authenticates API calls.
type Token struct {
	// Kind is the query parameter name: "access_token" or "private_token".
	Kind  string
	Value string
}

// PrivateToken wraps a personal access token given on the command line.
func PrivateToken(value string) Token {
	return Token{Kind: "private_token", Value: value}
}

func (t Token) apply(q url.Values) {
	if t.Value != "" {
		q.Set(t.Kind, t.Value)
	}
}

// Project is the subset of the API project object used here.
type Project struct {
	ID                int    `json:"id"`
	Name              string `json:"name"`
	Path              string `json:"path"`
	PathWithNamespace string `json:"path_with_namespace"`
	WebURL            string `json:"web_url"`
}

// CreateOptions describes a repository to create.
type CreateOptions struct {
	Path        string
	Name        string
	Description string
	// NamespaceID places the project in a group; 0 means the user's namespace.
	NamespaceID int
	// DocsUserID is granted reporter access so documentation can be built
	// for private repositories; 0 skips it.
	DocsUserID int
	// Avatar overrides the embedded default image.
	Avatar []byte
}

// Client is a minimal GitLab API client.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	UI      *output.UI
}

// NewClient returns a Client for the GitLab instance at baseURL.
func NewClient(baseURL string, ui *output.UI) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
		UI:      ui,
	}
}

// Authenticate exchanges CERN credentials for an OAuth access token.
func (c *Client) Authenticate(ctx context.Context, username, password string) (Token, error) {
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	err := c.send(ctx, http.MethodPost, "oauth/token", Token{}, url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}, &resp)
	if err != nil {
		var herr *HTTPError
		if errors.As(err, &herr) && herr.StatusCode == http.StatusUnauthorized {
			return Token{}, ErrUnauthorized
		}
		return Token{}, err
	}
	return Token{Kind: "access_token", Value: resp.AccessToken}, nil
}

// Username returns the login of the token owner, which is also the path of
// their personal namespace.
func (c *Client) Username(ctx context.Context, tok Token) (string, error) {
	req, err := c.request(ctx, http.MethodGet, "api/v4/user", tok, nil)
	if err != nil {
		return "", err
	}
	var user struct {
		Username string `json:"username"`
	}
	if err := c.do(req, &user); err != nil {
		return "", fmt.Errorf("get GitLab user: %w", err)
	}
	if user.Username == "" {
		return "", errors.New("get GitLab user: empty username")
	}
	return user.Username, nil
}

// CreateProject creates an empty project.
func (c *Client) CreateProject(ctx context.Context, tok Token, opts CreateOptions) (Project, error) {
	fields := url.Values{
		"path":        {opts.Path},
		"name":        {opts.Name},
		"description": {opts.Description},
	}
	if opts.NamespaceID != 0 {
		fields.Set("namespace_id", strconv.Itoa(opts.NamespaceID))
	}
	var p Project
	if err := c.send(ctx, http.MethodPost, "api/v4/projects", tok, fields, &p); err != nil {
		return Project{}, fmt.Errorf("create GitLab project %s: %w", opts.Path, err)
	}
	return p, nil
}

// AddMember grants userID the given access level on a project.
func (c *Client) AddMember(ctx context.Context, tok Token, projectID, userID, level int) error {
	endpoint := fmt.Sprintf("api/v4/projects/%d/members", projectID)
	return c.send(ctx, http.MethodPost, endpoint, tok, url.Values{
		"user_id":      {strconv.Itoa(userID)},
		"access_level": {strconv.Itoa(level)},
	}, nil)
}

// UploadAvatar sets the project picture with a multipart PUT.
func (c *Client) UploadAvatar(ctx context.Context, tok Token, projectID int, filename string, image []byte) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("avatar", filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(image); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := c.request(ctx, http.MethodPut, fmt.Sprintf("api/v4/projects/%d", projectID), tok, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.do(req, nil)
}

// CreateRepository creates the project, then grants the documentation user
// access and sets the avatar. Only the creation itself can fail the call.
func (c *Client) CreateRepository(ctx context.Context, tok Token, opts CreateOptions) (Project, error) {
	p, err := c.CreateProject(ctx, tok, opts)
	if err != nil {
		return Project{}, err
	}
	c.verbose("Created GitLab project %d (%s)", p.ID, p.WebURL)

	if opts.DocsUserID != 0 {
		if err := c.AddMember(ctx, tok, p.ID, opts.DocsUserID, ReporterAccess); err != nil {
			c.warn("Could not add the documentation server to the project members: %v", err)
		}
	}

	avatar := opts.Avatar
	if len(avatar) == 0 {
		avatar = defaultAvatar
	}
	if err := c.UploadAvatar(ctx, tok, p.ID, "avatar.png", avatar); err != nil {
		c.warn("Avatar upload failed: %v", err)
	}
	return p, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, tok Token, fields url.Values, out any) error {
	req, err := c.request(ctx, method, endpoint, tok, strings.NewReader(fields.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, out)
}

func (c *Client) request(ctx context.Context, method, endpoint string, tok Token, body io.Reader) (*http.Request, error) {
	u, err := url.Parse(c.BaseURL + "/" + strings.TrimLeft(endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid GitLab endpoint: %w", err)
	}
	q := u.Query()
	tok.apply(q)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	c.verbose("%s %s", req.Method, req.URL.Path)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Method: req.Method, URL: req.URL.Path, StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode GitLab response: %w", err)
	}
	return nil
}

func (c *Client) verbose(format string, a ...any) {
	if c.UI != nil {
		c.UI.VerboseLog(format, a...)
	}
}

func (c *Client) warn(format string, a ...any) {
	if c.UI != nil {
		c.UI.Warning(format, a...)
	}
}
