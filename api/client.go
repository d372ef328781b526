// Package api is the HTTP client for the remote schools API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/zalepa/escolas/school"
)

// TokenProvider supplies the current session token, if any. Every
// session.Store satisfies it.
type TokenProvider interface {
	Token() (string, bool)
}

// Client talks to the remote API rooted at BaseURL. The token provider is
// consulted on every request; when it has a token, the request carries an
// "Authorization: Bearer <token>" header.
type Client struct {
	baseURL string
	tokens  TokenProvider
	base    http.RoundTripper
	timeout time.Duration
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

// WithTimeout bounds each request, including reading the body.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New returns a client for the API at baseURL that reads tokens on every request.
func New(baseURL string, tokens TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		base:    http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = c.newHTTPClient()
	return c
}

// WithTokens returns a copy of c that reads tokens from p.
func (c *Client) WithTokens(p TokenProvider) *Client {
	cp := *c
	cp.tokens = p
	cp.http = cp.newHTTPClient()
	return &cp
}

func (c *Client) newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &bearerTransport{base: c.base, tokens: c.tokens},
		Timeout:   c.timeout,
	}
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenProvider
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.tokens == nil {
		return t.base.RoundTrip(req)
	}
	tok, ok := t.tokens.Token()
	if !ok {
		return t.base.RoundTrip(req)
	}
	// RoundTrippers must not modify the caller's request.
	r := req.Clone(req.Context())
	(&oauth2.Token{AccessToken: tok, TokenType: "Bearer"}).SetAuthHeader(r)
	return t.base.RoundTrip(r)
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsUnauthorized reports whether err is a 401 or 403 from the API.
func IsUnauthorized(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
}

// Credentials are the email/password pair accepted by /auth/login and
// /auth/register.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var validate = validator.New()

// Validate checks the credentials before they are sent anywhere.
func (c Credentials) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = strings.ToLower(fe.Field()) + " (" + fe.Tag() + ")"
			}
			return errors.Errorf("invalid credentials: %s", strings.Join(fields, ", "))
		}
		return errors.Wrap(err, "invalid credentials")
	}
	return nil
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a session token.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	if err := creds.Validate(); err != nil {
		return "", err
	}
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", creds, &resp); err != nil {
		return "", errors.Wrap(err, "login")
	}
	if resp.Token == "" {
		return "", errors.New("login: response carried no token")
	}
	return resp.Token, nil
}

// Register creates an account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", creds, nil); err != nil {
		return errors.Wrap(err, "register")
	}
	return nil
}

// Schools fetches the school collection. Records are returned exactly as
// decoded; nothing is filtered or deduplicated. A null body yields an empty,
// non-nil slice.
func (c *Client) Schools(ctx context.Context) ([]school.School, error) {
	var schools []school.School
	if err := c.do(ctx, http.MethodGet, "/schools", nil, &schools); err != nil {
		return nil, errors.Wrap(err, "fetching schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return schools, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding response")
	}
	return nil
}
