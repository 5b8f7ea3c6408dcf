// Package client talks to the Rozgar HTTP API. Cookies set by the server are
// kept in a jar and replayed, and the last token issued is sent as a bearer
// token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rozgar/job-board/internal/api"
	"golang.org/x/net/publicsuffix"
)

const defaultTimeout = 30 * time.Second

// APIError is returned when the server answers with a failure envelope or a
// non 2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL *url.URL
	http    *http.Client

	mu    sync.Mutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default client. A cookie jar is added when hc
// has none.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid api base url")
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "unable to create cookie jar")
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		c.http.Jar = jar
	}
	return c, nil
}

func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if tk := c.Token(); tk != "" {
		req.Header.Set("Authorization", "Bearer "+tk)
	}
	return req, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in interface{}) (api.Response, error) {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return api.Response{}, errors.Wrap(err, "unable to encode request")
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return api.Response{}, err
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (api.Response, error) {
	res, err := c.http.Do(req)
	if err != nil {
		return api.Response{}, errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer res.Body.Close()
	var out api.Response
	decodeErr := json.NewDecoder(res.Body).Decode(&out)
	if res.StatusCode >= http.StatusBadRequest || (decodeErr == nil && !out.Success) {
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return out, &APIError{Status: res.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return out, errors.Wrap(decodeErr, "unable to decode response")
	}
	c.keepToken(out)
	return out, nil
}

// keepToken remembers the most recent token the server issued.
func (c *Client) keepToken(res api.Response) {
	switch {
	case res.Token != "":
		c.SetToken(res.Token)
	case res.TempToken != "":
		c.SetToken(res.TempToken)
	}
}

func (c *Client) Register(ctx context.Context, name, email, password, role string) (api.Response, error) {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
		"role":     role,
	})
}

func (c *Client) Login(ctx context.Context, email, password string) (api.Response, error) {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
}

// Logout clears the server session and forgets the local token, even when
// the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil)
	c.SetToken("")
	return err
}

func (c *Client) IsAuth(ctx context.Context) (api.Response, error) {
	return c.doJSON(ctx, http.MethodGet, "/api/auth/is-auth", nil)
}

func (c *Client) SendVerifyOTP(ctx context.Context) (api.Response, error) {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/send-verify-otp", nil)
}

func (c *Client) VerifyAccount(ctx context.Context, otp string) (api.Response, error) {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/verify-account", map[string]string{"otp": otp})
}

func (c *Client) SendResetOTP(ctx context.Context, email string) (api.Response, error) {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/send-reset-otp", map[string]string{"email": email})
}

func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) (api.Response, error) {
	return c.doJSON(ctx, http.MethodPost, "/api/auth/reset-password", map[string]string{
		"email":       email,
		"otp":         otp,
		"newPassword": newPassword,
	})
}

// ProfileInput holds the editable profile fields.
type ProfileInput struct {
	Name     string   `json:"name"`
	Headline string   `json:"headline"`
	Location string   `json:"location"`
	Bio      string   `json:"bio"`
	Phone    string   `json:"phone"`
	Skills   []string `json:"skills"`
}

func (c *Client) Profile(ctx context.Context) (api.Response, error) {
	return c.doJSON(ctx, http.MethodGet, "/api/profile", nil)
}

func (c *Client) SaveProfile(ctx context.Context, in ProfileInput) (api.Response, error) {
	return c.doJSON(ctx, http.MethodPost, "/api/profile", in)
}

func (c *Client) ProfileByEmail(ctx context.Context, email string) (api.Response, error) {
	return c.doJSON(ctx, http.MethodGet, "/api/profile/"+url.PathEscape(email), nil)
}

func (c *Client) UploadResume(ctx context.Context, email, fileName string, r io.Reader) (api.Response, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("resume", fileName)
	if err != nil {
		return api.Response{}, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return api.Response{}, errors.Wrap(err, "unable to read resume")
	}
	if err := mw.Close(); err != nil {
		return api.Response{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/api/profile/resume/"+url.PathEscape(email), &buf, mw.FormDataContentType())
	if err != nil {
		return api.Response{}, err
	}
	return c.do(req)
}

// DownloadResume writes the resume of email to w and returns its file name.
func (c *Client) DownloadResume(ctx context.Context, email string, w io.Writer) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/profile/resume/"+url.PathEscape(email), nil, "")
	if err != nil {
		return "", err
	}
	res, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		var out api.Response
		json.NewDecoder(res.Body).Decode(&out)
		msg := out.Message
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return "", &APIError{Status: res.StatusCode, Message: msg}
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		return "", errors.Wrap(err, "unable to read resume")
	}
	_, params, err := mime.ParseMediaType(res.Header.Get("Content-Disposition"))
	if err != nil {
		return "", nil
	}
	return params["filename"], nil
}

func (c *Client) Jobs(ctx context.Context, query, skill string) (api.Response, error) {
	v := url.Values{}
	if query != "" {
		v.Set("q", query)
	}
	if skill != "" {
		v.Set("skill", skill)
	}
	path := "/api/jobs"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	return c.doJSON(ctx, http.MethodGet, path, nil)
}
