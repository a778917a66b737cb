// Package upstream talks to the reservation REST API that owns the data:
// the reservation list, token authentication and the spreadsheet import.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/unemi/sportsmap/services/reservation-service/internal/reservation"
)

var ErrUnauthorized = errors.New("upstream rejected credentials")

// Credentials supplies the Authorization header for a call. An empty header
// sends the request anonymously.
type Credentials interface {
	AuthorizationHeader() string
}

type User struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	IsStaff  bool   `json:"is_staff"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Op     string
	Status int
	// Message is the upstream "error" field when present.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: upstream returned %d", e.Op, e.Status)
}

type Client struct {
	base string
	http *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		base: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// FetchReservations returns the full upstream reservation list.
func (c *Client) FetchReservations(ctx context.Context, creds Credentials) ([]reservation.Record, error) {
	var out []reservation.Record
	if err := c.do(ctx, "fetch reservations", http.MethodGet, "/api/reservas/", creds, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	raw, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return LoginResult{}, err
	}
	var out LoginResult
	if err := c.do(ctx, "login", http.MethodPost, "/api/auth/login/", nil, bytes.NewReader(raw), "application/json", &out); err != nil {
		return LoginResult{}, err
	}
	if out.Token == "" {
		return LoginResult{}, errors.New("login: upstream returned no token")
	}
	return out, nil
}

// Me resolves a token to its user. Rejected tokens yield ErrUnauthorized.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, "me", http.MethodGet, "/api/auth/me/", tokenCredentials(token), nil, "", &out); err != nil {
		return User{}, err
	}
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context, creds Credentials) error {
	return c.do(ctx, "logout", http.MethodPost, "/api/auth/logout/", creds, nil, "", nil)
}

// UploadSpreadsheet forwards a reservation spreadsheet as the multipart field
// "file" and returns the upstream JSON response untouched.
func (c *Client) UploadSpreadsheet(ctx context.Context, creds Credentials, filename string, body io.Reader) (json.RawMessage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("read spreadsheet: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	var out json.RawMessage
	if err := c.do(ctx, "upload spreadsheet", http.MethodPost, "/api/reservas/upload_excel/", creds, &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, creds Credentials, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if creds != nil {
		if h := creds.AuthorizationHeader(); h != "" {
			req.Header.Set("Authorization", h)
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w", op, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &payload)
		return &StatusError{Op: op, Status: resp.StatusCode, Message: payload.Error}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

type tokenCredentials string

func (t tokenCredentials) AuthorizationHeader() string {
	if t == "" {
		return ""
	}
	return "Token " + string(t)
}

// Source adapts the client to a fixed set of credentials for the poller.
type Source struct {
	client *Client
	creds  Credentials
}

func NewSource(client *Client, creds Credentials) *Source {
	return &Source{client: client, creds: creds}
}

func (s *Source) Fetch(ctx context.Context) ([]reservation.Record, error) {
	return s.client.FetchReservations(ctx, s.creds)
}
