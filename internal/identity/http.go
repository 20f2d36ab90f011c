package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// HTTPProvider talks to the identity provider's REST API.
type HTTPProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds identity-provider connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewHTTPProvider creates a provider client.
func NewHTTPProvider(cfg Config, logger *slog.Logger) *HTTPProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "identity"),
	}
}

var _ Provider = (*HTTPProvider)(nil)

type authenticateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Authenticate verifies credentials against the provider.
func (p *HTTPProvider) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	var principal Principal
	status, err := p.post(ctx, "/v1/authenticate", authenticateRequest{Email: email, Password: password}, &principal)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
		return &principal, nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("%w: authenticate returned status %d", ErrUnavailable, status)
	}
}

// Register creates a new provider user.
func (p *HTTPProvider) Register(ctx context.Context, email, password, name string) (*Principal, error) {
	var principal Principal
	status, err := p.post(ctx, "/v1/users", registerRequest{Email: email, Password: password, Name: name}, &principal)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
		return &principal, nil
	case http.StatusConflict:
		return nil, ErrEmailTaken
	default:
		return nil, fmt.Errorf("%w: register returned status %d", ErrUnavailable, status)
	}
}

// ListUsers returns the provider's full user directory.
func (p *HTTPProvider) ListUsers(ctx context.Context) ([]User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/users", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		p.logger.Error("user directory fetch failed", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: list users returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var out struct {
		Users []User `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding user directory: %w", err)
	}
	return out.Users, nil
}

// post sends a JSON body and decodes a JSON response on 2xx. Returns the
// status code so callers can map provider errors.
func (p *HTTPProvider) post(ctx context.Context, path string, body, out any) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	p.setHeaders(req)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	} else {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	}
	return resp.StatusCode, nil
}

func (p *HTTPProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}
