package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"podwatch/internal/config"
)

// ErrInvalidCredentials is returned when the backend rejects a login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Client authenticates against the backend's login endpoint.
type Client struct {
	loginURL string
	http     *http.Client
}

// NewClient builds a login client from configuration.
func NewClient(cfg *config.Config) (*Client, error) {
	loginURL, err := cfg.LoginURL()
	if err != nil {
		return nil, err
	}
	return &Client{
		loginURL: loginURL,
		http:     &http.Client{Timeout: cfg.RequestTimeout()},
	}, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

// Login exchanges credentials for a session bearing an opaque token.
func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Session{}, errors.New("email and password are required")
	}

	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return Session{}, fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return Session{}, fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Session{}, fmt.Errorf("send login request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return Session{}, ErrInvalidCredentials
	case resp.StatusCode >= 300:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return Session{}, fmt.Errorf("login returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Session{}, fmt.Errorf("decode login response: %w", err)
	}
	if strings.TrimSpace(decoded.Token) == "" {
		return Session{}, errors.New("login response carried no token")
	}

	if decoded.Email != "" {
		email = decoded.Email
	}
	return Session{
		Email:     email,
		Token:     decoded.Token,
		DeviceID:  uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}, nil
}
