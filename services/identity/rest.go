package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// tokenResponse is the common shape of the Identity Toolkit sign-in and the
// Secure Token refresh responses. The two endpoints name the same fields differently.
type tokenResponse struct {
	LocalID      string `json:"localId"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	IDToken      string `json:"idToken"`
	IDTokenAlt   string `json:"id_token"`
	RefreshToken string `json:"refreshToken"`
	RefreshAlt   string `json:"refresh_token"`
	ExpiresIn    string `json:"expiresIn"`
	ExpiresInAlt string `json:"expires_in"`
}

func (t tokenResponse) uid() string          { return firstNonEmpty(t.LocalID, t.UserID) }
func (t tokenResponse) idToken() string      { return firstNonEmpty(t.IDToken, t.IDTokenAlt) }
func (t tokenResponse) refreshToken() string { return firstNonEmpty(t.RefreshToken, t.RefreshAlt) }

func (t tokenResponse) expiresAt(now time.Time) time.Time {
	secs, err := strconv.Atoi(firstNonEmpty(t.ExpiresIn, t.ExpiresInAlt))
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return now.Add(time.Duration(secs) * time.Second)
}

type restError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// restClient talks to the Identity Toolkit REST endpoints with the web API key.
type restClient struct {
	http       *http.Client
	apiKey     string
	signInURL  string
	refreshURL string
}

func (c *restClient) signInWithPassword(ctx context.Context, email, password string) (*tokenResponse, error) {
	body, err := json.Marshal(map[string]interface{}{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withKey(c.signInURL), strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *restClient) refresh(ctx context.Context, refreshToken string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.withKey(c.refreshURL), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *restClient) withKey(endpoint string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	return endpoint + sep + "key=" + url.QueryEscape(c.apiKey)
}

func (c *restClient) do(req *http.Request) (*tokenResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read identity provider response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var re restError
		_ = json.Unmarshal(data, &re)
		return nil, classifyRESTError(resp.StatusCode, re.Error.Message)
	}

	var tr tokenResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return nil, fmt.Errorf("failed to decode identity provider response: %w", err)
	}
	return &tr, nil
}

func classifyRESTError(status int, message string) error {
	code := message
	if i := strings.Index(code, " "); i > 0 {
		code = code[:i]
	}
	switch code {
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "USER_DISABLED":
		return ErrInvalidCredentials
	case "TOKEN_EXPIRED", "INVALID_REFRESH_TOKEN", "USER_NOT_FOUND":
		return ErrSessionExpired
	case "EMAIL_EXISTS":
		return ErrEmailTaken
	}
	return fmt.Errorf("identity provider returned %d: %s", status, message)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
