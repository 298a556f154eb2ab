package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ghbridge/internal/config"
)

const headerServiceSecret = "X-SERVICE-SECRET"

// ErrUnexpectedStatus is wrapped by every non-2xx answer of the relay.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Client calls the authorization relay on behalf of the bot.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

func New(cfg config.RelayConfig) (*Client, error) {
	const op = "relay.New"

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid base url %q", op, cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		secret:     cfg.ServiceSecret,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// CreateState asks the relay for a fresh authorization URL for telegramID.
func (c *Client) CreateState(ctx context.Context, telegramID int64) (string, error) {
	const op = "relay.CreateState"

	body, err := json.Marshal(map[string]int64{"telegram_id": telegramID})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create_state", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		AuthURL string `json:"auth_url"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if resp.AuthURL == "" {
		return "", fmt.Errorf("%s: empty auth_url", op)
	}
	return resp.AuthURL, nil
}

// IsAuthorized reports whether telegramID completed the flow and with which
// GitHub login.
func (c *Client) IsAuthorized(ctx context.Context, telegramID int64) (bool, string, error) {
	const op = "relay.IsAuthorized"

	q := url.Values{"telegram_id": {strconv.FormatInt(telegramID, 10)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/is_authorized?"+q.Encode(), nil)
	if err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}

	var resp struct {
		Authorized  bool    `json:"authorized"`
		GitHubLogin *string `json:"github_login"`
	}
	if err := c.do(req, &resp); err != nil {
		return false, "", fmt.Errorf("%s: %w", op, err)
	}
	var login string
	if resp.GitHubLogin != nil {
		login = *resp.GitHubLogin
	}
	return resp.Authorized, login, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set(headerServiceSecret, c.secret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
