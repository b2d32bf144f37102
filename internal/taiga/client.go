package taiga

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

	"go.uber.org/zap"

	"github.com/clintrovert/taskbridge/internal/retry"
	"github.com/clintrovert/taskbridge/pkg/types"
)

// DefaultAPIURL is the hosted Taiga API root
const DefaultAPIURL = "https://api.taiga.io/api/v1"

const maxErrorBody = 512

// Client updates Taiga tasks and user stories
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	tokens     *TokenCache
	retry      *retry.Executor
	logger     *zap.Logger
}

// NewClient creates a new Taiga client. Missing credentials are a
// configuration error.
func NewClient(baseURL, username, password string, tokenTTL time.Duration, executor *retry.Executor, logger *zap.Logger) (*Client, error) {
	if username == "" || password == "" {
		return nil, errors.New("taiga credentials are not configured")
	}
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{},
		retry:      executor,
		logger:     logger,
	}
	c.tokens = NewTokenCache(c.login, tokenTTL, logger)

	return c, nil
}

// Tokens exposes the client's token cache
func (c *Client) Tokens() *TokenCache {
	return c.tokens
}

type authRequest struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	AuthToken string `json:"auth_token"`
}

// login exchanges username and password for an auth token. It runs with
// the context of the call that found the cache empty.
func (c *Client) login(ctx context.Context) (string, error) {
	var resp authResponse
	err := c.doJSON(ctx, false, http.MethodPost, c.baseURL+"/auth", authRequest{
		Type:     "normal",
		Username: c.username,
		Password: c.password,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.AuthToken == "" {
		return "", errors.New("taiga auth response carried no token")
	}
	return resp.AuthToken, nil
}

type itemVersion struct {
	Version int `json:"version"`
}

type itemPatch struct {
	Version int    `json:"version"`
	Comment string `json:"comment"`
}

// UpdateItem posts comment on a task or user story. The item version is
// read right before the PATCH to satisfy Taiga's optimistic locking.
func (c *Client) UpdateItem(ctx context.Context, itemType types.ItemType, itemID int64, comment string) error {
	url, err := c.itemURL(itemType, itemID)
	if err != nil {
		return err
	}

	current, err := retry.Do(ctx, c.retry, "get_item_version", func(ctx context.Context) (itemVersion, error) {
		var v itemVersion
		err := c.doJSON(ctx, true, http.MethodGet, url, nil, &v)
		return v, err
	})
	if err != nil {
		return fmt.Errorf("failed to get %s %d version: %w", itemType, itemID, err)
	}

	err = retry.Run(ctx, c.retry, "patch_item", func(ctx context.Context) error {
		return c.doJSON(ctx, true, http.MethodPatch, url, itemPatch{
			Version: current.Version,
			Comment: comment,
		}, nil)
	})
	if err != nil {
		return fmt.Errorf("failed to update %s %d: %w", itemType, itemID, err)
	}

	c.logger.Info("updated tracker item",
		zap.String("item_type", string(itemType)),
		zap.Int64("item_id", itemID),
		zap.Int("version", current.Version),
	)

	return nil
}

func (c *Client) itemURL(itemType types.ItemType, itemID int64) (string, error) {
	switch itemType {
	case types.ItemTypeTask:
		return fmt.Sprintf("%s/tasks/%d", c.baseURL, itemID), nil
	case types.ItemTypeUserStory:
		return fmt.Sprintf("%s/userstories/%d", c.baseURL, itemID), nil
	}
	return "", &types.ValidationError{Reason: fmt.Sprintf("unsupported item type %q", itemType)}
}

// doJSON performs one request. Authenticated requests fetch the token with
// ctx so a stalled login is bounded by the same deadline as the call.
func (c *Client) doJSON(ctx context.Context, authenticated bool, method, url string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authenticated {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		token.SetAuthHeader(req)
	}

	op := strings.ToLower(method) + " " + strings.TrimPrefix(url, c.baseURL)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &types.RemoteError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &types.RemoteError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized && authenticated {
			c.tokens.Clear()
		}
		if len(data) > maxErrorBody {
			data = data[:maxErrorBody]
		}
		return &types.RemoteError{Op: op, StatusCode: resp.StatusCode, Err: errors.New(strings.TrimSpace(string(data)))}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
