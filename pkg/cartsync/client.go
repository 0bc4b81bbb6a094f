package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors for API failures.
var (
	ErrNetworkError    = errors.New("network error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrRequestRejected = errors.New("request rejected")
)

// APIError is a server-side rejection carrying the error code from the
// response envelope.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrRequestRejected
}

// PromotionResult reports the outcome of applying a promotion code.
type PromotionResult struct {
	WasApplied bool    `json:"was_applied"`
	Savings    float64 `json:"savings"`
}

// CartAPI is the authoritative cart surface the optimistic store
// reconciles against.
type CartAPI interface {
	GetCart(ctx context.Context) (*Cart, error)
	AddToCart(ctx context.Context, productID uint, quantity int) (*Cart, error)
	UpdateItem(ctx context.Context, productID uint, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, productID uint) (*Cart, error)
	ClearCart(ctx context.Context) (*Cart, error)
	RefreshPrices(ctx context.Context) (*Cart, error)
	ApplyPromotion(ctx context.Context, code string) (*Cart, *PromotionResult, error)
	RemovePromotion(ctx context.Context) (*Cart, error)
}

// Config holds the connection settings for the cart API client.
type Config struct {
	BaseURL     string
	AccessToken string
	// SessionID identifies this client session so server pushes can skip
	// the originator.
	SessionID string
	Timeout   time.Duration
}

func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base URL is required")
	}
	if c.AccessToken == "" {
		return errors.New("access token is required")
	}
	return nil
}

// Client talks to the cart HTTP API. It implements CartAPI.
type Client struct {
	config     Config
	httpClient *http.Client
}

func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// cartEnvelope is the JSON envelope every cart endpoint returns.
type cartEnvelope struct {
	Success   bool              `json:"success"`
	Cart      *Cart `json:"cart"`
	Promotion *PromotionResult  `json:"promotion"`
	Error     string            `json:"error"`
	Message   string            `json:"message"`
}

func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	env, err := c.doRequest(ctx, http.MethodGet, "/api/v1/cart", nil)
	if err != nil {
		return nil, err
	}
	return env.Cart, nil
}

func (c *Client) AddToCart(ctx context.Context, productID uint, quantity int) (*Cart, error) {
	payload := map[string]interface{}{
		"product_id": productID,
		"quantity":   quantity,
	}
	env, err := c.doRequest(ctx, http.MethodPost, "/api/v1/cart", payload)
	if err != nil {
		return nil, err
	}
	return env.Cart, nil
}

func (c *Client) UpdateItem(ctx context.Context, productID uint, quantity int) (*Cart, error) {
	payload := map[string]interface{}{
		"quantity": quantity,
	}
	path := fmt.Sprintf("/api/v1/cart/items/%d", productID)
	env, err := c.doRequest(ctx, http.MethodPut, path, payload)
	if err != nil {
		return nil, err
	}
	return env.Cart, nil
}

func (c *Client) RemoveItem(ctx context.Context, productID uint) (*Cart, error) {
	path := fmt.Sprintf("/api/v1/cart/items/%d", productID)
	env, err := c.doRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return nil, err
	}
	return env.Cart, nil
}

func (c *Client) ClearCart(ctx context.Context) (*Cart, error) {
	env, err := c.doRequest(ctx, http.MethodDelete, "/api/v1/cart", nil)
	if err != nil {
		return nil, err
	}
	return env.Cart, nil
}

func (c *Client) RefreshPrices(ctx context.Context) (*Cart, error) {
	env, err := c.doRequest(ctx, http.MethodPost, "/api/v1/cart/refresh", nil)
	if err != nil {
		return nil, err
	}
	return env.Cart, nil
}

func (c *Client) ApplyPromotion(ctx context.Context, code string) (*Cart, *PromotionResult, error) {
	payload := map[string]interface{}{
		"code": code,
	}
	env, err := c.doRequest(ctx, http.MethodPost, "/api/v1/cart/promotion", payload)
	if err != nil {
		return nil, nil, err
	}
	return env.Cart, env.Promotion, nil
}

func (c *Client) RemovePromotion(ctx context.Context) (*Cart, error) {
	env, err := c.doRequest(ctx, http.MethodDelete, "/api/v1/cart/promotion", nil)
	if err != nil {
		return nil, err
	}
	return env.Cart, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, payload interface{}) (*cartEnvelope, error) {
	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewBuffer(reqBody)
	}

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	if c.config.SessionID != "" {
		req.Header.Set("X-Session-ID", c.config.SessionID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env cartEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, env.Message)
	}
	if !env.Success {
		return nil, &APIError{Code: env.Error, Message: env.Message}
	}

	return &env, nil
}
