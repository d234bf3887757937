package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/srgjo27/fair_ticket/internal/core/domain"
	"github.com/srgjo27/fair_ticket/internal/core/ports"
)

var ErrGatewayRejected = errors.New("payment gateway rejected the request")

type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
}

// Client talks to an iamport-compatible REST API. Every call fetches a fresh
// access token first; tokens are short-lived and calls are rare.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type envelope struct {
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type paymentResponse struct {
	ImpUID      string `json:"imp_uid"`
	MerchantUID string `json:"merchant_uid"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
}

func (c *Client) Verify(ctx context.Context, impUID string) (*ports.GatewayPayment, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var p paymentResponse
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(impUID), token, nil, &p); err != nil {
		return nil, fmt.Errorf("verify payment %s: %w", impUID, err)
	}

	c.logger.Info("payment verified", "imp_uid", impUID, "status", p.Status)

	return &ports.GatewayPayment{
		ImpUID:      impUID,
		MerchantUID: p.MerchantUID,
		Amount:      p.Amount,
		Status:      p.Status,
	}, nil
}

// FindByMerchantUID looks an order up by our own id, for payments whose
// callback never arrived.
func (c *Client) FindByMerchantUID(ctx context.Context, merchantUID string) (*ports.GatewayPayment, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var p paymentResponse
	if err := c.do(ctx, http.MethodGet, "/payments/find/"+url.PathEscape(merchantUID), token, nil, &p); err != nil {
		return nil, fmt.Errorf("find payment %s: %w", merchantUID, err)
	}

	return &ports.GatewayPayment{
		ImpUID:      p.ImpUID,
		MerchantUID: merchantUID,
		Amount:      p.Amount,
		Status:      p.Status,
	}, nil
}

func (c *Client) Cancel(ctx context.Context, impUID string, amount int64, reason string) error {
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{
		"imp_uid": impUID,
		"amount":  amount,
		"reason":  reason,
	}
	if err := c.do(ctx, http.MethodPost, "/payments/cancel", token, body, nil); err != nil {
		return fmt.Errorf("cancel payment %s: %w", impUID, err)
	}

	c.logger.Info("payment cancelled at gateway", "imp_uid", impUID, "amount", amount)

	return nil
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	body := map[string]string{
		"imp_key":    c.cfg.APIKey,
		"imp_secret": c.cfg.APISecret,
	}

	var t tokenResponse
	if err := c.do(ctx, http.MethodPost, "/users/getToken", "", body, &t); err != nil {
		return "", fmt.Errorf("get gateway token: %w", err)
	}
	if t.AccessToken == "" {
		return "", fmt.Errorf("get gateway token: %w", ErrGatewayRejected)
	}

	return t.AccessToken, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrPaymentNotFound
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || env.Code != 0 {
		c.logger.Warn("gateway call failed", "path", path, "status", resp.StatusCode, "message", env.Message)
		return fmt.Errorf("%w: %s", ErrGatewayRejected, env.Message)
	}

	if out != nil && len(env.Response) > 0 {
		if err := json.Unmarshal(env.Response, out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}

	return nil
}
