// Package gateway implements the AzamPay mobile-money client: app token
// exchange, MNO checkout submission and transaction status queries.
//
// Tokens are deliberately not cached. The upstream flow re-authenticates on
// every charge and every status tick, so a Token here is a per-call value.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smartpark-pay/internal/logger"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Outbound payment calls get the strict tier: 2 rps with a small burst.
const (
	limitStrict = rate.Limit(2)
	burstStrict = 5
)

// Config carries the injected app identity and endpoint set. Credentials are
// never embedded in source; the caller loads them from the environment.
type Config struct {
	AppName      string
	ClientID     string
	ClientSecret string
	APIKey       string
	AuthURL      string
	CheckoutURL  string
	StatusURL    string
	CallbackURL  string
	Product      string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(cfg Config) *Client {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		logger.L().Warn("gateway client credentials are empty")
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "azampay",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn("gateway breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(limitStrict, burstStrict),
		breaker: breaker,
	}
}

// send pushes one request through the limiter and breaker and returns the
// response body. Transport failures and breaker rejections come back as
// NetworkError; HTTP status classification is up to the caller.
func (c *Client) send(ctx context.Context, req *http.Request) (int, []byte, error) {
	op := req.URL.Path

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}

	v, err := c.breaker.Execute(func() (interface{}, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return 0, nil, &NetworkError{Op: op, Err: ErrBreakerOpen}
		}
		return 0, nil, &NetworkError{Op: op, Err: err}
	}

	resp := v.(*http.Response)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}
	return resp.StatusCode, body, nil
}

// ----------------- GenerateToken -----------------

// GenerateToken exchanges the app credentials for a bearer access token.
func (c *Client) GenerateToken(ctx context.Context) (Token, error) {
	log := logger.FromCtx(ctx).With(zap.String("app", c.cfg.AppName))

	body, err := json.Marshal(map[string]string{
		"appName":      c.cfg.AppName,
		"clientId":     c.cfg.ClientID,
		"clientSecret": c.cfg.ClientSecret,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AuthURL, bytes.NewBuffer(body))
	if err != nil {
		log.Error("Failed creating token request", zap.Error(err))
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	status, respBody, err := c.send(ctx, req)
	if err != nil {
		log.Error("Token request failed", zap.Error(err))
		return "", err
	}

	if status != http.StatusOK && status != http.StatusCreated {
		log.Error("Token endpoint returned non-success status",
			zap.Int("status", status),
			zap.ByteString("response", respBody),
		)
		return "", fmt.Errorf("%w: status %d", ErrAuth, status)
	}

	var res struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &res); err != nil {
		log.Error("Failed decoding token response", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	if res.Data.AccessToken == "" {
		log.Error("Token response missing accessToken")
		return "", fmt.Errorf("%w: empty access token", ErrAuth)
	}

	return Token(res.Data.AccessToken), nil
}

// ----------------- Checkout -----------------

// Checkout submits a mobile-money charge. A gateway rejection is not an
// error: it comes back as ChargeResult{Accepted: false} with the gateway's
// message. Only transport failures and unreadable bodies return errors.
func (c *Client) Checkout(ctx context.Context, token Token, r ChargeRequest) (*ChargeResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("external_id", r.ExternalID),
		zap.String("provider", string(r.Provider)),
		zap.String("amount", r.Amount),
		zap.String("phone", r.AccountNumber),
	)

	if err := r.Validate(); err != nil {
		return nil, err
	}

	var userID *string
	if r.UserID != "" {
		userID = &r.UserID
	}

	body := map[string]interface{}{
		"accountNumber": r.AccountNumber,
		"amount":        r.Amount,
		"currency":      Currency,
		"externalId":    r.ExternalID,
		"provider":      string(r.Provider),
		"additionalProperties": map[string]interface{}{
			"product":     c.cfg.Product,
			"callbackUrl": c.cfg.CallbackURL,
			"userId":      userID,
		},
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		log.Error("Failed to marshal charge request", zap.Error(err))
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.CheckoutURL, bytes.NewBuffer(jsonBody))
	if err != nil {
		log.Error("Failed creating charge request", zap.Error(err))
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+string(token))
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	log.Info("Submitting charge to gateway")

	status, respBody, err := c.send(ctx, req)
	if err != nil {
		log.Error("Charge request failed", zap.Error(err))
		return nil, err
	}

	var res struct {
		TransactionID string `json:"transactionId"`
		Message       string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &res); err != nil {
		log.Error("Failed decoding charge response",
			zap.Int("status", status),
			zap.ByteString("response", respBody),
			zap.Error(err),
		)
		return nil, &PaymentError{Message: "payment failed: unreadable gateway response"}
	}

	if status < 200 || status > 299 {
		msg := res.Message
		if msg == "" {
			msg = "payment failed"
		}
		log.Warn("Gateway rejected charge",
			zap.Int("status", status),
			zap.String("message", msg),
		)
		return &ChargeResult{Accepted: false, Message: msg}, nil
	}

	log.Info("Charge accepted",
		zap.String("transaction_id", res.TransactionID),
		zap.String("message", res.Message),
	)

	return &ChargeResult{
		Accepted:      true,
		TransactionID: res.TransactionID,
		Message:       res.Message,
	}, nil
}

// ----------------- TransactionStatus -----------------

// TransactionStatus asks the gateway for the settlement state of a charge.
// Classification mirrors the upstream contract: a nested data.status of
// "completed" (case-insensitive) is terminal success, an explicit top-level
// success:false is terminal failure, anything else is still pending.
func (c *Client) TransactionStatus(ctx context.Context, token Token, referenceID string, provider Provider) (Status, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("reference_id", referenceID),
		zap.String("provider", string(provider)),
	)

	q := url.Values{}
	q.Set("referenceId", referenceID)
	q.Set("provider", string(provider))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.StatusURL+"?"+q.Encode(), nil)
	if err != nil {
		log.Error("Failed building status request", zap.Error(err))
		return Status{}, err
	}
	req.Header.Set("Authorization", "Bearer "+string(token))
	req.Header.Set("X-API-Key", c.cfg.APIKey)

	_, respBody, err := c.send(ctx, req)
	if err != nil {
		log.Warn("Status request failed", zap.Error(err))
		return Status{}, err
	}

	var res struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &res); err != nil {
		log.Warn("Failed decoding status response", zap.ByteString("response", respBody), zap.Error(err))
		return Status{}, err
	}

	if strings.EqualFold(res.Data.Status, "completed") {
		return Status{State: StateCompleted}, nil
	}
	if res.Success != nil && !*res.Success {
		msg := res.Message
		if msg == "" {
			msg = "payment failed"
		}
		return Status{State: StateFailed, Reason: msg}, nil
	}
	return Status{State: StatePending}, nil
}
