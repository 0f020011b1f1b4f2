// Package parking is the client for the parking service's own API: slot
// availability, account info and slot reservation. It authenticates with the
// user's session token, not with the payment gateway's.
package parking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"smartpark-pay/internal/logger"

	"go.uber.org/zap"
)

var (
	ErrSessionExpired = errors.New("session expired, please log in again")
	ErrInvalidPlate   = errors.New("plate must follow the format: T 123 ABC (where A is A-E)")
)

// Tanzanian private plate, e.g. "T 123 ABC" with the first letter A-E.
var plateRegex = regexp.MustCompile(`^T \d{3} [A-E][A-Z]{2}$`)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) get(ctx context.Context, sessionToken, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("parking api %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("parking api %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		logger.L().Error("Parking api returned error",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", body),
		)
		return fmt.Errorf("parking api %s: status %d", path, resp.StatusCode)
	}

	return json.Unmarshal(body, out)
}

// Slots returns the current slot list with availability derived from each
// slot's status.
func (c *Client) Slots(ctx context.Context, sessionToken string) ([]Slot, error) {
	var slots []Slot
	if err := c.get(ctx, sessionToken, "/api/slots", &slots); err != nil {
		return nil, err
	}
	for i := range slots {
		slots[i].Available = slots[i].Status == "available"
	}
	return slots, nil
}

// UserInfo returns the logged-in user's name and wallet balance.
func (c *Client) UserInfo(ctx context.Context, sessionToken string) (*UserInfo, error) {
	var info UserInfo
	if err := c.get(ctx, sessionToken, "/api/info", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ValidPlate reports whether the plate number matches the accepted format
// after trimming and upper-casing.
func ValidPlate(plate string) bool {
	return plateRegex.MatchString(strings.ToUpper(strings.TrimSpace(plate)))
}

// Reserve marks a slot reserved under the given plate number. The plate is
// validated locally before any network call.
func (c *Client) Reserve(ctx context.Context, sessionToken string, slotID int, plate string) error {
	plate = strings.ToUpper(strings.TrimSpace(plate))
	if !plateRegex.MatchString(plate) {
		return ErrInvalidPlate
	}

	payload, err := json.Marshal(map[string]string{
		"status":       "reserved",
		"plate_number": plate,
	})
	if err != nil {
		return err
	}

	path := fmt.Sprintf("/api/slots/%d/status", slotID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+path, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+sessionToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("parking api %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("parking api %s: %w", path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		var res struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &res) == nil && res.Message != "" {
			return errors.New(res.Message)
		}
		return errors.New("could not reserve slot")
	}

	logger.L().Info("Slot reserved",
		zap.Int("slot_id", slotID),
		zap.String("plate", plate),
	)
	return nil
}
