package gateway

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is fixed; the gateway only settles Tanzanian shillings.
const Currency = "TZS"

// Provider is a mobile-money network accepted by the gateway.
type Provider string

const (
	ProviderAirtel   Provider = "Airtel"
	ProviderTigo     Provider = "Tigo"
	ProviderHalopesa Provider = "Halopesa"
	ProviderAzampesa Provider = "Azampesa"
	ProviderMpesa    Provider = "Mpesa"
)

var providers = map[Provider]bool{
	ProviderAirtel:   true,
	ProviderTigo:     true,
	ProviderHalopesa: true,
	ProviderAzampesa: true,
	ProviderMpesa:    true,
}

// ParseProvider maps a user-supplied name onto a known Provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(s)
	if !providers[p] {
		return "", fmt.Errorf("unknown provider %q", s)
	}
	return p, nil
}

// Token is a short-lived bearer token issued by the gateway's app
// registration endpoint. It is never cached; every call re-fetches one.
type Token string

type ChargeRequest struct {
	AccountNumber string
	Amount        string
	ExternalID    string
	Provider      Provider
	// UserID is the parking-service user the charge is attributed to.
	// Empty means the session token could not be decoded; the gateway
	// accepts a null userId.
	UserID string
}

// Validate checks the request before any network round trip.
func (r ChargeRequest) Validate() error {
	if r.AccountNumber == "" {
		return ErrEmptyAccount
	}
	if r.ExternalID == "" {
		return ErrEmptyExternalID
	}
	if !providers[r.Provider] {
		return fmt.Errorf("unknown provider %q", r.Provider)
	}
	amt, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", r.Amount, err)
	}
	if !amt.IsPositive() {
		return fmt.Errorf("amount must be positive, got %s", amt)
	}
	return nil
}

// ChargeResult is produced exactly once per submitted charge.
type ChargeResult struct {
	Accepted      bool
	TransactionID string
	Message       string
}

// State is the settlement state of a charge as seen by the gateway.
type State int

const (
	StatePending State = iota
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further state change is expected.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Status is a settlement state plus the gateway's failure reason, when any.
type Status struct {
	State  State
	Reason string
}
