package gateway

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewExternalID generates the client-side order identifier correlating a
// charge with the gateway's record. The millisecond timestamp keeps IDs
// sortable for tracing; the uuid fragment makes two generations inside the
// same millisecond distinct, so the gateway's duplicate-charge detection
// never collides across attempts.
func NewExternalID() string {
	return fmt.Sprintf("order-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
