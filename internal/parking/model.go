package parking

type Slot struct {
	ID     int    `json:"id"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status"`
	// Available is derived from Status, not part of the wire payload.
	Available bool `json:"-"`
}

type UserInfo struct {
	Username string  `json:"username"`
	Balance  float64 `json:"balance"`
}
