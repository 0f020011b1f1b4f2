// Package session reads the parking service's login credential from local
// storage and extracts identity claims from it. The token is decoded, never
// verified: signature checks belong to the parking backend, and no caller may
// treat the returned id as authenticated.
package session

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// UserIDFromToken decodes the claims segment of a three-part session token
// and returns its "id" claim. It returns "" for a missing, malformed or
// claim-less token; callers must tolerate an absent user id.
func UserIDFromToken(raw string) string {
	if raw == "" {
		return ""
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(raw, claims); err != nil {
		return ""
	}

	switch id := claims["id"].(type) {
	case string:
		return id
	case float64:
		// JSON numbers decode as float64; ids are integral in practice.
		return strconv.FormatInt(int64(id), 10)
	}
	return ""
}
