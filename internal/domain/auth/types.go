package auth

import "time"

// RoleAdmin is the only role allowed to trigger index maintenance.
const RoleAdmin = "admin"

// Config drives token issuing and validation.
type Config struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

// Claims are extracted from a validated admin token.
type Claims struct {
	Subject   string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}
