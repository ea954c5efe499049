package domain

import "time"

// AuthSource identifies how a request identity was established.
type AuthSource string

const (
	AuthSourceSession AuthSource = "SESSION"
	AuthSourceToken   AuthSource = "TOKEN"
)

// Token represents an issued bearer token.
type Token struct {
	Value     string
	Type      string
	Subject   string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}
