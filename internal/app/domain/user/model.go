// Package user holds the user master model.
package user

import "time"

// Status gates whether a user may sign in.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// User is an application user. Roles lists role names resolved by the
// permissions service; SessionID records the single allowed session.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	Status    Status    `json:"status"`
	SessionID string    `json:"sessionId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Principal identifies the signed-in caller as supplied by the identity
// collaborator.
type Principal struct {
	ID          string
	Email       string
	DisplayName string
}
