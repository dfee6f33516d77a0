// Package license holds the license-key model used to gate sign-in.
package license

import "time"

// Status is a license's administrative state.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// License records one issued key bound to a user email.
type License struct {
	LicenseKey     string    `json:"licenseKey"`
	Status         Status    `json:"status"`
	UserEmail      string    `json:"userEmail"`
	CreatedAt      time.Time `json:"createdAt"`
	ActivationDate time.Time `json:"activationDate,omitempty"`
	ExpiryDate     time.Time `json:"expiryDate,omitempty"`
}

// Valid reports whether the license is currently usable: status active and
// expiry strictly in the future.
func (l License) Valid(now time.Time) bool {
	return l.Status == StatusActive && !l.ExpiryDate.IsZero() && l.ExpiryDate.After(now)
}
