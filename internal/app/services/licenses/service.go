// Package licenses manages license keys and the sign-in gate.
package licenses

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/ticware/opscore/internal/app/domain/license"
	"github.com/ticware/opscore/internal/app/storage"
	apperrors "github.com/ticware/opscore/internal/errors"
	"github.com/ticware/opscore/pkg/logger"
)

const keyAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Service manages license records.
type Service struct {
	store storage.LicenseStore
	log   *logger.Logger
	now   func() time.Time
}

// New constructs a license service.
func New(store storage.LicenseStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("licenses")
	}
	return &Service{store: store, log: log, now: time.Now}
}

// Create issues a new inactive license bound to an email. The key has the
// XXXX-XXXX-XXXX-XXXX shape users type in.
func (s *Service) Create(ctx context.Context, userEmail string, expiry time.Time) (license.License, error) {
	userEmail = strings.TrimSpace(userEmail)
	if userEmail == "" {
		return license.License{}, apperrors.Validation("user email is required")
	}

	key, err := generateKey()
	if err != nil {
		return license.License{}, apperrors.Internal("generate license key", err)
	}

	created, err := s.store.CreateLicense(ctx, license.License{
		LicenseKey: key,
		Status:     license.StatusInactive,
		UserEmail:  userEmail,
		ExpiryDate: expiry.UTC(),
	})
	if err != nil {
		return license.License{}, err
	}
	s.log.WithField("license_key", created.LicenseKey).
		WithField("user_email", userEmail).
		Info("license created")
	return created, nil
}

// Get fetches a license by key.
func (s *Service) Get(ctx context.Context, key string) (license.License, error) {
	return s.store.GetLicense(ctx, key)
}

// List returns all licenses.
func (s *Service) List(ctx context.Context) ([]license.License, error) {
	return s.store.ListLicenses(ctx)
}

// Activate marks a license active, stamping the activation date. A license
// created without an expiry gets one year from activation.
func (s *Service) Activate(ctx context.Context, key string) (license.License, error) {
	l, err := s.store.GetLicense(ctx, key)
	if err != nil {
		return license.License{}, err
	}
	now := s.now().UTC()
	l.Status = license.StatusActive
	l.ActivationDate = now
	if l.ExpiryDate.IsZero() {
		l.ExpiryDate = now.AddDate(1, 0, 0)
	}
	updated, err := s.store.UpdateLicense(ctx, l)
	if err != nil {
		return license.License{}, err
	}
	s.log.WithField("license_key", key).Info("license activated")
	return updated, nil
}

// Deactivate marks a license inactive.
func (s *Service) Deactivate(ctx context.Context, key string) (license.License, error) {
	l, err := s.store.GetLicense(ctx, key)
	if err != nil {
		return license.License{}, err
	}
	l.Status = license.StatusInactive
	updated, err := s.store.UpdateLicense(ctx, l)
	if err != nil {
		return license.License{}, err
	}
	s.log.WithField("license_key", key).Info("license deactivated")
	return updated, nil
}

// CheckEmail returns the currently valid license for an email, or not-found
// when none is active and unexpired. This is the login gate.
func (s *Service) CheckEmail(ctx context.Context, email string) (license.License, error) {
	all, err := s.store.ListLicenses(ctx)
	if err != nil {
		return license.License{}, err
	}
	now := s.now().UTC()
	for _, l := range all {
		if strings.EqualFold(l.UserEmail, email) && l.Valid(now) {
			return l, nil
		}
	}
	return license.License{}, apperrors.NotFound("valid license for", email)
}

func generateKey() (string, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	var b strings.Builder
	for i, c := range raw {
		if i > 0 && i%4 == 0 {
			b.WriteByte('-')
		}
		b.WriteByte(keyAlphabet[int(c)%len(keyAlphabet)])
	}
	return b.String(), nil
}
