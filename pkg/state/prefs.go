package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"omega/pkg/models"
)

const (
	keyPreferences = "preferences"
	keyProfile     = "profile"
	keyUserStatus  = "user_status"
	keyLastReport  = "last_report"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Preferences are the display settings of the dashboard.
type Preferences struct {
	Theme    string `json:"theme"    validate:"oneof=dark light system"`
	Language string `json:"language" validate:"min=2,max=10"`
}

// DefaultPreferences returns the dark theme in English.
func DefaultPreferences() Preferences {
	return Preferences{Theme: "dark", Language: "en"}
}

// Profile is the local user of the device.
type Profile struct {
	Name string `json:"name" validate:"max=64"`
	Role string `json:"role" validate:"oneof=guest member admin"`
}

// DefaultProfile returns the guest profile.
func DefaultProfile() Profile {
	return Profile{Name: "Guest", Role: "guest"}
}

func getOr[T any](ctx context.Context, s *Store, namespace, key string, def T) (T, error) {
	var v T
	err := s.Get(ctx, namespace, key, &v)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return v, nil
}

// Preferences returns the stored preferences or the defaults.
func (s *Store) Preferences(ctx context.Context) (Preferences, error) {
	return getOr(ctx, s, NamespacePrefs, keyPreferences, DefaultPreferences())
}

// SavePreferences validates and stores p.
func (s *Store) SavePreferences(ctx context.Context, p Preferences) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return s.Put(ctx, NamespacePrefs, keyPreferences, p)
}

// Profile returns the stored profile or the default.
func (s *Store) Profile(ctx context.Context) (Profile, error) {
	return getOr(ctx, s, NamespaceProfile, keyProfile, DefaultProfile())
}

// SaveProfile validates and stores p.
func (s *Store) SaveProfile(ctx context.Context, p Profile) error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return s.Put(ctx, NamespaceProfile, keyProfile, p)
}

// UserStatus returns the persisted self-reported status. Absent status
// defaults to good.
func (s *Store) UserStatus(ctx context.Context) (models.UserStatus, error) {
	return getOr(ctx, s, NamespaceAlly, keyUserStatus, models.UserStatus{Status: models.UserGood})
}

// SaveUserStatus stores the self-reported status.
func (s *Store) SaveUserStatus(ctx context.Context, st models.UserStatus) error {
	return s.Put(ctx, NamespaceAlly, keyUserStatus, st)
}

// LastSelfTest returns the most recent self-test report.
func (s *Store) LastSelfTest(ctx context.Context) (models.SelfTestReport, error) {
	var r models.SelfTestReport
	err := s.Get(ctx, NamespaceSelfTest, keyLastReport, &r)
	return r, err
}

// SaveSelfTest stores r as the most recent self-test report.
func (s *Store) SaveSelfTest(ctx context.Context, r models.SelfTestReport) error {
	return s.Put(ctx, NamespaceSelfTest, keyLastReport, r)
}
