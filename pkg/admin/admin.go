// Package admin gates administrative actions behind the admin role and a
// PIN unlock that expires after a fixed period.
package admin

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"omega/pkg/log"
	"omega/pkg/state"
)

const (
	defaultUnlockTimeout = 15 * time.Minute
	defaultAdminPIN      = "1234"

	keyPINHash = "pin_hash"
	keyUnlock  = "unlock"
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,12}$`)

var (
	// ErrInvalidPIN is returned when a new PIN is not 4 to 12 digits.
	ErrInvalidPIN = errors.New("PIN must be 4 to 12 digits")

	// ErrWrongPIN is returned when PIN verification fails.
	ErrWrongPIN = errors.New("incorrect PIN")
)

// Role is a user role. Roles are ordered guest < member < admin.
type Role string

const (
	RoleGuest  Role = "guest"
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Level returns the rank of r. Unknown roles rank below guest.
func (r Role) Level() int {
	switch r {
	case RoleGuest:
		return 0
	case RoleMember:
		return 1
	case RoleAdmin:
		return 2
	default:
		return -1
	}
}

// HasRole reports whether r meets required.
func (r Role) HasRole(required Role) bool {
	return r.Level() >= required.Level()
}

// Lock reasons.
const (
	ReasonRoleRequired = "ROLE_REQUIRED"
	ReasonPINRequired  = "PIN_REQUIRED"
)

// Status describes whether admin actions are available.
type Status struct {
	Locked      bool   `json:"locked"`
	Reason      string `json:"reason,omitempty"`
	Message     string `json:"message,omitempty"`
	RemainingMs int64  `json:"remainingMs"`
}

// Store is the persistence the manager needs. *state.Store implements it.
type Store interface {
	Get(ctx context.Context, namespace, key string, out any) error
	Put(ctx context.Context, namespace, key string, value any) error
	Delete(ctx context.Context, namespace, key string) error
}

type unlockRecord struct {
	At time.Time `json:"timestamp"`
}

// Manager tracks the PIN and the unlock window.
type Manager struct {
	mu         sync.Mutex
	store      Store
	timeout    time.Duration
	defaultPIN string
	cost       int
	now        func() time.Time
}

// New creates a manager. Zero timeout uses 15 minutes; an empty default
// PIN uses 1234.
func New(store Store, timeout time.Duration, defaultPIN string) *Manager {
	if timeout <= 0 {
		timeout = defaultUnlockTimeout
	}
	if defaultPIN == "" {
		defaultPIN = defaultAdminPIN
	}
	return &Manager{
		store:      store,
		timeout:    timeout,
		defaultPIN: defaultPIN,
		cost:       bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// SetTimeout changes the unlock window.
func (m *Manager) SetTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	m.mu.Lock()
	m.timeout = timeout
	m.mu.Unlock()
}

// pinHash returns the stored hash, seeding it from the default PIN.
func (m *Manager) pinHash(ctx context.Context) ([]byte, error) {
	var hash string
	err := m.store.Get(ctx, state.NamespaceAdmin, keyPINHash, &hash)
	if err == nil {
		return []byte(hash), nil
	}
	if !errors.Is(err, state.ErrNotFound) {
		return nil, err
	}

	seeded, err := bcrypt.GenerateFromPassword([]byte(m.defaultPIN), m.cost)
	if err != nil {
		return nil, fmt.Errorf("hash default PIN: %w", err)
	}
	if err := m.store.Put(ctx, state.NamespaceAdmin, keyPINHash, string(seeded)); err != nil {
		return nil, err
	}
	return seeded, nil
}

// VerifyPIN checks pin and starts the unlock window on success.
func (m *Manager) VerifyPIN(ctx context.Context, pin string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	hash, err := m.pinHash(ctx)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(pin)) != nil {
		log.Warn().Msg("Admin PIN verification failed")
		return ErrWrongPIN
	}
	if err := m.store.Put(ctx, state.NamespaceAdmin, keyUnlock, unlockRecord{At: m.now().UTC()}); err != nil {
		return err
	}
	log.Info().Dur("timeout", m.timeout).Msg("Admin actions unlocked")
	return nil
}

// SetPIN replaces the PIN.
func (m *Manager) SetPIN(ctx context.Context, pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), m.cost)
	if err != nil {
		return fmt.Errorf("hash PIN: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Put(ctx, state.NamespaceAdmin, keyPINHash, string(hash))
}

// Lock ends the unlock window.
func (m *Manager) Lock(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.Delete(ctx, state.NamespaceAdmin, keyUnlock)
}

// Remaining returns how long the unlock window stays open. Expired
// windows are cleared and report zero.
func (m *Manager) Remaining(ctx context.Context) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rec unlockRecord
	if err := m.store.Get(ctx, state.NamespaceAdmin, keyUnlock, &rec); err != nil {
		return 0
	}
	left := m.timeout - m.now().Sub(rec.At)
	if left <= 0 {
		if err := m.store.Delete(ctx, state.NamespaceAdmin, keyUnlock); err != nil {
			log.Warn().Err(err).Msg("Failed to clear expired admin unlock")
		}
		return 0
	}
	return left
}

// Unlocked reports whether the PIN unlock window is open.
func (m *Manager) Unlocked(ctx context.Context) bool {
	return m.Remaining(ctx) > 0
}

// CanPerformAdminActions requires the admin role and an open unlock window.
func (m *Manager) CanPerformAdminActions(ctx context.Context, role Role) bool {
	return role.HasRole(RoleAdmin) && m.Unlocked(ctx)
}

// Status reports why admin actions are locked, if they are.
func (m *Manager) Status(ctx context.Context, role Role) Status {
	if !role.HasRole(RoleAdmin) {
		return Status{Locked: true, Reason: ReasonRoleRequired, Message: "Admin role required"}
	}
	left := m.Remaining(ctx)
	if left <= 0 {
		return Status{Locked: true, Reason: ReasonPINRequired, Message: "PIN verification required"}
	}
	return Status{RemainingMs: left.Milliseconds()}
}
