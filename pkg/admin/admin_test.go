package admin

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"omega/pkg/state"
)

type AdminTestSuite struct {
	suite.Suite
	tempDir string
	store   *state.Store
	manager *Manager
	now     time.Time
	ctx     context.Context
}

func (s *AdminTestSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "admin-test-*")
	s.Require().NoError(err)
	s.store, err = state.NewStore(filepath.Join(s.tempDir, "state.db"))
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.manager = New(s.store, 15*time.Minute, "")
	s.manager.cost = bcrypt.MinCost
	s.manager.now = func() time.Time { return s.now }
}

func (s *AdminTestSuite) TearDownTest() {
	s.store.Close()
	os.RemoveAll(s.tempDir)
}

func (s *AdminTestSuite) TestRoleHierarchy() {
	s.True(RoleAdmin.HasRole(RoleMember))
	s.True(RoleMember.HasRole(RoleGuest))
	s.False(RoleGuest.HasRole(RoleMember))
	s.False(Role("root").HasRole(RoleGuest))
}

func (s *AdminTestSuite) TestDefaultPINUnlocks() {
	s.ErrorIs(s.manager.VerifyPIN(s.ctx, "0000"), ErrWrongPIN)
	s.False(s.manager.Unlocked(s.ctx))

	s.Require().NoError(s.manager.VerifyPIN(s.ctx, "1234"))
	s.True(s.manager.Unlocked(s.ctx))
	s.Equal(15*time.Minute, s.manager.Remaining(s.ctx))
}

func (s *AdminTestSuite) TestUnlockExpires() {
	s.Require().NoError(s.manager.VerifyPIN(s.ctx, "1234"))

	s.now = s.now.Add(10 * time.Minute)
	s.Equal(5*time.Minute, s.manager.Remaining(s.ctx))

	s.now = s.now.Add(5 * time.Minute)
	s.False(s.manager.Unlocked(s.ctx))

	s.now = s.now.Add(-time.Minute)
	s.False(s.manager.Unlocked(s.ctx), "expired unlock must be cleared")
}

func (s *AdminTestSuite) TestSetPIN() {
	s.ErrorIs(s.manager.SetPIN(s.ctx, "12"), ErrInvalidPIN)
	s.ErrorIs(s.manager.SetPIN(s.ctx, "12ab"), ErrInvalidPIN)

	s.Require().NoError(s.manager.SetPIN(s.ctx, "987654"))
	s.ErrorIs(s.manager.VerifyPIN(s.ctx, "1234"), ErrWrongPIN)
	s.Require().NoError(s.manager.VerifyPIN(s.ctx, "987654"))

	var hash string
	s.Require().NoError(s.store.Get(s.ctx, state.NamespaceAdmin, keyPINHash, &hash))
	s.NotContains(hash, "987654")
}

func (s *AdminTestSuite) TestStatus() {
	st := s.manager.Status(s.ctx, RoleMember)
	s.True(st.Locked)
	s.Equal(ReasonRoleRequired, st.Reason)

	st = s.manager.Status(s.ctx, RoleAdmin)
	s.True(st.Locked)
	s.Equal(ReasonPINRequired, st.Reason)

	s.Require().NoError(s.manager.VerifyPIN(s.ctx, "1234"))
	st = s.manager.Status(s.ctx, RoleAdmin)
	s.False(st.Locked)
	s.Equal((15 * time.Minute).Milliseconds(), st.RemainingMs)
	s.True(s.manager.CanPerformAdminActions(s.ctx, RoleAdmin))
	s.False(s.manager.CanPerformAdminActions(s.ctx, RoleMember))

	s.Require().NoError(s.manager.Lock(s.ctx))
	s.False(s.manager.Unlocked(s.ctx))
}

func TestAdminSuite(t *testing.T) {
	suite.Run(t, new(AdminTestSuite))
}
