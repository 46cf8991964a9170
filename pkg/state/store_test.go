package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"omega/pkg/models"
)

// StoreTestSuite tests the local state Store.
type StoreTestSuite struct {
	suite.Suite
	tempDir string
	dbPath  string
	store   *Store
	ctx     context.Context
}

func (s *StoreTestSuite) SetupSuite() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "state-store-test-*")
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func (s *StoreTestSuite) TearDownSuite() {
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

func (s *StoreTestSuite) SetupTest() {
	s.dbPath = filepath.Join(s.tempDir, "test.db")
	var err error
	s.store, err = NewStore(s.dbPath)
	s.Require().NoError(err)
}

func (s *StoreTestSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
	os.Remove(s.dbPath)
	os.Remove(s.dbPath + "-wal")
	os.Remove(s.dbPath + "-shm")
}

func (s *StoreTestSuite) TestNewStoreInvalidPath() {
	_, err := NewStore("/nonexistent/path/to/db.sqlite")
	s.Require().Error(err)
	s.ErrorIs(err, ErrDatabaseError)
}

func (s *StoreTestSuite) TestPutGetOverwrite() {
	s.Require().NoError(s.store.Put(s.ctx, "ns", "k", map[string]int{"a": 1}))
	s.Require().NoError(s.store.Put(s.ctx, "ns", "k", map[string]int{"a": 2}))

	var got map[string]int
	s.Require().NoError(s.store.Get(s.ctx, "ns", "k", &got))
	s.Equal(2, got["a"])
}

func (s *StoreTestSuite) TestGetMissing() {
	var got string
	s.ErrorIs(s.store.Get(s.ctx, "ns", "missing", &got), ErrNotFound)
}

func (s *StoreTestSuite) TestDeleteAndList() {
	s.Require().NoError(s.store.Put(s.ctx, "ns", "a", 1))
	s.Require().NoError(s.store.Put(s.ctx, "ns", "b", 2))
	s.Require().NoError(s.store.Put(s.ctx, "other", "c", 3))
	s.Require().NoError(s.store.Delete(s.ctx, "ns", "a"))
	s.Require().NoError(s.store.Delete(s.ctx, "ns", "never-existed"))

	items, err := s.store.List(s.ctx, "ns")
	s.Require().NoError(err)
	s.Len(items, 1)
	s.JSONEq(`2`, string(items["b"]))
}

func (s *StoreTestSuite) TestInvalidValue() {
	s.ErrorIs(s.store.Put(s.ctx, "ns", "k", make(chan int)), ErrInvalidValue)
}

func (s *StoreTestSuite) TestRoundTrip() {
	s.Require().NoError(s.store.RoundTrip(s.ctx))
	items, err := s.store.List(s.ctx, NamespaceProbe)
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *StoreTestSuite) TestPreferences() {
	p, err := s.store.Preferences(s.ctx)
	s.Require().NoError(err)
	s.Equal(DefaultPreferences(), p)

	s.Require().NoError(s.store.SavePreferences(s.ctx, Preferences{Theme: "light", Language: "es"}))
	p, err = s.store.Preferences(s.ctx)
	s.Require().NoError(err)
	s.Equal("light", p.Theme)

	s.ErrorIs(s.store.SavePreferences(s.ctx, Preferences{Theme: "neon", Language: "en"}), ErrInvalidValue)
}

func (s *StoreTestSuite) TestProfile() {
	p, err := s.store.Profile(s.ctx)
	s.Require().NoError(err)
	s.Equal("guest", p.Role)

	s.Require().NoError(s.store.SaveProfile(s.ctx, Profile{Name: "Ranger", Role: "admin"}))
	p, err = s.store.Profile(s.ctx)
	s.Require().NoError(err)
	s.Equal("Ranger", p.Name)

	s.ErrorIs(s.store.SaveProfile(s.ctx, Profile{Role: "root"}), ErrInvalidValue)
}

func (s *StoreTestSuite) TestUserStatusAndSelfTest() {
	st, err := s.store.UserStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.UserGood, st.Status)

	note := "twisted ankle"
	s.Require().NoError(s.store.SaveUserStatus(s.ctx, models.UserStatus{Status: models.UserNeedHelp, Note: &note}))
	st, err = s.store.UserStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.UserNeedHelp, st.Status)
	s.Equal(note, *st.Note)

	_, err = s.store.LastSelfTest(s.ctx)
	s.ErrorIs(err, ErrNotFound)

	report := models.SelfTestReport{Timestamp: 42, Overall: models.TestOK}
	s.Require().NoError(s.store.SaveSelfTest(s.ctx, report))
	got, err := s.store.LastSelfTest(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.TestOK, got.Overall)
	s.Equal(int64(42), got.Timestamp)
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}
