package viewmodel

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"omega/pkg/models"
)

type ThreadTestSuite struct {
	suite.Suite
	thread *Thread
}

func (s *ThreadTestSuite) SetupTest() {
	s.thread = NewThread()
}

func (s *ThreadTestSuite) TestAddPendingIsSending() {
	id := s.thread.AddPending(models.ChatMessage{Text: "hello"})
	s.True(strings.HasPrefix(id, "temp-"))

	msg, ok := s.thread.Get(id)
	s.Require().True(ok)
	s.Equal(models.StatusSending, msg.Status)
	s.Equal(models.SelfSender, msg.Sender)
	s.NotEmpty(msg.Timestamp)
}

func (s *ThreadTestSuite) TestResolveUpdatesOnlyThatMessage() {
	first := s.thread.AddPending(models.ChatMessage{Text: "one"})
	second := s.thread.AddPending(models.ChatMessage{Text: "two"})

	s.True(s.thread.Resolve(second, Queued{}))

	a, _ := s.thread.Get(first)
	b, _ := s.thread.Get(second)
	s.Equal(models.StatusSending, a.Status)
	s.Equal(models.StatusQueued, b.Status)
}

func (s *ThreadTestSuite) TestConfirmedAdoptsServerID() {
	temp := s.thread.AddPending(models.ChatMessage{Text: "hi"})
	s.True(s.thread.Resolve(temp, Confirmed{ServerID: "srv-1"}))

	_, ok := s.thread.Get(temp)
	s.False(ok)
	msg, ok := s.thread.Get("srv-1")
	s.Require().True(ok)
	s.Equal(models.StatusSent, msg.Status)

	s.Equal(0, s.thread.Merge([]models.ChatMessage{{ID: "srv-1", Text: "hi", Status: models.StatusDelivered}}))
	msg, _ = s.thread.Get("srv-1")
	s.Equal(models.StatusDelivered, msg.Status)
	s.Equal(1, s.thread.Len())
}

func (s *ThreadTestSuite) TestFailedRecordsError() {
	temp := s.thread.AddPending(models.ChatMessage{Text: "x"})
	s.True(s.thread.Resolve(temp, Failed{Err: errors.New("boom")}))

	msg, _ := s.thread.Get(temp)
	s.Equal(models.StatusFailed, msg.Status)
	s.Equal("boom", msg.Error)
	s.False(s.thread.Resolve("missing", Queued{}))
}

func (s *ThreadTestSuite) TestMergeDedupes() {
	added := s.thread.Merge([]models.ChatMessage{{ID: "1"}, {ID: "2"}})
	s.Equal(2, added)
	added = s.thread.Merge([]models.ChatMessage{{ID: "2"}, {ID: "3"}})
	s.Equal(1, added)
	s.Equal(3, s.thread.Len())
}

func TestThreadSuite(t *testing.T) {
	suite.Run(t, new(ThreadTestSuite))
}
