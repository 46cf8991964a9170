package selftest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"omega/pkg/api"
	"omega/pkg/client"
	"omega/pkg/config"
	"omega/pkg/metrics"
	"omega/pkg/models"
	"omega/pkg/state"
)

type SelfTestTestSuite struct {
	suite.Suite
	tempDir string
	store   *state.Store
	backend *httptest.Server
	kiwix   *httptest.Server
	cfg     *config.Config
	metrics *metrics.Metrics
	runner  *Runner
	ctx     context.Context

	statuses map[string]int
}

func (s *SelfTestTestSuite) SetupTest() {
	var err error
	s.tempDir, err = os.MkdirTemp("", "selftest-test-*")
	s.Require().NoError(err)
	s.store, err = state.NewStore(filepath.Join(s.tempDir, "state.db"))
	s.Require().NoError(err)
	s.ctx = context.Background()

	s.statuses = map[string]int{}
	s.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		code, ok := s.statuses[r.URL.Path]
		if !ok {
			code = http.StatusOK
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{}`))
	}))
	s.kiwix = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html>kiwix</html>`))
	}))

	s.cfg = config.Defaults()
	s.cfg.APIBase = s.backend.URL
	s.metrics = metrics.New(prometheus.NewRegistry())
	svc := api.New(client.New(s.backend.URL), s.cfg, s.metrics)
	s.runner = New(svc, client.New(s.kiwix.URL), s.store, s.metrics)
	s.runner.timeout = time.Second
}

func (s *SelfTestTestSuite) TearDownTest() {
	s.backend.Close()
	s.kiwix.Close()
	s.store.Close()
	os.RemoveAll(s.tempDir)
}

func (s *SelfTestTestSuite) byName(r models.SelfTestReport) map[string]models.TestResult {
	out := make(map[string]models.TestResult, len(r.Tests))
	for _, t := range r.Tests {
		out[t.Subsystem] = t
	}
	return out
}

func (s *SelfTestTestSuite) TestHealthyBackend() {
	report := s.runner.Run(s.ctx)
	s.Require().Len(report.Tests, len(subsystems))

	tests := s.byName(report)
	s.Equal(models.TestOK, tests["Frontend"].Status)
	s.Equal(models.TestOK, tests["LocalStorage"].Status)
	s.Equal(models.TestOK, tests["API_Health"].Status)
	s.Equal(models.TestOK, tests["Kiwix"].Status, "a non-JSON 200 still counts as reachable")
	s.NotNil(tests["API_Health"].LatencyMs)
	s.Equal(models.TestNotConfigured, tests["GPS"].Status)
	s.Nil(tests["GPS"].LatencyMs)

	// GPS is not configured by default, so the run is never all OK.
	s.Equal(models.TestNotConfigured, Overall([]models.TestResult{tests["GPS"]}))
	s.Equal(models.TestDegraded, report.Overall)

	last, err := s.runner.Last(s.ctx)
	s.Require().NoError(err)
	s.Equal(report.Timestamp, last.Timestamp)
	s.Equal(report.Overall, last.Overall)

	s.InDelta(1, testutil.ToFloat64(s.metrics.SelfTestRuns.WithLabelValues(string(models.TestDegraded))), 0)
}

func (s *SelfTestTestSuite) TestStatusClassification() {
	s.statuses[s.cfg.Endpoints.DM] = http.StatusForbidden
	s.statuses[s.cfg.Endpoints.Sensors] = http.StatusServiceUnavailable
	s.statuses[s.cfg.Endpoints.Metrics] = http.StatusTeapot

	report := s.runner.Run(s.ctx)
	tests := s.byName(report)
	s.Equal(models.TestForbidden, tests["API_DM"].Status)
	s.Equal("Access denied", tests["API_DM"].Details["message"])
	s.Equal(models.TestDegraded, tests["API_Sensors"].Status)
	s.Equal("Service degraded", tests["API_Sensors"].Details["message"])
	s.Equal(models.TestDegraded, tests["API_Metrics"].Status)
	s.Equal(http.StatusTeapot, tests["API_Metrics"].Details["httpStatus"])
	s.Equal(models.TestForbidden, report.Overall)
}

func (s *SelfTestTestSuite) TestUnreachableBackend() {
	s.backend.Close()
	s.kiwix.Close()

	report := s.runner.Run(s.ctx)
	tests := s.byName(report)
	s.Equal(models.TestNotConfigured, tests["API_Health"].Status)
	s.Equal("Endpoint not reachable", tests["API_Health"].Details["message"])
	s.Equal(models.TestNotConfigured, tests["Kiwix"].Status)
	s.Equal(models.TestDegraded, report.Overall, "local probes are OK, the rest unset")
}

func (s *SelfTestTestSuite) TestKiwixNotConfigured() {
	s.runner.kiwix = nil
	tests := s.byName(s.runner.Run(s.ctx))
	s.Equal(models.TestNotConfigured, tests["Kiwix"].Status)
}

func TestSelfTestSuite(t *testing.T) {
	suite.Run(t, new(SelfTestTestSuite))
}

type VerdictTestSuite struct {
	suite.Suite
}

func (s *VerdictTestSuite) TestVerdict() {
	s.Equal(models.TestOK, Verdict(client.Result{OK: true, Status: 204}))
	s.Equal(models.TestForbidden, Verdict(client.Result{Status: 403}))
	s.Equal(models.TestDegraded, Verdict(client.Result{Status: 503}))
	s.Equal(models.TestDegraded, Verdict(client.Result{Status: 500}))
	s.Equal(models.TestNotConfigured, Verdict(client.Result{Err: errors.New("refused")}))
	s.Equal(models.TestNotConfigured, Verdict(client.Result{Status: 408, Err: &client.StatusError{StatusCode: 408, Timeout: true}}))
}

func (s *VerdictTestSuite) TestOverall() {
	set := func(statuses ...models.TestStatus) []models.TestResult {
		out := make([]models.TestResult, len(statuses))
		for i, st := range statuses {
			out[i].Status = st
		}
		return out
	}
	s.Equal(models.TestOK, Overall(set(models.TestOK, models.TestOK)))
	s.Equal(models.TestForbidden, Overall(set(models.TestOK, models.TestDegraded, models.TestForbidden)))
	s.Equal(models.TestDegraded, Overall(set(models.TestOK, models.TestDegraded)))
	s.Equal(models.TestNotConfigured, Overall(set(models.TestNotConfigured, models.TestUnknown)))
	s.Equal(models.TestDegraded, Overall(set(models.TestOK, models.TestNotConfigured)))
}

func TestVerdictSuite(t *testing.T) {
	suite.Run(t, new(VerdictTestSuite))
}
