// Package selftest probes every subsystem the dashboard depends on and
// folds the results into one verdict.
package selftest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"omega/pkg/api"
	"omega/pkg/client"
	"omega/pkg/config"
	"omega/pkg/log"
	"omega/pkg/metrics"
	"omega/pkg/models"
)

const defaultProbeTimeout = 5 * time.Second

// Prober issues a single unretried request against a named endpoint.
// *api.Service implements it.
type Prober interface {
	Probe(ctx context.Context, name string, timeout time.Duration) client.Result
}

// Store persists reports and checks that local storage works.
// *state.Store implements it.
type Store interface {
	RoundTrip(ctx context.Context) error
	SaveSelfTest(ctx context.Context, r models.SelfTestReport) error
	LastSelfTest(ctx context.Context) (models.SelfTestReport, error)
}

type subsystem struct {
	name     string
	kind     string
	endpoint string
}

var subsystems = []subsystem{
	{name: "Frontend", kind: models.ProbeLocal},
	{name: "LocalStorage", kind: models.ProbeStorage},
	{name: "API_Health", kind: models.ProbeAPI, endpoint: config.EndpointHealth},
	{name: "API_Metrics", kind: models.ProbeAPI, endpoint: config.EndpointMetrics},
	{name: "API_DM", kind: models.ProbeAPI, endpoint: config.EndpointDM},
	{name: "API_Sensors", kind: models.ProbeAPI, endpoint: config.EndpointSensors},
	{name: "Kiwix", kind: models.ProbeAPI},
	{name: "GPS", kind: models.ProbeSensor, endpoint: config.EndpointGPS},
}

// Runner executes self-tests.
type Runner struct {
	prober  Prober
	kiwix   *client.Client
	store   Store
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time
}

// New creates a runner. kiwix may be nil, which reports Kiwix as not
// configured.
func New(prober Prober, kiwix *client.Client, store Store, m *metrics.Metrics) *Runner {
	return &Runner{
		prober:  prober,
		kiwix:   kiwix,
		store:   store,
		metrics: m,
		timeout: defaultProbeTimeout,
		now:     time.Now,
	}
}

// Run probes all subsystems concurrently, stores the report and returns it.
func (r *Runner) Run(ctx context.Context) models.SelfTestReport {
	report := models.SelfTestReport{
		Timestamp: r.now().UnixMilli(),
		Tests:     make([]models.TestResult, len(subsystems)),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, sub := range subsystems {
		g.Go(func() error {
			report.Tests[i] = r.probe(gctx, sub)
			return nil
		})
	}
	_ = g.Wait()

	report.Overall = Overall(report.Tests)
	r.metrics.SelfTestCompleted(string(report.Overall))
	log.Info().Str("overall", string(report.Overall)).Msg("Self-test complete")

	if err := r.store.SaveSelfTest(ctx, report); err != nil {
		log.Warn().Err(err).Msg("Failed to save self-test report")
	}
	return report
}

// Last returns the most recent stored report.
func (r *Runner) Last(ctx context.Context) (models.SelfTestReport, error) {
	return r.store.LastSelfTest(ctx)
}

func (r *Runner) probe(ctx context.Context, sub subsystem) models.TestResult {
	res := models.TestResult{
		Subsystem: sub.name,
		Type:      sub.kind,
		Timestamp: r.now().UnixMilli(),
		Status:    models.TestUnknown,
		Details:   map[string]any{},
	}

	switch {
	case sub.kind == models.ProbeLocal:
		res.Status = models.TestOK
		res.Details["message"] = "Dashboard service running"
	case sub.kind == models.ProbeStorage:
		if err := r.store.RoundTrip(ctx); err != nil {
			res.Details["error"] = err.Error()
			return res
		}
		res.Status = models.TestOK
		res.Details["message"] = "Local storage accessible"
	case sub.name == "Kiwix":
		if r.kiwix == nil || r.kiwix.BaseURL() == "" {
			res.Status = models.TestNotConfigured
			res.Details["message"] = "Kiwix not configured"
			return res
		}
		start := time.Now()
		out := r.kiwix.FetchWithStatus(ctx, "/", client.Options{NoRetry: true, Timeout: r.timeout})
		r.record(&res, out, start)
	default:
		start := time.Now()
		out := r.prober.Probe(ctx, sub.endpoint, r.timeout)
		if errors.Is(out.Err, api.ErrNotConfigured) {
			res.Status = models.TestNotConfigured
			res.Details["message"] = sub.name + " not configured"
			return res
		}
		r.record(&res, out, start)
	}
	return res
}

func (r *Runner) record(res *models.TestResult, out client.Result, start time.Time) {
	latency := time.Since(start).Milliseconds()
	res.LatencyMs = &latency
	res.Status = Verdict(out)

	if res.Status == models.TestNotConfigured {
		res.Details["message"] = "Endpoint not reachable"
		if out.Err != nil {
			res.Details["error"] = out.Err.Error()
		}
		return
	}
	res.Details["httpStatus"] = out.Status
	switch out.Status {
	case http.StatusForbidden:
		res.Details["message"] = "Access denied"
	case http.StatusServiceUnavailable:
		res.Details["message"] = "Service degraded"
	}
}

// Verdict classifies one probe. Any 2xx is OK even when the body is not
// JSON. Unreachable endpoints and timeouts are not configured.
func Verdict(out client.Result) models.TestStatus {
	switch {
	case out.Status == 0 || client.IsTimeout(out.Err):
		return models.TestNotConfigured
	case out.Status >= 200 && out.Status < 300:
		return models.TestOK
	case out.Status == http.StatusForbidden:
		return models.TestForbidden
	default:
		return models.TestDegraded
	}
}

// Overall folds probe results into one status.
func Overall(tests []models.TestResult) models.TestStatus {
	allOK, allUnset := true, true
	forbidden, degraded := false, false
	for _, t := range tests {
		switch t.Status {
		case models.TestOK:
			allUnset = false
		case models.TestForbidden:
			forbidden = true
			allOK, allUnset = false, false
		case models.TestDegraded:
			degraded = true
			allOK, allUnset = false, false
		case models.TestNotConfigured, models.TestUnknown:
			allOK = false
		default:
			allOK, allUnset = false, false
		}
	}
	switch {
	case allOK:
		return models.TestOK
	case forbidden:
		return models.TestForbidden
	case degraded:
		return models.TestDegraded
	case allUnset:
		return models.TestNotConfigured
	default:
		return models.TestDegraded
	}
}
