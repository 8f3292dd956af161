// Package e2e provides end-to-end tests for the load generator against a
// running restaurant service.
//
// These tests require a live, disposable service instance: the contract
// run deletes every dish, user, review and author it can find. They are
// skipped by default and can be enabled by setting RESTARATE_E2E=1.
//
// Usage:
//
//	RESTARATE_E2E=1 go test -v ./internal/e2e/...
//	RESTARATE_E2E=1 API_HOST=http://localhost:8080 go test -v ./internal/e2e/...
package e2e

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/example/restarate/loadgen/internal/api"
	"github.com/example/restarate/loadgen/internal/client"
	"github.com/example/restarate/loadgen/internal/config"
	"github.com/example/restarate/loadgen/internal/contract"
	"github.com/example/restarate/loadgen/internal/metrics"
	"github.com/example/restarate/loadgen/internal/runner"
)

// skipUnlessE2E skips the test unless E2E testing is enabled.
func skipUnlessE2E(t *testing.T) {
	t.Helper()
	if os.Getenv("RESTARATE_E2E") != "1" {
		t.Skip("E2E tests disabled. Set RESTARATE_E2E=1 to enable.")
	}
}

// loadConfig returns the defaults overlaid with the environment, which is
// where API_HOST comes in.
func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	return cfg
}

func newAPI(t *testing.T, cfg *config.Config) *api.API {
	t.Helper()
	c, err := client.NewClient(cfg.Target)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return api.New(c)
}

func TestServiceConnectivity(t *testing.T) {
	skipUnlessE2E(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := loadConfig(t)
	resp, err := newAPI(t, cfg).Send(ctx, api.ListDishes.With())
	require.NoError(t, err, "Failed to connect to service at %s", cfg.Target.BaseURL)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "GET /dishes should return 200")
}

func TestContract(t *testing.T) {
	skipUnlessE2E(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report := contract.NewSuite(newAPI(t, loadConfig(t)), contract.WithLogger(zaptest.NewLogger(t))).Run(ctx)
	for _, res := range report.Results {
		t.Run(res.Name, func(t *testing.T) {
			switch res.Outcome {
			case contract.Skipped:
				t.Skip(res.Messages)
			case contract.Failed:
				for _, msg := range res.Messages {
					t.Error(msg)
				}
			}
			assert.NoError(t, res.TeardownErr, "teardown")
		})
	}
	t.Logf("%d passed, %d failed, %d skipped in %s",
		report.Passed(), report.Failed(), report.Skipped(), report.Duration.Round(time.Millisecond))
}

// TestSimpleLoadRun performs a short load run (30 seconds, 10 users).
func TestSimpleLoadRun(t *testing.T) {
	skipUnlessE2E(t)

	cfg := loadConfig(t)
	cfg.Name = "e2e-simple"
	cfg.Users = 10
	cfg.SpawnRate = 5
	cfg.Duration = 30 * time.Second
	cfg.Output.ReportInterval = 5 * time.Second
	cfg.Assertions.Global = &config.GlobalAssertions{
		MinSuccessRate:     ptr(90.0),
		MinRequests:        100,
		MaxSessionsAborted: ptr(int64(0)),
	}

	snap := runLoad(t, cfg, time.Minute)
	assert.Equal(t, snap.SessionsStarted, snap.SessionsStopped, "every registered user should stop")
}

// TestExtendedLoadRun performs a 5-minute load run with 50 users.
func TestExtendedLoadRun(t *testing.T) {
	skipUnlessE2E(t)
	if testing.Short() {
		t.Skip("extended run skipped in short mode")
	}

	cfg := loadConfig(t)
	cfg.Name = "e2e-extended"
	cfg.Users = 50
	cfg.SpawnRate = 10
	cfg.Duration = 5 * time.Minute
	cfg.Output.ReportInterval = time.Minute
	cfg.Output.Verbose = true
	cfg.Output.JSONFile = filepath.Join(t.TempDir(), "extended.json")
	cfg.Assertions.Global = &config.GlobalAssertions{
		MinSuccessRate:    ptr(95.0),
		MaxP95Latency:     2 * time.Second,
		MinRequests:       5000,
		MinReviewsCreated: 1,
	}
	cfg.Assertions.Endpoints = map[string]config.EndpointAssertions{
		api.CreateUser.Name(): {MinSuccessRate: ptr(99.0)},
	}

	snap := runLoad(t, cfg, 6*time.Minute)

	t.Logf("\n===== 5-MINUTE LOAD TEST RESULTS =====")
	t.Logf("Duration: %s", snap.Duration.Round(time.Second))
	t.Logf("Total requests: %d", snap.Requests)
	t.Logf("Failed: %d", snap.Failures)
	t.Logf("QPS: %.2f", snap.QPS)
	t.Logf("Success rate: %.2f%%", snap.SuccessRate)
	t.Logf("P95 latency: %s", snap.Latency.P95)
	t.Logf("Reviews created: %d", snap.ReviewsCreated)
	assert.FileExists(t, cfg.Output.JSONFile)
}

func runLoad(t *testing.T, cfg *config.Config, timeout time.Duration) metrics.Snapshot {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	r, err := runner.New(cfg, zaptest.NewLogger(t), runner.WithoutSignals(), runner.WithOutput(testWriter{t}))
	require.NoError(t, err)

	snap, err := r.Run(ctx)
	if results := r.Assertions(); results != nil {
		for _, f := range results.FailedResults() {
			t.Errorf("%s: expected %s, got %s", f.Name, f.Expected, f.Actual)
		}
		t.Log(results.Summary())
	}
	if !errors.Is(err, metrics.ErrAssertionFailed) {
		require.NoError(t, err)
	}
	require.NoError(t, ctx.Err(), "run outlived its deadline")
	return snap
}

func ptr[T any](v T) *T { return &v }

// testWriter sends runner output to the test log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
