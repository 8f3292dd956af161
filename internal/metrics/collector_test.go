package metrics

import (
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/restarate/loadgen/internal/client"
)

func result(method, path string, status int, latency time.Duration) client.Result {
	return client.Result{
		Endpoint:     method + " " + path,
		Method:       method,
		Path:         path,
		StatusCode:   status,
		Latency:      latency,
		ResponseSize: 100,
		Timestamp:    time.Now(),
	}
}

func TestCollector_Observe(t *testing.T) {
	c := NewCollector()
	c.Start()

	c.Observe(result(http.MethodGet, "/dishes/1", 200, 10*time.Millisecond))
	c.Observe(result(http.MethodGet, "/dishes/1", 404, 20*time.Millisecond))
	c.Observe(client.Result{Endpoint: "GET /feed", Method: http.MethodGet, Path: "/users/1/feed", Latency: time.Second, Err: errors.New("timeout")})
	c.Stop()

	s := c.Snapshot()
	assert.Equal(t, int64(3), s.Requests)
	assert.Equal(t, int64(1), s.Successes)
	assert.Equal(t, int64(2), s.Failures)
	assert.Equal(t, int64(1), s.TransportErrors)
	assert.Equal(t, int64(200), s.Bytes)
	assert.InDelta(t, 33.33, s.SuccessRate, 0.01)
	assert.Equal(t, map[int]int64{200: 1, 404: 1}, s.StatusCodes)
	assert.Equal(t, 10*time.Millisecond, s.Latency.Min)
	assert.Equal(t, time.Second, s.Latency.Max)

	ep := s.Endpoints["GET /dishes/1"]
	assert.Equal(t, int64(2), ep.Requests)
	assert.Equal(t, int64(1), ep.Failures)
	assert.InDelta(t, 50.0, ep.SuccessRate, 0.01)
}

func TestCollector_ReviewsCreated(t *testing.T) {
	tests := []struct {
		name string
		r    client.Result
		want int64
	}{
		{"created", result(http.MethodPost, "/reviews", 201, 0), 1},
		{"ok status counts too", result(http.MethodPost, "/reviews", 200, 0), 1},
		{"rejected", result(http.MethodPost, "/reviews", 400, 0), 0},
		{"other path", result(http.MethodPost, "/users", 201, 0), 0},
		{"update", result(http.MethodPut, "/reviews", 200, 0), 0},
		{"transport error", client.Result{Method: http.MethodPost, Path: "/reviews", Err: errors.New("refused")}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollector()
			c.Observe(tt.r)
			assert.Equal(t, tt.want, c.ReviewsCreated())
			assert.Equal(t, tt.want, c.Snapshot().ReviewsCreated)
		})
	}
}

func TestCollector_SessionsAndTasks(t *testing.T) {
	c := NewCollector()
	c.SessionStarted()
	c.SessionStarted()
	c.SessionAborted()
	c.SessionStopped()
	c.TaskExecuted("dishes")
	c.TaskExecuted("dishes")
	c.TaskExecuted("profile")

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.SessionsStarted)
	assert.Equal(t, int64(1), s.SessionsAborted)
	assert.Equal(t, int64(1), s.SessionsStopped)
	assert.Equal(t, int64(1), s.ActiveSessions())
	assert.Equal(t, map[string]int64{"dishes": 2, "profile": 1}, s.Tasks)
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector()
	c.Start()

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				c.Observe(result(http.MethodPost, "/reviews", 201, time.Millisecond))
				c.TaskExecuted("reviews")
			}
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	assert.Equal(t, int64(2000), s.Requests)
	assert.Equal(t, int64(2000), s.ReviewsCreated)
	assert.Equal(t, int64(2000), s.Tasks["reviews"])
	assert.Positive(t, s.QPS)
}

func TestCollector_Duration(t *testing.T) {
	c := NewCollector()
	assert.Zero(t, c.Duration())

	c.Start()
	time.Sleep(5 * time.Millisecond)
	c.Stop()
	d := c.Duration()
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, d, c.Duration(), "duration is frozen after Stop")
}

func TestWindow(t *testing.T) {
	w := newWindow(10)
	for i := 1; i <= 10; i++ {
		w.add(int64(i))
	}
	w.add(100)

	// The older half was dropped before the 11th sample.
	w.mu.Lock()
	assert.Equal(t, []int64{6, 7, 8, 9, 10, 100}, w.samples)
	w.mu.Unlock()

	st := w.stats()
	assert.Equal(t, time.Duration(6), st.Min)
	assert.Equal(t, time.Duration(100), st.Max)
	assert.Equal(t, time.Duration(9), st.P50)
}

func TestPercentileIndex(t *testing.T) {
	tests := []struct {
		n    int
		p    float64
		want int
	}{
		{100, 0.5, 50},
		{100, 0.99, 99},
		{1, 0.99, 0},
		{10, 1.0, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, percentileIndex(tt.n, tt.p))
	}
}

func TestTee(t *testing.T) {
	a, b := NewCollector(), NewCollector()
	var rec Recorder = Tee{a, b}

	rec.Observe(result(http.MethodPost, "/reviews", 201, 0))
	rec.SessionStarted()
	rec.SessionAborted()
	rec.SessionStopped()
	rec.TaskExecuted("social")

	for _, c := range []*Collector{a, b} {
		s := c.Snapshot()
		require.Equal(t, int64(1), s.Requests)
		assert.Equal(t, int64(1), s.ReviewsCreated)
		assert.Equal(t, int64(1), s.SessionsStarted)
		assert.Equal(t, int64(1), s.SessionsAborted)
		assert.Equal(t, int64(1), s.SessionsStopped)
		assert.Equal(t, int64(1), s.Tasks["social"])
	}
}
