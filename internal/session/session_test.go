package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/restarate/loadgen/internal/api"
	"github.com/example/restarate/loadgen/internal/config"
	"github.com/example/restarate/loadgen/internal/fixture"
	"github.com/example/restarate/loadgen/internal/generator"
)

var (
	errStatus    = &api.StatusError{Endpoint: "test", StatusCode: 500}
	errTransport = fmt.Errorf("%w: %w", api.ErrTransport, errors.New("connection refused"))
)

// fakeAPI records calls and returns scripted results.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	registerErrs  []error
	registerPanic bool
	userID        int64
	reviewID      int64
	searchResult  []int64
	errs          map[string]error
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{userID: 42, reviewID: 900, errs: make(map[string]error)}
}

func (f *fakeAPI) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.errs[call]
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) RegisterUser(context.Context, api.User) (int64, error) {
	if f.registerPanic {
		panic("boom")
	}
	_ = f.record("register")
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.registerErrs) > 0 {
		err := f.registerErrs[0]
		f.registerErrs = f.registerErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	return f.userID, nil
}

func (f *fakeAPI) RemoveUser(context.Context, int64) error { return f.record("removeUser") }
func (f *fakeAPI) UpdateProfile(_ context.Context, p api.ProfileUpdate) error {
	return f.record("updateProfile")
}
func (f *fakeAPI) ViewDish(context.Context, int64) error { return f.record("viewDish") }
func (f *fakeAPI) LikeDish(context.Context, int64, int64) error { return f.record("likeDish") }
func (f *fakeAPI) UnlikeDish(context.Context, int64, int64) error { return f.record("unlikeDish") }
func (f *fakeAPI) PostReview(context.Context, api.Review) (int64, error) {
	if err := f.record("postReview"); err != nil {
		return 0, err
	}
	return f.reviewID, nil
}
func (f *fakeAPI) ViewReview(context.Context, int64) error { return f.record("viewReview") }
func (f *fakeAPI) LikeReview(context.Context, int64, int64) error { return f.record("likeReview") }
func (f *fakeAPI) UnlikeReview(context.Context, int64, int64) error { return f.record("unlikeReview") }
func (f *fakeAPI) AddFriend(context.Context, int64, int64) error { return f.record("addFriend") }
func (f *fakeAPI) RemoveFriend(context.Context, int64, int64) error { return f.record("removeFriend") }
func (f *fakeAPI) Friends(context.Context, int64) error { return f.record("friends") }
func (f *fakeAPI) Recommendations(context.Context, int64) error { return f.record("recommendations") }
func (f *fakeAPI) Feed(context.Context, int64) error { return f.record("feed") }
func (f *fakeAPI) SearchUsers(context.Context, string) ([]int64, error) {
	if err := f.record("search"); err != nil {
		return nil, err
	}
	return append([]int64(nil), f.searchResult...), nil
}

// scriptedRand replays floats and ints, then falls back to "never" values.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.999
	}
	f := r.floats[0]
	r.floats = r.floats[1:]
	return f
}

func (r *scriptedRand) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	i := r.ints[0]
	r.ints = r.ints[1:]
	return i % n
}

type countingObserver struct {
	mu                        sync.Mutex
	started, aborted, stopped int
	tasks                     map[string]int
}

func (o *countingObserver) SessionStarted() { o.mu.Lock(); o.started++; o.mu.Unlock() }
func (o *countingObserver) SessionAborted() { o.mu.Lock(); o.aborted++; o.mu.Unlock() }
func (o *countingObserver) SessionStopped() { o.mu.Lock(); o.stopped++; o.mu.Unlock() }
func (o *countingObserver) TaskExecuted(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.tasks == nil {
		o.tasks = make(map[string]int)
	}
	o.tasks[name]++
}

type harness struct {
	api  *fakeAPI
	rng  *scriptedRand
	obs  *countingObserver
	logs *observer.ObservedLogs
	sess *Session
}

func newHarness(t *testing.T, snap fixture.Snapshot, mutate ...func(*config.Config)) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.WaitTime.Min, cfg.WaitTime.Max = 0, 0
	for _, m := range mutate {
		m(cfg)
	}

	core, logs := observer.New(zap.DebugLevel)
	h := &harness{api: newFakeAPI(), rng: &scriptedRand{}, obs: &countingObserver{}, logs: logs}
	s, err := New(Deps{
		API:      h.api,
		Faker:    generator.NewFaker(1),
		Rand:     h.rng,
		Logger:   zap.New(core),
		Config:   cfg,
		Observer: h.obs,
	}, snap, WithID("test-session"))
	require.NoError(t, err)
	h.sess = s
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	require.NoError(t, h.sess.Start(context.Background()))
	h.api.mu.Lock()
	h.api.calls = nil
	h.api.mu.Unlock()
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{}, fixture.Snapshot{})
	require.Error(t, err)

	cfg := config.Default()
	cfg.Tasks = config.TaskWeights{}
	_, err = New(Deps{API: newFakeAPI(), Config: cfg}, fixture.Snapshot{})
	require.Error(t, err)
}

func TestNew_ZeroWeightDisablesTask(t *testing.T) {
	h := newHarness(t, fixture.Snapshot{}, func(c *config.Config) {
		c.Tasks = config.TaskWeights{Profile: 1}
	})
	assert.Equal(t, []string{TaskProfile}, h.sess.table.Names())
}

func TestStart(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		require.NoError(t, h.sess.Start(context.Background()))

		assert.Equal(t, StateActive, h.sess.State())
		assert.Equal(t, int64(42), h.sess.UserID())
		assert.Equal(t, 1, h.sess.Stats().Attempts)
		assert.Equal(t, 1, h.obs.started)
	})

	t.Run("second attempt succeeds", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.api.registerErrs = []error{errStatus}
		require.NoError(t, h.sess.Start(context.Background()))

		assert.Equal(t, StateActive, h.sess.State())
		assert.Equal(t, 2, h.sess.Stats().Attempts)
		assert.Equal(t, 1, h.logs.FilterMessage("registration attempt failed").Len())
	})

	t.Run("all attempts fail", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.api.registerErrs = []error{errStatus, errTransport}
		err := h.sess.Start(context.Background())

		require.ErrorIs(t, err, ErrRegistrationFailed)
		assert.Equal(t, StateAborted, h.sess.State())
		assert.Equal(t, []string{"register", "register"}, h.api.Calls())
		assert.Equal(t, 1, h.obs.aborted)
		assert.Equal(t, 1, h.logs.FilterMessage("could not register user").Len())
	})

	t.Run("malformed body counts as failure", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		malformed := fmt.Errorf("%w: no id", api.ErrMalformedResponse)
		h.api.registerErrs = []error{malformed, malformed}
		require.ErrorIs(t, h.sess.Start(context.Background()), ErrRegistrationFailed)
	})

	t.Run("panic aborts", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.api.registerPanic = true
		err := h.sess.Start(context.Background())

		require.ErrorIs(t, err, ErrRegistrationFailed)
		assert.Equal(t, StateAborted, h.sess.State())
	})

	t.Run("twice", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)
		assert.ErrorIs(t, h.sess.Start(context.Background()), ErrInvalidTransition)
	})
}

func TestStop(t *testing.T) {
	t.Run("deletes registered user", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)
		require.NoError(t, h.sess.Stop(context.Background()))

		assert.Equal(t, StateTerminated, h.sess.State())
		assert.Equal(t, []string{"removeUser"}, h.api.Calls())
		assert.Equal(t, 1, h.obs.stopped)
	})

	t.Run("deletion failure still terminates", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)
		h.api.errs["removeUser"] = errStatus
		require.NoError(t, h.sess.Stop(context.Background()))

		assert.Equal(t, StateTerminated, h.sess.State())
		assert.Equal(t, 1, h.logs.FilterMessage("user deletion rejected").Len())
	})

	t.Run("aborted session deletes nothing", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.api.registerErrs = []error{errStatus, errStatus}
		_ = h.sess.Start(context.Background())
		require.NoError(t, h.sess.Stop(context.Background()))

		assert.Equal(t, StateAborted, h.sess.State())
		assert.Equal(t, []string{"register", "register"}, h.api.Calls())
	})

	t.Run("unstarted session terminates", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		require.NoError(t, h.sess.Stop(context.Background()))
		assert.Equal(t, StateTerminated, h.sess.State())
		assert.Empty(t, h.api.Calls())
	})
}

func TestStep_RequiresActive(t *testing.T) {
	h := newHarness(t, fixture.Snapshot{})
	_, err := h.sess.Step(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStep_TaskErrorDoesNotEscape(t *testing.T) {
	h := newHarness(t, fixture.Snapshot{}, func(c *config.Config) {
		c.Tasks = config.TaskWeights{Profile: 1}
	})
	h.start(t)
	h.api.errs["recommendations"] = errTransport

	name, err := h.sess.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, TaskProfile, name)
	assert.Equal(t, StateActive, h.sess.State())
	assert.Equal(t, 1, h.sess.Stats().Tasks[TaskProfile])
	assert.Equal(t, 1, h.obs.tasks[TaskProfile])

	entries := h.logs.FilterMessage("task failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "transport", entries[0].ContextMap()["kind"])
}

func TestStep_RejectedCallIsWarning(t *testing.T) {
	h := newHarness(t, fixture.Snapshot{}, func(c *config.Config) {
		c.Tasks = config.TaskWeights{Profile: 1}
	})
	h.start(t)
	h.api.errs["feed"] = &api.StatusError{Endpoint: "GET /users/{id}/feed", StatusCode: 503}

	_, err := h.sess.Step(context.Background())
	require.NoError(t, err)

	entries := h.logs.FilterMessage("task ended early").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.EqualValues(t, 503, entries[0].ContextMap()["status"])
}

func TestDishes(t *testing.T) {
	snap := fixture.NewSnapshot([]int64{1, 2, 3}, nil)

	tests := []struct {
		name    string
		floats  []float64
		errs    map[string]error
		want    []string
		wantErr error
	}{
		{"like", []float64{0.1}, nil, []string{"viewDish", "likeDish"}, nil},
		{"unlike after missed like", []float64{0.5, 0.05}, nil, []string{"viewDish", "unlikeDish"}, nil},
		{"neither", []float64{0.3, 0.1}, nil, []string{"viewDish"}, nil},
		{"view rejected ends task", []float64{0.1}, map[string]error{"viewDish": errStatus}, []string{"viewDish"}, api.ErrUnexpectedStatus},
		{"view transport error ends task", []float64{0.1}, map[string]error{"viewDish": errTransport}, []string{"viewDish"}, api.ErrTransport},
		{"like rejected", []float64{0.1}, map[string]error{"likeDish": errStatus}, []string{"viewDish", "likeDish"}, api.ErrUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, snap)
			h.start(t)
			h.rng.floats = tt.floats
			for k, v := range tt.errs {
				h.api.errs[k] = v
			}

			err := h.sess.interactWithDishes(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, h.api.Calls())
		})
	}
}

func TestDishes_NoFixtures(t *testing.T) {
	h := newHarness(t, fixture.Snapshot{})
	h.start(t)

	require.NoError(t, h.sess.interactWithDishes(context.Background()))
	assert.Empty(t, h.api.Calls())
	assert.Equal(t, 1, h.logs.FilterMessage("no dishes known, skipping dish task").Len())
}

func TestReviews(t *testing.T) {
	t.Run("create then like", func(t *testing.T) {
		h := newHarness(t, fixture.NewSnapshot([]int64{5}, nil))
		h.start(t)
		h.rng.floats = []float64{0.1, 0.1}

		require.NoError(t, h.sess.manageReviews(context.Background()))
		assert.Equal(t, []string{"postReview", "likeReview", "viewReview"}, h.api.Calls())
		assert.Equal(t, 1, h.sess.Stats().Reviews)
	})

	t.Run("create rejected is not recorded", func(t *testing.T) {
		h := newHarness(t, fixture.NewSnapshot([]int64{5}, nil))
		h.start(t)
		h.api.errs["postReview"] = errStatus
		h.rng.floats = []float64{0.1}

		require.ErrorIs(t, h.sess.manageReviews(context.Background()), api.ErrUnexpectedStatus)
		assert.Equal(t, []string{"postReview"}, h.api.Calls())
		assert.Zero(t, h.sess.Stats().Reviews)
	})

	t.Run("no dishes means no create", func(t *testing.T) {
		h := newHarness(t, fixture.NewSnapshot(nil, []int64{7}))
		h.start(t)
		h.rng.floats = []float64{0.5, 0.05}

		require.NoError(t, h.sess.manageReviews(context.Background()))
		assert.Equal(t, []string{"unlikeReview", "viewReview"}, h.api.Calls())
	})

	t.Run("nothing known", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)

		require.NoError(t, h.sess.manageReviews(context.Background()))
		assert.Empty(t, h.api.Calls())
	})

	t.Run("created review is not shared", func(t *testing.T) {
		snap := fixture.NewSnapshot([]int64{5}, []int64{1})
		a := newHarness(t, snap)
		b := newHarness(t, snap)
		a.start(t)
		a.rng.floats = []float64{0.1}

		require.NoError(t, a.sess.manageReviews(context.Background()))
		assert.Equal(t, 2, a.sess.Stats().Reviews)
		assert.Equal(t, 1, b.sess.Stats().Reviews)
		assert.Equal(t, []int64{1}, snap.ReviewIDs())
	})
}

func TestSocial(t *testing.T) {
	t.Run("adds a friend and lists friends", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)
		h.api.searchResult = []int64{42, 7}
		h.rng.floats = []float64{0.1}

		require.NoError(t, h.sess.socialInteractions(context.Background()))
		assert.Equal(t, []string{"search", "addFriend", "friends"}, h.api.Calls())
		assert.Equal(t, []int64{7}, h.sess.Stats().Friends)
	})

	t.Run("only self found", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)
		h.api.searchResult = []int64{42}
		h.rng.floats = []float64{0.1}

		require.NoError(t, h.sess.socialInteractions(context.Background()))
		assert.Equal(t, []string{"search"}, h.api.Calls())
	})

	t.Run("rejected add leaves friends unchanged", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)
		h.api.searchResult = []int64{7}
		h.api.errs["addFriend"] = errStatus
		h.rng.floats = []float64{0.1}

		require.ErrorIs(t, h.sess.socialInteractions(context.Background()), api.ErrUnexpectedStatus)
		assert.Equal(t, []string{"search", "addFriend"}, h.api.Calls())
		assert.Empty(t, h.sess.Stats().Friends)
	})

	t.Run("existing friend is removed instead", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)
		h.api.searchResult = []int64{7}
		h.rng.floats = []float64{0.1}
		require.NoError(t, h.sess.socialInteractions(context.Background()))

		h.api.calls = nil
		// add draw hits but 7 is already a friend; remove draw hits.
		h.rng.floats = []float64{0.1, 0.01}
		require.NoError(t, h.sess.socialInteractions(context.Background()))
		assert.Equal(t, []string{"search", "removeFriend"}, h.api.Calls())
		assert.Empty(t, h.sess.Stats().Friends)
	})

	t.Run("search rejected ends task", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)
		h.api.searchResult = []int64{7}
		h.rng.floats = []float64{0.1}
		require.NoError(t, h.sess.socialInteractions(context.Background()))

		h.api.calls = nil
		h.api.errs["search"] = errStatus
		require.ErrorIs(t, h.sess.socialInteractions(context.Background()), api.ErrUnexpectedStatus)
		assert.Equal(t, []string{"search"}, h.api.Calls())
		assert.Equal(t, []int64{7}, h.sess.Stats().Friends)
	})

	t.Run("rejected remove keeps friend", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)
		h.api.searchResult = []int64{7}
		h.rng.floats = []float64{0.1}
		require.NoError(t, h.sess.socialInteractions(context.Background()))

		h.api.errs["removeFriend"] = errStatus
		h.rng.floats = []float64{0.1, 0.01}
		require.Error(t, h.sess.socialInteractions(context.Background()))
		assert.Equal(t, []int64{7}, h.sess.Stats().Friends)
	})

	t.Run("search transport error ends task", func(t *testing.T) {
		h := newHarness(t, fixture.Snapshot{})
		h.start(t)
		h.api.errs["search"] = errTransport

		assert.ErrorIs(t, h.sess.socialInteractions(context.Background()), api.ErrTransport)
	})
}

func TestProfile(t *testing.T) {
	tests := []struct {
		name   string
		floats []float64
		want   []string
	}{
		{"update", []float64{0.05}, []string{"updateProfile", "recommendations", "feed"}},
		{"no update", []float64{0.1}, []string{"recommendations", "feed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, fixture.Snapshot{})
			h.start(t)
			h.rng.floats = tt.floats

			require.NoError(t, h.sess.profileOperations(context.Background()))
			assert.Equal(t, tt.want, h.api.Calls())
		})
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := newHarness(t, fixture.NewSnapshot([]int64{1}, []int64{2}), func(c *config.Config) {
		c.WaitTime.Min, c.WaitTime.Max = time.Millisecond, 2*time.Millisecond
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, h.sess.Run(ctx))

	assert.Equal(t, StateTerminated, h.sess.State())
	calls := h.api.Calls()
	assert.Equal(t, "register", calls[0])
	assert.Equal(t, "removeUser", calls[len(calls)-1])
	assert.Positive(t, len(h.sess.Stats().Tasks))
}

func TestRun_AbortedNeverLoops(t *testing.T) {
	h := newHarness(t, fixture.NewSnapshot([]int64{1}, nil))
	h.api.registerErrs = []error{errStatus, errStatus}

	err := h.sess.Run(context.Background())
	require.ErrorIs(t, err, ErrRegistrationFailed)
	assert.Equal(t, StateAborted, h.sess.State())
	assert.Empty(t, h.sess.Stats().Tasks)
	assert.Equal(t, []string{"register", "register"}, h.api.Calls())
}

func TestState(t *testing.T) {
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, StateAborted.Final())
	assert.False(t, StateStopping.Final())

	assert.True(t, allowed(StateRegistering, StateAborted))
	assert.False(t, allowed(StateActive, StateRegistering))
	assert.False(t, allowed(StateTerminated, StateActive))
}

// TestSocial_FriendSetMatchesModel runs the social task against randomly
// scripted search results and add/remove outcomes, and compares the friend
// set with a model after every step.
func TestSocial_FriendSetMatchesModel(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			gen := rand.New(rand.NewPCG(seed, 99))
			h := newHarness(t, fixture.Snapshot{}, func(c *config.Config) {
				c.Behavior.AddFriend = 0.5
				c.Behavior.RemoveFriend = 0.5
			})
			h.start(t)
			self := h.api.userID
			model := make(map[int64]struct{})

			for step := 0; step < 100; step++ {
				var found, candidates []int64
				for _, id := range []int64{1, 2, 3, 4, 5, 6, self} {
					if gen.IntN(2) == 0 {
						found = append(found, id)
						if id != self {
							candidates = append(candidates, id)
						}
					}
				}
				searchFails := gen.IntN(10) == 0
				addFails := gen.IntN(4) == 0
				removeFails := gen.IntN(4) == 0
				floats := []float64{gen.Float64(), gen.Float64()}
				ints := []int{gen.IntN(100), gen.IntN(100)}

				h.api.mu.Lock()
				h.api.calls = nil
				h.api.searchResult = found
				h.api.errs = map[string]error{}
				if searchFails {
					h.api.errs["search"] = errStatus
				}
				if addFails {
					h.api.errs["addFriend"] = errStatus
				}
				if removeFails {
					h.api.errs["removeFriend"] = errStatus
				}
				h.api.mu.Unlock()
				h.rng.floats = slices.Clone(floats)
				h.rng.ints = slices.Clone(ints)

				wantCalls := []string{"search"}
				wantErr := searchFails
				if !wantErr && len(candidates) > 0 {
					candidate := candidates[ints[0]%len(candidates)]
					_, known := model[candidate]
					switch {
					case floats[0] < 0.5 && !known:
						wantCalls = append(wantCalls, "addFriend")
						if addFails {
							wantErr = true
						} else {
							model[candidate] = struct{}{}
						}
					case floats[1] < 0.5 && len(model) > 0:
						ids := slices.Sorted(maps.Keys(model))
						wantCalls = append(wantCalls, "removeFriend")
						if removeFails {
							wantErr = true
						} else {
							delete(model, ids[ints[1]%len(ids)])
						}
					}
				}
				if !wantErr && len(model) > 0 {
					wantCalls = append(wantCalls, "friends")
				}

				err := h.sess.socialInteractions(context.Background())
				if wantErr {
					require.ErrorIs(t, err, api.ErrUnexpectedStatus, "step %d", step)
				} else {
					require.NoError(t, err, "step %d", step)
				}
				require.Equal(t, wantCalls, h.api.Calls(), "step %d", step)

				friends := h.sess.Stats().Friends
				require.Equal(t, slices.Sorted(maps.Keys(model)), friends, "step %d", step)
				require.NotContains(t, friends, self, "step %d", step)
			}
		})
	}
}
