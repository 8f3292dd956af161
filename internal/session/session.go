// Package session implements one virtual user of the restaurant service:
// it registers, repeatedly runs weighted behaviors with a pause between
// them, and deletes its account when asked to stop.
package session

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/restarate/loadgen/internal/api"
	"github.com/example/restarate/loadgen/internal/config"
	"github.com/example/restarate/loadgen/internal/fixture"
	"github.com/example/restarate/loadgen/internal/generator"
	"github.com/example/restarate/loadgen/internal/selector"
)

// Task names.
const (
	TaskDishes  = "dishes"
	TaskReviews = "reviews"
	TaskSocial  = "social"
	TaskProfile = "profile"
)

// API is the part of the restaurant service a session talks to.
type API interface {
	RegisterUser(ctx context.Context, u api.User) (int64, error)
	RemoveUser(ctx context.Context, userID int64) error
	UpdateProfile(ctx context.Context, p api.ProfileUpdate) error
	ViewDish(ctx context.Context, dishID int64) error
	LikeDish(ctx context.Context, dishID, userID int64) error
	UnlikeDish(ctx context.Context, dishID, userID int64) error
	PostReview(ctx context.Context, r api.Review) (int64, error)
	ViewReview(ctx context.Context, reviewID int64) error
	LikeReview(ctx context.Context, reviewID, userID int64) error
	UnlikeReview(ctx context.Context, reviewID, userID int64) error
	SearchUsers(ctx context.Context, query string) ([]int64, error)
	AddFriend(ctx context.Context, userID, friendID int64) error
	RemoveFriend(ctx context.Context, userID, friendID int64) error
	Friends(ctx context.Context, userID int64) error
	Recommendations(ctx context.Context, userID int64) error
	Feed(ctx context.Context, userID int64) error
}

// Observer is told about lifecycle events. Implementations must be safe for
// concurrent use by many sessions.
type Observer interface {
	SessionStarted()
	SessionAborted()
	SessionStopped()
	TaskExecuted(name string)
}

type nopObserver struct{}

func (nopObserver) SessionStarted()     {}
func (nopObserver) SessionAborted()     {}
func (nopObserver) SessionStopped()     {}
func (nopObserver) TaskExecuted(string) {}

// Deps are the collaborators of a session.
type Deps struct {
	API      API
	Faker    *generator.Faker
	Rand     selector.Rand
	Logger   *zap.Logger
	Config   *config.Config
	Observer Observer
}

// Option customizes a Session.
type Option func(*Session)

// WithID sets the session id used in logs. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// Stats is a point-in-time view of a session for reporting and tests.
type Stats struct {
	ID       string
	State    State
	UserID   int64
	Tasks    map[string]int
	Friends  []int64
	Reviews  int
	Attempts int
}

// Session is one virtual user. Its methods are meant to be called from a
// single goroutine; State and Stats may be read from anywhere.
type Session struct {
	id       string
	api      API
	faker    *generator.Faker
	rng      selector.Rand
	log      *zap.Logger
	observer Observer

	behavior  config.BehaviorConfig
	attempts  int
	thinkTime selector.ThinkTime
	table     *selector.Table

	state atomic.Int32

	mu         sync.Mutex
	userID     int64
	registered bool
	dishIDs    []int64
	reviewIDs  []int64
	friends    map[int64]struct{}
	taskRuns   map[string]int
	tried      int
}

// New builds a session over snap. The session owns copies of the snapshot
// lists; reviews it creates are only visible to itself.
func New(deps Deps, snap fixture.Snapshot, opts ...Option) (*Session, error) {
	if deps.API == nil || deps.Config == nil {
		return nil, errors.New("session: API and Config are required")
	}

	s := &Session{
		id:        uuid.NewString(),
		api:       deps.API,
		faker:     deps.Faker,
		rng:       deps.Rand,
		log:       deps.Logger,
		observer:  deps.Observer,
		behavior:  deps.Config.Behavior,
		attempts:  deps.Config.Registration.Attempts,
		thinkTime: selector.ThinkTime{Min: deps.Config.WaitTime.Min, Max: deps.Config.WaitTime.Max},
		dishIDs:   snap.DishIDs(),
		reviewIDs: snap.ReviewIDs(),
		friends:   make(map[int64]struct{}),
		taskRuns:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.faker == nil {
		s.faker = generator.NewFaker(0)
	}
	if s.rng == nil {
		s.rng = selector.NewRand(0)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.attempts < 1 {
		s.attempts = 1
	}
	s.log = s.log.With(zap.String("session_id", s.id))

	table, err := s.buildTable(deps.Config.Tasks)
	if err != nil {
		return nil, err
	}
	s.table = table
	return s, nil
}

func (s *Session) buildTable(w config.TaskWeights) (*selector.Table, error) {
	candidates := []selector.Task{
		{Name: TaskDishes, Weight: w.Dishes, Run: s.interactWithDishes},
		{Name: TaskReviews, Weight: w.Reviews, Run: s.manageReviews},
		{Name: TaskSocial, Weight: w.Social, Run: s.socialInteractions},
		{Name: TaskProfile, Weight: w.Profile, Run: s.profileOperations},
	}
	// A zero weight disables a behavior.
	tasks := slices.DeleteFunc(candidates, func(t selector.Task) bool { return t.Weight == 0 })
	table, err := selector.NewTable(tasks...)
	if err != nil {
		return nil, fmt.Errorf("session: building task table: %w", err)
	}
	return table, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) transition(to State) error {
	from := s.State()
	if !allowed(from, to) || !s.state.CompareAndSwap(int32(from), int32(to)) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// UserID returns the registered id, or 0 before registration.
func (s *Session) UserID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Start registers the user. On success the session is active; after the
// last failed attempt it is aborted and ErrRegistrationFailed is returned.
func (s *Session) Start(ctx context.Context) (err error) {
	if err := s.transition(StateRegistering); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("registration panicked", zap.Any("panic", r))
			err = fmt.Errorf("%w: panic: %v", ErrRegistrationFailed, r)
		}
		if err != nil {
			s.state.Store(int32(StateAborted))
			s.observer.SessionAborted()
		}
	}()

	profile := s.faker.User()
	s.log.Info("registering user", zap.String("login", profile.Login))

	for attempt := 1; attempt <= s.attempts; attempt++ {
		s.mu.Lock()
		s.tried = attempt
		s.mu.Unlock()

		id, regErr := s.api.RegisterUser(ctx, profile)
		if regErr == nil {
			s.mu.Lock()
			s.userID = id
			s.registered = true
			s.mu.Unlock()
			s.log = s.log.With(zap.Int64("user_id", id))
			s.log.Info("user registered")

			if err := s.transition(StateActive); err != nil {
				return err
			}
			s.observer.SessionStarted()
			return nil
		}

		s.log.Warn("registration attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("status", api.StatusOf(regErr)),
			zap.Stringer("kind", api.KindOf(regErr)),
			zap.Error(regErr))
	}

	s.log.Error("could not register user", zap.Int("attempts", s.attempts))
	return fmt.Errorf("%w after %d attempts", ErrRegistrationFailed, s.attempts)
}

// Step runs one weighted task and returns its name. Task errors are logged
// and never returned; the only error is calling Step outside the active state.
func (s *Session) Step(ctx context.Context) (string, error) {
	if st := s.State(); st != StateActive {
		return "", fmt.Errorf("%w: step in state %s", ErrInvalidTransition, st)
	}

	task := s.table.Select(s.rng)
	err := task.Run(ctx)

	s.mu.Lock()
	s.taskRuns[task.Name]++
	s.mu.Unlock()
	s.observer.TaskExecuted(task.Name)

	switch kind := api.KindOf(err); kind {
	case api.KindNone:
	case api.KindStatus, api.KindMalformed:
		s.log.Warn("task ended early",
			zap.String("task", task.Name),
			zap.Stringer("kind", kind),
			zap.Int("status", api.StatusOf(err)),
			zap.Error(err))
	default:
		s.log.Error("task failed",
			zap.String("task", task.Name),
			zap.Stringer("kind", kind),
			zap.Error(err))
	}
	return task.Name, nil
}

// Stop deletes the registered user, if any, and terminates the session.
// Stopping an aborted or terminated session does nothing.
func (s *Session) Stop(ctx context.Context) error {
	switch st := s.State(); st {
	case StateAborted, StateTerminated:
		return nil
	case StateUnstarted:
		return s.transition(StateTerminated)
	}

	if err := s.transition(StateStopping); err != nil {
		return err
	}
	defer func() {
		s.state.Store(int32(StateTerminated))
		s.observer.SessionStopped()
	}()

	s.mu.Lock()
	userID, registered := s.userID, s.registered
	s.mu.Unlock()
	if !registered {
		return nil
	}

	s.log.Info("deleting user")
	if err := s.api.RemoveUser(ctx, userID); err != nil {
		if api.KindOf(err) == api.KindStatus {
			s.log.Warn("user deletion rejected", zap.Int("status", api.StatusOf(err)))
		} else {
			s.log.Error("user deletion failed", zap.Error(err))
		}
		return nil
	}
	s.log.Info("user deleted")
	return nil
}

// Run drives the whole lifecycle until ctx is done. A running task is not
// interrupted by cancellation; the loop exits before the next one starts.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	work := context.WithoutCancel(ctx)
	for ctx.Err() == nil {
		if !s.think(ctx) {
			break
		}
		if _, err := s.Step(work); err != nil {
			break
		}
	}

	return s.Stop(work)
}

// think waits for one think time. It returns false when ctx ended first.
func (s *Session) think(ctx context.Context) bool {
	d := s.thinkTime.Next(s.rng)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Stats returns a snapshot of the session.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	friends := slices.Sorted(maps.Keys(s.friends))
	return Stats{
		ID:       s.id,
		State:    s.State(),
		UserID:   s.userID,
		Tasks:    maps.Clone(s.taskRuns),
		Friends:  friends,
		Reviews:  len(s.reviewIDs),
		Attempts: s.tried,
	}
}
