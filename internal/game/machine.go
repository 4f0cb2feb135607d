package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"blurt-quest/internal/domain"
)

// Backend is the data-fetch surface the machine plays against.
type Backend interface {
	FetchLevel(ctx context.Context, level int) ([]domain.Question, error)
	SubmitLevel(ctx context.Context, level int, answers []int, timeTaken int) (domain.LevelResult, error)
	FetchProfile(ctx context.Context) (domain.UserProfile, error)
	FetchLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
}

var (
	// ErrNotPlaying is returned when an answer arrives outside the Playing state.
	ErrNotPlaying = errors.New("no level in progress")
	// ErrNoNextLevel is returned when advancing is not offered by the current result.
	ErrNoNextLevel = errors.New("next level not unlocked")
)

// Machine drives one play-through at a time: level start, question
// sequencing, countdown, submission, results. Profile and leaderboard are
// read-mostly caches replaced wholesale by refreshes; the machine never
// mutates them piecemeal.
type Machine struct {
	backend        Backend
	log            *logrus.Entry
	onUnauthorized func()

	// tickInterval is the countdown resolution. Zero disables the internal
	// timer so tests can drive ticks by hand.
	tickInterval  time.Duration
	submitTimeout time.Duration

	mu          sync.Mutex
	state       State
	gen         int
	timer       *time.Timer
	profile     *domain.UserProfile
	leaderboard []domain.LeaderboardEntry
	subscribers map[chan State]struct{}
}

// Option tweaks machine construction.
type Option func(*Machine)

// WithTickInterval overrides the one-second countdown resolution. A zero
// interval disables the internal timer entirely.
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) { m.tickInterval = d }
}

// WithUnauthorizedHandler installs the callback fired when any fetch reports
// an authorization-denied response.
func WithUnauthorizedHandler(fn func()) Option {
	return func(m *Machine) { m.onUnauthorized = fn }
}

func NewMachine(backend Backend, log *logrus.Entry, opts ...Option) *Machine {
	m := &Machine{
		backend:       backend,
		log:           log,
		tickInterval:  time.Second,
		submitTimeout: 15 * time.Second,
		state:         Dashboard{},
		subscribers:   make(map[chan State]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current phase snapshot.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Profile returns the cached profile copy, if one has been fetched.
func (m *Machine) Profile() (domain.UserProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return domain.UserProfile{}, false
	}
	return *m.profile, true
}

// Leaderboard returns the cached scoreboard.
func (m *Machine) Leaderboard() []domain.LeaderboardEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leaderboard
}

// Subscribe returns a channel receiving every state transition. The cancel
// function releases the subscription.
func (m *Machine) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 8)

	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	// Deliver the initial snapshot before any transition can race it. The
	// channel is fresh and buffered, so this cannot block.
	ch <- m.state
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

// Refresh fetches profile and leaderboard, replacing the cached copies. Used
// on session start; callers must treat each failure as independent.
func (m *Machine) Refresh(ctx context.Context) error {
	profile, err := m.backend.FetchProfile(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) && m.onUnauthorized != nil {
			m.onUnauthorized()
		}
		return err
	}
	entries, lbErr := m.backend.FetchLeaderboard(ctx)

	m.mu.Lock()
	m.profile = &profile
	if lbErr == nil {
		m.leaderboard = entries
	}
	m.mu.Unlock()
	return lbErr
}

// StartLevel begins a play-through. Callers must only offer levels the
// profile reports as unlocked; the machine trusts them and lets the backend
// re-validate. On fetch failure it surfaces the error and returns to
// Dashboard.
func (m *Machine) StartLevel(ctx context.Context, level int) error {
	m.mu.Lock()
	switch m.state.(type) {
	case Dashboard, Results:
	default:
		m.mu.Unlock()
		return fmt.Errorf("cannot start level %d from current state", level)
	}
	m.gen++
	gen := m.gen
	m.stopTimerLocked()
	m.setStateLocked(Loading{Level: level})
	m.mu.Unlock()

	questions, err := m.backend.FetchLevel(ctx, level)

	m.mu.Lock()
	if m.gen != gen {
		// The attempt was abandoned while the fetch was in flight.
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.setStateLocked(Dashboard{Message: err.Error()})
		m.mu.Unlock()
		if errors.Is(err, domain.ErrUnauthorized) && m.onUnauthorized != nil {
			m.onUnauthorized()
		}
		return err
	}
	if len(questions) == 0 {
		err := fmt.Errorf("level %d has no questions", level)
		m.setStateLocked(Dashboard{Message: err.Error()})
		m.mu.Unlock()
		return err
	}

	budget := domain.TimeBudget(level)
	m.setStateLocked(Playing{
		Level:         level,
		Questions:     questions,
		Answers:       domain.NewAnswerSet(len(questions)),
		QuestionIndex: 0,
		TimeRemaining: budget,
		TimeBudget:    budget,
	})
	m.scheduleTickLocked(gen)
	m.mu.Unlock()
	return nil
}

// Answer records the selected option for the current question and advances.
// Answering the last question submits the attempt; otherwise the countdown
// keeps running with the same budget.
func (m *Machine) Answer(optionIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	playing, ok := m.state.(Playing)
	if !ok {
		return ErrNotPlaying
	}
	question := playing.Questions[playing.QuestionIndex]
	if optionIndex < 0 || optionIndex >= len(question.Options) {
		return fmt.Errorf("option %d out of range", optionIndex)
	}

	// Copy-on-write so snapshots handed to subscribers stay frozen.
	answers := make([]int, len(playing.Answers))
	copy(answers, playing.Answers)
	answers[playing.QuestionIndex] = optionIndex
	playing.Answers = answers
	if playing.QuestionIndex == len(playing.Questions)-1 {
		m.submitLocked(playing)
		return nil
	}
	playing.QuestionIndex++
	m.setStateLocked(playing)
	return nil
}

// ReturnToDashboard abandons the current attempt or results view and clears
// all per-attempt state. Calling it while already on the dashboard is a no-op.
func (m *Machine) ReturnToDashboard() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.(Dashboard); ok {
		return
	}
	m.gen++
	m.stopTimerLocked()
	m.setStateLocked(Dashboard{})
}

// NextLevel starts the level after the one just played. Only offered from a
// Results state whose verdict unlocked it.
func (m *Machine) NextLevel(ctx context.Context) error {
	m.mu.Lock()
	results, ok := m.state.(Results)
	if !ok || !results.Result.NextLevelUnlocked {
		m.mu.Unlock()
		return ErrNoNextLevel
	}
	next := results.Result.Level + 1
	m.mu.Unlock()
	return m.StartLevel(ctx, next)
}

// tick advances the countdown by one unit. It is a no-op unless the machine
// is still in the Playing attempt that scheduled it.
func (m *Machine) tick(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		return
	}
	playing, ok := m.state.(Playing)
	if !ok {
		return
	}

	playing.TimeRemaining--
	if playing.TimeRemaining <= 0 {
		playing.TimeRemaining = 0
		// Time is up: submit whatever the answer set holds.
		m.submitLocked(playing)
		return
	}
	m.setStateLocked(playing)
	m.scheduleTickLocked(gen)
}

// submitLocked moves Playing into Submitting and sends the answer set off.
// The timer is dead from this point, so the auto and manual triggers cannot
// both fire for one attempt.
func (m *Machine) submitLocked(playing Playing) {
	m.stopTimerLocked()
	gen := m.gen
	elapsed := playing.TimeBudget - playing.TimeRemaining
	answers := make([]int, len(playing.Answers))
	copy(answers, playing.Answers)

	m.setStateLocked(Submitting{Level: playing.Level})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.submitTimeout)
		defer cancel()
		result, err := m.backend.SubmitLevel(ctx, playing.Level, answers, elapsed)

		m.mu.Lock()
		if m.gen != gen {
			m.mu.Unlock()
			return
		}
		if _, ok := m.state.(Submitting); !ok {
			m.mu.Unlock()
			return
		}
		if err != nil {
			m.setStateLocked(Dashboard{Message: "failed to submit answers: " + err.Error()})
			m.mu.Unlock()
			if errors.Is(err, domain.ErrUnauthorized) && m.onUnauthorized != nil {
				m.onUnauthorized()
			}
			return
		}
		m.setStateLocked(Results{Result: result})
		m.mu.Unlock()

		m.refreshInBackground()
	}()
}

// refreshInBackground re-fetches profile and leaderboard after a submission.
// Failures are logged only; the Results view never waits on this.
func (m *Machine) refreshInBackground() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.submitTimeout)
		defer cancel()

		profile, err := m.backend.FetchProfile(ctx)
		if err != nil {
			m.log.WithError(err).Warn("profile refresh failed")
			if errors.Is(err, domain.ErrUnauthorized) && m.onUnauthorized != nil {
				m.onUnauthorized()
			}
		} else {
			m.mu.Lock()
			m.profile = &profile
			m.mu.Unlock()
		}

		entries, err := m.backend.FetchLeaderboard(ctx)
		if err != nil {
			m.log.WithError(err).Warn("leaderboard refresh failed")
			return
		}
		m.mu.Lock()
		m.leaderboard = entries
		m.mu.Unlock()
	}()
}

func (m *Machine) scheduleTickLocked(gen int) {
	if m.tickInterval <= 0 {
		return
	}
	m.timer = time.AfterFunc(m.tickInterval, func() { m.tick(gen) })
}

func (m *Machine) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) setStateLocked(s State) {
	m.state = s
	for ch := range m.subscribers {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s
		}
	}
}
