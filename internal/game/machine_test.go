package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"blurt-quest/internal/domain"
	"blurt-quest/internal/logging"
)

type fakeBackend struct {
	mu sync.Mutex

	questions   []domain.Question
	fetchErr    error
	result      domain.LevelResult
	submitErr   error
	profile     domain.UserProfile
	profileErr  error
	leaderboard []domain.LeaderboardEntry

	// fetchGate, when set, blocks FetchLevel until the channel closes.
	fetchGate chan struct{}

	submits []submission
}

type submission struct {
	level     int
	answers   []int
	timeTaken int
}

func (b *fakeBackend) FetchLevel(_ context.Context, level int) ([]domain.Question, error) {
	b.mu.Lock()
	gate := b.fetchGate
	b.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	return b.questions, nil
}

func (b *fakeBackend) SubmitLevel(_ context.Context, level int, answers []int, timeTaken int) (domain.LevelResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErr != nil {
		return domain.LevelResult{}, b.submitErr
	}
	recorded := make([]int, len(answers))
	copy(recorded, answers)
	b.submits = append(b.submits, submission{level: level, answers: recorded, timeTaken: timeTaken})
	return b.result, nil
}

func (b *fakeBackend) FetchProfile(_ context.Context) (domain.UserProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.profile, b.profileErr
}

func (b *fakeBackend) FetchLeaderboard(_ context.Context) ([]domain.LeaderboardEntry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.leaderboard, nil
}

func (b *fakeBackend) submissions() []submission {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]submission, len(b.submits))
	copy(out, b.submits)
	return out
}

func questionsForLevel(level, n int) []domain.Question {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			Level:    level,
			Prompt:   "Select the right option",
			Options:  []string{"a", "b", "c", "d"},
			Points:   10,
			Category: "general",
		}
	}
	return questions
}

// waitForState drains updates until the predicate matches or the deadline hits.
func waitForState(t *testing.T, updates <-chan State, match func(State) bool) State {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-updates:
			if match(s) {
				return s
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state")
			return nil
		}
	}
}

func newTestMachine(backend *fakeBackend, opts ...Option) *Machine {
	opts = append([]Option{WithTickInterval(0)}, opts...)
	return NewMachine(backend, logging.Discard(), opts...)
}

func TestStartLevelInitializesAttempt(t *testing.T) {
	backend := &fakeBackend{questions: questionsForLevel(3, 3)}
	m := newTestMachine(backend)

	if err := m.StartLevel(context.Background(), 3); err != nil {
		t.Fatalf("start level: %v", err)
	}

	playing, ok := m.State().(Playing)
	if !ok {
		t.Fatalf("expected Playing, got %T", m.State())
	}
	if playing.TimeBudget != 150 || playing.TimeRemaining != 150 {
		t.Fatalf("expected 150s budget for level 3, got budget=%d remaining=%d", playing.TimeBudget, playing.TimeRemaining)
	}
	if playing.QuestionIndex != 0 {
		t.Fatalf("expected first question, got index %d", playing.QuestionIndex)
	}
	for i, a := range playing.Answers {
		if a != domain.Unanswered {
			t.Fatalf("slot %d = %d, want sentinel", i, a)
		}
	}
}

func TestStartLevelFetchFailureReturnsToDashboard(t *testing.T) {
	backend := &fakeBackend{fetchErr: errors.New("level not unlocked yet")}
	m := newTestMachine(backend)

	if err := m.StartLevel(context.Background(), 5); err == nil {
		t.Fatalf("expected fetch error")
	}
	dash, ok := m.State().(Dashboard)
	if !ok {
		t.Fatalf("expected Dashboard, got %T", m.State())
	}
	if dash.Message == "" {
		t.Fatalf("expected surfaced error message")
	}
}

func TestStartLevelRejectsEmptyQuestionSet(t *testing.T) {
	backend := &fakeBackend{questions: nil}
	m := newTestMachine(backend)

	if err := m.StartLevel(context.Background(), 2); err == nil {
		t.Fatalf("expected error for empty question set")
	}
	dash, ok := m.State().(Dashboard)
	if !ok {
		t.Fatalf("expected Dashboard, got %T", m.State())
	}
	if dash.Message == "" {
		t.Fatalf("expected surfaced error message")
	}
	if err := m.Answer(0); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("expected ErrNotPlaying, got %v", err)
	}
}

func TestStaleFetchResponseIsDiscarded(t *testing.T) {
	gate := make(chan struct{})
	backend := &fakeBackend{
		questions: questionsForLevel(1, 3),
		fetchGate: gate,
	}
	m := newTestMachine(backend)

	done := make(chan error, 1)
	go func() { done <- m.StartLevel(context.Background(), 1) }()

	// Wait for the fetch to be in flight, then abandon the attempt.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := m.State().(Loading); ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("machine never entered Loading, state %T", m.State())
		}
		time.Sleep(time.Millisecond)
	}
	m.ReturnToDashboard()
	close(gate)

	if err := <-done; err != nil {
		t.Fatalf("abandoned start should not error: %v", err)
	}
	if _, ok := m.State().(Dashboard); !ok {
		t.Fatalf("late fetch response re-entered %T", m.State())
	}
}

func TestSubscribeDeliversInitialStateFirst(t *testing.T) {
	backend := &fakeBackend{questions: questionsForLevel(1, 3)}
	m := newTestMachine(backend)

	updates, cancel := m.Subscribe()
	defer cancel()
	if err := m.StartLevel(context.Background(), 1); err != nil {
		t.Fatalf("start level: %v", err)
	}

	if first := <-updates; first != (Dashboard{}) {
		t.Fatalf("first update = %T%+v, want initial Dashboard", first, first)
	}
	if _, ok := (<-updates).(Loading); !ok {
		t.Fatalf("expected Loading after the initial snapshot")
	}
}

func TestPlayingSnapshotsAreImmutable(t *testing.T) {
	backend := &fakeBackend{questions: questionsForLevel(1, 3)}
	m := newTestMachine(backend)
	updates, cancel := m.Subscribe()
	defer cancel()

	if err := m.StartLevel(context.Background(), 1); err != nil {
		t.Fatalf("start level: %v", err)
	}
	if err := m.Answer(2); err != nil {
		t.Fatalf("answer: %v", err)
	}

	snapshot := waitForState(t, updates, func(s State) bool {
		playing, ok := s.(Playing)
		return ok && playing.QuestionIndex == 1
	}).(Playing)

	if err := m.Answer(3); err != nil {
		t.Fatalf("second answer: %v", err)
	}

	if snapshot.Answers[0] != 2 || snapshot.Answers[1] != domain.Unanswered {
		t.Fatalf("earlier snapshot mutated: %v", snapshot.Answers)
	}
}

func TestAnsweringAllQuestionsSubmitsOnce(t *testing.T) {
	backend := &fakeBackend{
		questions: questionsForLevel(1, 3),
		result:    domain.LevelResult{Level: 1, CorrectAnswers: 3, Score: 30, LevelCompleted: true},
	}
	m := newTestMachine(backend)
	updates, cancel := m.Subscribe()
	defer cancel()

	if err := m.StartLevel(context.Background(), 1); err != nil {
		t.Fatalf("start level: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := m.Answer(i % 4); err != nil {
			t.Fatalf("answer %d: %v", i, err)
		}
	}

	waitForState(t, updates, func(s State) bool { _, ok := s.(Results); return ok })

	subs := backend.submissions()
	if len(subs) != 1 {
		t.Fatalf("expected exactly one submission, got %d", len(subs))
	}
	if len(subs[0].answers) != 3 {
		t.Fatalf("expected 3 answers, got %v", subs[0].answers)
	}
	for i, a := range subs[0].answers {
		if a != i%4 {
			t.Fatalf("answer %d = %d, want %d", i, a, i%4)
		}
	}
}

func TestTimerExpiryAutoSubmitsSentinelAnswers(t *testing.T) {
	backend := &fakeBackend{
		questions: questionsForLevel(3, 3),
		result:    domain.LevelResult{Level: 3},
	}
	m := newTestMachine(backend)
	updates, cancel := m.Subscribe()
	defer cancel()

	if err := m.StartLevel(context.Background(), 3); err != nil {
		t.Fatalf("start level: %v", err)
	}
	gen := m.gen
	for i := 0; i < 150; i++ {
		m.tick(gen)
	}

	waitForState(t, updates, func(s State) bool { _, ok := s.(Results); return ok })

	subs := backend.submissions()
	if len(subs) != 1 {
		t.Fatalf("expected one auto-submission, got %d", len(subs))
	}
	if subs[0].timeTaken != 150 {
		t.Fatalf("expected full budget elapsed, got %d", subs[0].timeTaken)
	}
	for i, a := range subs[0].answers {
		if a != domain.Unanswered {
			t.Fatalf("slot %d = %d, want sentinel", i, a)
		}
	}

	// Late ticks from the dead attempt must not fire a second submission.
	m.tick(gen)
	if len(backend.submissions()) != 1 {
		t.Fatalf("stale tick produced a duplicate submission")
	}
}

func TestManualSubmitSilencesTimer(t *testing.T) {
	backend := &fakeBackend{
		questions: questionsForLevel(1, 1),
		result:    domain.LevelResult{Level: 1, LevelCompleted: true},
	}
	m := newTestMachine(backend)
	updates, cancel := m.Subscribe()
	defer cancel()

	if err := m.StartLevel(context.Background(), 1); err != nil {
		t.Fatalf("start level: %v", err)
	}
	gen := m.gen
	if err := m.Answer(0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	// A tick racing the manual submission lands on a non-Playing state.
	m.tick(gen)

	waitForState(t, updates, func(s State) bool { _, ok := s.(Results); return ok })
	if got := len(backend.submissions()); got != 1 {
		t.Fatalf("expected one submission, got %d", got)
	}
}

func TestElapsedTimeIsBudgetMinusRemaining(t *testing.T) {
	backend := &fakeBackend{
		questions: questionsForLevel(1, 1),
		result:    domain.LevelResult{Level: 1},
	}
	m := newTestMachine(backend)
	updates, cancel := m.Subscribe()
	defer cancel()

	if err := m.StartLevel(context.Background(), 1); err != nil {
		t.Fatalf("start level: %v", err)
	}
	gen := m.gen
	for i := 0; i < 25; i++ {
		m.tick(gen)
	}
	if err := m.Answer(2); err != nil {
		t.Fatalf("answer: %v", err)
	}

	waitForState(t, updates, func(s State) bool { _, ok := s.(Results); return ok })
	subs := backend.submissions()
	if subs[0].timeTaken != 25 {
		t.Fatalf("expected 25s elapsed, got %d", subs[0].timeTaken)
	}
}

func TestNextLevelFromResults(t *testing.T) {
	backend := &fakeBackend{
		questions: questionsForLevel(3, 3),
		result: domain.LevelResult{
			Level:             3,
			LevelCompleted:    true,
			NextLevelUnlocked: true,
			RewardEarned:      3,
		},
	}
	m := newTestMachine(backend)
	updates, cancel := m.Subscribe()
	defer cancel()

	if err := m.StartLevel(context.Background(), 3); err != nil {
		t.Fatalf("start level: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := m.Answer(0); err != nil {
			t.Fatalf("answer: %v", err)
		}
	}
	waitForState(t, updates, func(s State) bool { _, ok := s.(Results); return ok })

	if err := m.NextLevel(context.Background()); err != nil {
		t.Fatalf("next level: %v", err)
	}
	playing, ok := m.State().(Playing)
	if !ok {
		t.Fatalf("expected Playing, got %T", m.State())
	}
	if playing.Level != 4 {
		t.Fatalf("expected level 4, got %d", playing.Level)
	}
}

func TestNextLevelRejectedWhenLocked(t *testing.T) {
	backend := &fakeBackend{
		questions: questionsForLevel(3, 1),
		result:    domain.LevelResult{Level: 3, LevelCompleted: false},
	}
	m := newTestMachine(backend)
	updates, cancel := m.Subscribe()
	defer cancel()

	if err := m.StartLevel(context.Background(), 3); err != nil {
		t.Fatalf("start level: %v", err)
	}
	if err := m.Answer(0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	waitForState(t, updates, func(s State) bool { _, ok := s.(Results); return ok })

	if err := m.NextLevel(context.Background()); !errors.Is(err, ErrNoNextLevel) {
		t.Fatalf("expected ErrNoNextLevel, got %v", err)
	}
}

func TestReturnToDashboardIsIdempotent(t *testing.T) {
	backend := &fakeBackend{
		questions: questionsForLevel(1, 1),
		result:    domain.LevelResult{Level: 1},
	}
	m := newTestMachine(backend)
	updates, cancel := m.Subscribe()
	defer cancel()

	if err := m.StartLevel(context.Background(), 1); err != nil {
		t.Fatalf("start level: %v", err)
	}
	if err := m.Answer(0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	waitForState(t, updates, func(s State) bool { _, ok := s.(Results); return ok })

	m.ReturnToDashboard()
	m.ReturnToDashboard()
	if _, ok := m.State().(Dashboard); !ok {
		t.Fatalf("expected Dashboard, got %T", m.State())
	}
}

func TestSubmitFailureReturnsToDashboard(t *testing.T) {
	backend := &fakeBackend{
		questions: questionsForLevel(1, 1),
		submitErr: errors.New("backend unavailable"),
	}
	m := newTestMachine(backend)
	updates, cancel := m.Subscribe()
	defer cancel()

	if err := m.StartLevel(context.Background(), 1); err != nil {
		t.Fatalf("start level: %v", err)
	}
	if err := m.Answer(0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	state := waitForState(t, updates, func(s State) bool {
		dash, ok := s.(Dashboard)
		return ok && dash.Message != ""
	})
	if dash := state.(Dashboard); dash.Message == "" {
		t.Fatalf("expected surfaced submission error")
	}
}

func TestUnauthorizedSubmitSignalsGate(t *testing.T) {
	backend := &fakeBackend{
		questions: questionsForLevel(1, 1),
		submitErr: domain.ErrUnauthorized,
	}
	unauthorized := make(chan struct{}, 1)
	m := newTestMachine(backend, WithUnauthorizedHandler(func() {
		unauthorized <- struct{}{}
	}))

	if err := m.StartLevel(context.Background(), 1); err != nil {
		t.Fatalf("start level: %v", err)
	}
	if err := m.Answer(0); err != nil {
		t.Fatalf("answer: %v", err)
	}

	select {
	case <-unauthorized:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected unauthorized callback")
	}
}

func TestAnswerOutsidePlayingRejected(t *testing.T) {
	m := newTestMachine(&fakeBackend{})
	if err := m.Answer(0); !errors.Is(err, ErrNotPlaying) {
		t.Fatalf("expected ErrNotPlaying, got %v", err)
	}
}

func TestBackgroundRefreshUpdatesCaches(t *testing.T) {
	backend := &fakeBackend{
		questions: questionsForLevel(1, 1),
		result:    domain.LevelResult{Level: 1, LevelCompleted: true},
		profile:   domain.UserProfile{Username: "alice", CurrentLevel: 2, TotalScore: 30},
		leaderboard: []domain.LeaderboardEntry{
			{Rank: 1, Username: "alice", TotalScore: 30},
		},
	}
	m := newTestMachine(backend)
	updates, cancel := m.Subscribe()
	defer cancel()

	if err := m.StartLevel(context.Background(), 1); err != nil {
		t.Fatalf("start level: %v", err)
	}
	if err := m.Answer(0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	waitForState(t, updates, func(s State) bool { _, ok := s.(Results); return ok })

	deadline := time.After(2 * time.Second)
	for {
		if profile, ok := m.Profile(); ok && profile.CurrentLevel == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("profile cache never refreshed")
		case <-time.After(10 * time.Millisecond):
		}
	}
	if lb := m.Leaderboard(); len(lb) != 1 || lb[0].Username != "alice" {
		t.Fatalf("leaderboard cache not refreshed: %+v", m.Leaderboard())
	}
}
