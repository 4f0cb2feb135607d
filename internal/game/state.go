package game

import "blurt-quest/internal/domain"

// State is the sealed set of play-through phases. Each variant carries exactly
// the data that phase needs; subscribers receive snapshot copies.
type State interface {
	state()
}

// Dashboard is the resting state between play-throughs. Message carries a
// surfaced error from an aborted attempt, empty otherwise.
type Dashboard struct {
	Message string
}

// Loading is the transient phase while a level's questions are fetched.
type Loading struct {
	Level int
}

// Playing is an in-progress timed attempt.
type Playing struct {
	Level         int
	Questions     []domain.Question
	Answers       []int
	QuestionIndex int
	TimeRemaining int
	TimeBudget    int
}

// Submitting means an answer set is in flight; the countdown is dead and a
// second submission cannot fire.
type Submitting struct {
	Level int
}

// Results presents the backend's verdict for the finished attempt.
type Results struct {
	Result domain.LevelResult
}

func (Dashboard) state()  {}
func (Loading) state()    {}
func (Playing) state()    {}
func (Submitting) state() {}
func (Results) state()    {}
