package domain

import "time"

// MaxLevel is the highest quest level; levels unlock sequentially from 1.
const MaxLevel = 10

// Unanswered is the sentinel stored in an answer slot the player never filled.
const Unanswered = -1

// Session is an authenticated play session. The token is an opaque signed
// credential; its expiry claim decides whether the session is still usable.
type Session struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// UserProfile is the backend-owned view of a player's progress. Clients hold a
// read-only copy refreshed on session start and after each submission.
type UserProfile struct {
	Username        string `json:"username"`
	CurrentLevel    int    `json:"current_level"`
	CompletedLevels []int  `json:"completed_levels"`
	TotalScore      int    `json:"total_score"`
	LevelsCompleted int    `json:"levels_completed"`
}

// Unlocked reports whether the given level is playable for this profile.
func (p UserProfile) Unlocked(level int) bool {
	return level >= 1 && level <= p.CurrentLevel
}

// Completed reports whether the given level has already been passed.
func (p UserProfile) Completed(level int) bool {
	for _, l := range p.CompletedLevels {
		if l == level {
			return true
		}
	}
	return false
}

// Question is one multiple-choice question. Payloads sent to players carry no
// correct-answer data; CorrectAnswer is populated only server-side.
type Question struct {
	ID            string   `json:"id"`
	Level         int      `json:"level"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer,omitempty"`
	Points        int      `json:"points"`
	Category      string   `json:"category"`
}

// LevelResult is the backend's verdict on one submitted play-through.
type LevelResult struct {
	Level              int     `json:"level"`
	CorrectAnswers     int     `json:"correct_answers"`
	TotalQuestions     int     `json:"total_questions"`
	Score              int     `json:"score"`
	LevelCompleted     bool    `json:"level_completed"`
	PassingScoreNeeded float64 `json:"passing_score_needed"`
	NextLevelUnlocked  bool    `json:"next_level_unlocked"`
	RewardEarned       float64 `json:"reward_earned"`
}

// LeaderboardEntry is one ranked row of the global scoreboard.
type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	Username        string `json:"username"`
	TotalScore      int    `json:"total_score"`
	LevelsCompleted int    `json:"levels_completed"`
	CurrentLevel    int    `json:"current_level"`
}

// LevelCompletion records one submitted attempt, passed or not.
type LevelCompletion struct {
	ID                string    `json:"id"`
	Username          string    `json:"username"`
	Level             int       `json:"level"`
	Score             int       `json:"score"`
	QuestionsAnswered int       `json:"questions_answered"`
	TimeTakenSeconds  int       `json:"time_taken_seconds"`
	CompletedAt       time.Time `json:"completed_at"`
}

// RewardClaim is a pending token payout, settled manually out-of-band.
type RewardClaim struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Level        int       `json:"level"`
	RewardAmount float64   `json:"reward_amount"`
	ClaimedAt    time.Time `json:"claimed_at"`
	Status       string    `json:"status"` // pending, processed
}

// TimeBudget returns the countdown budget in seconds for a level. Higher
// levels get more time to compensate for harder questions.
func TimeBudget(level int) int {
	return 60 + 30*level
}

// RewardForLevel is the nominal reward shown for an unplayed level. The
// authoritative amount always comes from a LevelResult.
func RewardForLevel(level int) float64 {
	return float64(level)
}

// Tier names the difficulty band a level belongs to.
func Tier(level int) string {
	switch {
	case level <= 3:
		return "Beginner"
	case level <= 6:
		return "Intermediate"
	case level <= 8:
		return "Advanced"
	default:
		return "Expert"
	}
}

// NewAnswerSet allocates one unanswered slot per question.
func NewAnswerSet(n int) []int {
	answers := make([]int, n)
	for i := range answers {
		answers[i] = Unanswered
	}
	return answers
}
