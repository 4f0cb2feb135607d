package domain

import "testing"

func TestTimeBudget(t *testing.T) {
	cases := map[int]int{1: 90, 3: 150, 5: 210, 10: 360}
	for level, want := range cases {
		if got := TimeBudget(level); got != want {
			t.Fatalf("budget for level %d = %d, want %d", level, got, want)
		}
	}
}

func TestTierBands(t *testing.T) {
	cases := map[int]string{
		1: "Beginner", 3: "Beginner",
		4: "Intermediate", 6: "Intermediate",
		7: "Advanced", 8: "Advanced",
		9: "Expert", 10: "Expert",
	}
	for level, want := range cases {
		if got := Tier(level); got != want {
			t.Fatalf("tier for level %d = %q, want %q", level, got, want)
		}
	}
}

func TestNewAnswerSetAllUnanswered(t *testing.T) {
	answers := NewAnswerSet(5)
	if len(answers) != 5 {
		t.Fatalf("expected 5 slots, got %d", len(answers))
	}
	for i, a := range answers {
		if a != Unanswered {
			t.Fatalf("slot %d = %d, want sentinel", i, a)
		}
	}
}

func TestProfileUnlockedAndCompleted(t *testing.T) {
	profile := UserProfile{CurrentLevel: 3, CompletedLevels: []int{1, 2}}

	if !profile.Unlocked(3) {
		t.Fatalf("expected level 3 unlocked")
	}
	if profile.Unlocked(4) {
		t.Fatalf("expected level 4 locked")
	}
	if profile.Unlocked(0) {
		t.Fatalf("level 0 must never be unlocked")
	}
	if !profile.Completed(2) || profile.Completed(3) {
		t.Fatalf("completed set mismatch: %+v", profile.CompletedLevels)
	}
}
