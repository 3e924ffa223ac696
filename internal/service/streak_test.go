package service

import (
	"testing"

	"github.com/vitalog/internal/db"
)

func TestCalculateStreak(t *testing.T) {
	day := mustDate(t, "2024-03-10")
	checks := []db.HabitCheck{
		{Date: day, Completed: true},
		{Date: day.AddDate(0, 0, -1), Completed: true},
		{Date: day.AddDate(0, 0, -2), Completed: true},
		{Date: day.AddDate(0, 0, -4), Completed: true},
	}

	cases := []struct {
		name string
		asOf int
		want int
	}{
		{"same day", 0, 3},
		{"falls back to yesterday", 1, 3},
		{"gap breaks streak", 2, 0},
		{"inside the run", -1, 2},
		{"day with no check falls back", -3, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := calculateStreak(checks, day.AddDate(0, 0, tc.asOf))
			if got != tc.want {
				t.Fatalf("expected streak %d, got %d", tc.want, got)
			}
		})
	}
}

func TestCalculateStreakIgnoresIncompleteChecks(t *testing.T) {
	day := mustDate(t, "2024-03-10")
	checks := []db.HabitCheck{
		{Date: day, Completed: false},
		{Date: day.AddDate(0, 0, -1), Completed: true},
		{Date: day.AddDate(0, 0, -2), Completed: false},
	}

	if got := calculateStreak(checks, day); got != 1 {
		t.Fatalf("expected streak 1, got %d", got)
	}
	if got := calculateStreak(nil, day); got != 0 {
		t.Fatalf("expected streak 0 without checks, got %d", got)
	}
}

func TestLongestStreak(t *testing.T) {
	day := mustDate(t, "2024-03-01")
	checks := []db.HabitCheck{
		{Date: day, Completed: true},
		{Date: day.AddDate(0, 0, 1), Completed: true},
		{Date: day.AddDate(0, 0, 2), Completed: false},
		{Date: day.AddDate(0, 0, 3), Completed: true},
		{Date: day.AddDate(0, 0, 4), Completed: true},
		{Date: day.AddDate(0, 0, 5), Completed: true},
		{Date: day.AddDate(0, 0, 7), Completed: true},
	}

	if got := longestStreak(checks); got != 3 {
		t.Fatalf("expected longest streak 3, got %d", got)
	}
}

func TestStreakCalculatorIgnoresLaterChecks(t *testing.T) {
	gdb := setupServiceTestDB(t)
	user := createTestUser(t, gdb, "streaker")

	habit := db.Habit{UserID: user.ID, Name: "冥想", Status: db.HabitStatusActive}
	if err := gdb.Create(&habit).Error; err != nil {
		t.Fatalf("create habit: %v", err)
	}

	day := mustDate(t, "2024-03-10")
	for offset := -2; offset <= 2; offset++ {
		if offset == 1 {
			continue
		}
		check := db.HabitCheck{HabitID: habit.ID, Date: day.AddDate(0, 0, offset), Completed: true}
		if err := gdb.Create(&check).Error; err != nil {
			t.Fatalf("create check: %v", err)
		}
	}

	calc := NewStreakCalculator(gdb)
	streak, err := calc.Streak(habit.ID, day)
	if err != nil {
		t.Fatalf("Streak returned error: %v", err)
	}
	if streak != 3 {
		t.Fatalf("expected streak 3, got %d", streak)
	}

	streak, err = calc.Streak(habit.ID, day.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("Streak returned error: %v", err)
	}
	if streak != 1 {
		t.Fatalf("expected streak 1 after gap, got %d", streak)
	}
}
