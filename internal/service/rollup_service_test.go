package service

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/db"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type rollupFixture struct {
	gdb     *gorm.DB
	user    db.User
	day     time.Time
	rollup  *RollupService
	habits  *HabitService
	checks  *HabitCheckService
	med     *MeditationService
	workout *WorkoutService
	food    *NutritionService
	bench   db.Exercise
	chicken db.Food
}

func newRollupFixture(t *testing.T) *rollupFixture {
	t.Helper()
	gdb := setupServiceTestDB(t)
	rollup := NewRollupService(gdb)
	return &rollupFixture{
		gdb:     gdb,
		user:    createTestUser(t, gdb, "athlete"),
		day:     mustDate(t, "2024-08-15"),
		rollup:  rollup,
		habits:  NewHabitService(gdb),
		checks:  NewHabitCheckService(gdb, rollup),
		med:     NewMeditationService(gdb, rollup),
		workout: NewWorkoutService(gdb, rollup),
		food:    NewNutritionService(gdb, rollup),
		bench:   createTestExercise(t, gdb, "卧推"),
		chicken: createTestFood(t, gdb, "鸡胸肉", 165, "31", "0", "3.6"),
	}
}

// seed 写入一整天的活动：两个启用习惯（第一个连续 3 天）、一个停用习惯、两次冥想、一次训练、一餐
func (f *rollupFixture) seed(t *testing.T) {
	t.Helper()
	first, err := f.habits.Create(f.user.ID, HabitInput{Name: "冥想"})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	second, err := f.habits.Create(f.user.ID, HabitInput{Name: "拉伸"})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}
	retired, err := f.habits.Create(f.user.ID, HabitInput{Name: "跳绳", Status: db.HabitStatusInactive})
	if err != nil {
		t.Fatalf("create habit: %v", err)
	}

	for offset := -2; offset <= 0; offset++ {
		if _, err := f.checks.Upsert(f.user.ID, HabitCheckInput{HabitID: first.ID, Date: f.day.AddDate(0, 0, offset), Completed: true}); err != nil {
			t.Fatalf("check habit: %v", err)
		}
	}
	if _, err := f.checks.Upsert(f.user.ID, HabitCheckInput{HabitID: second.ID, Date: f.day, Completed: false}); err != nil {
		t.Fatalf("check habit: %v", err)
	}
	if _, err := f.checks.Upsert(f.user.ID, HabitCheckInput{HabitID: retired.ID, Date: f.day, Completed: true}); err != nil {
		t.Fatalf("check habit: %v", err)
	}

	for i, minutes := range []int{15, 25} {
		start := f.day.Add(time.Duration(6+i*12) * time.Hour)
		if _, err := f.med.Create(f.user.ID, MeditationInput{Date: f.day, StartTime: start, DurationMinutes: minutes}); err != nil {
			t.Fatalf("create meditation: %v", err)
		}
	}

	session, err := f.workout.CreateSession(f.user.ID, WorkoutSessionInput{Date: f.day})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, weight := range []string{"60", "62.5"} {
		if _, err := f.workout.AddSet(f.user.ID, session.ID, WorkoutSetInput{ExerciseID: f.bench.ID, Reps: intPtr(5), WeightKg: nullDecimal(weight)}); err != nil {
			t.Fatalf("add set: %v", err)
		}
	}

	if _, err := f.food.CreateMeal(f.user.ID, MealInput{
		Date:     f.day,
		MealType: db.MealTypeLunch,
		Items:    []MealItemInput{{FoodID: f.chicken.ID, Quantity: decimal.RequireFromString("1.5")}},
	}); err != nil {
		t.Fatalf("create meal: %v", err)
	}
}

func TestRollupRecalculateComputesAllDomains(t *testing.T) {
	f := newRollupFixture(t)
	f.seed(t)

	summary, err := f.rollup.Recalculate(f.user.ID, f.day)
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}

	ints := []struct {
		name string
		got  int
		want int
	}{
		{"habits_total", summary.HabitsTotal, 2},
		{"habits_completed", summary.HabitsCompleted, 2},
		{"habits_streak", summary.HabitsStreak, 3},
		{"meditation_minutes", summary.MeditationMinutes, 40},
		{"meditation_sessions", summary.MeditationSessions, 2},
		{"workout_sessions", summary.WorkoutSessions, 1},
		{"prs_achieved", summary.PRsAchieved, 2},
		{"calories_consumed", summary.CaloriesConsumed, 247},
		{"calories_remaining", summary.CaloriesRemaining, 1600 - 247},
	}
	for _, tc := range ints {
		if tc.got != tc.want {
			t.Fatalf("unexpected %s: got %d want %d", tc.name, tc.got, tc.want)
		}
	}
	assertDecimal(t, "total_volume", summary.TotalVolumeKg, "612.5")
	assertDecimal(t, "protein_g", summary.ProteinG, "46.5")
	assertDecimal(t, "fat_g", summary.FatG, "5.4")
	assertDecimal(t, "protein_remaining_g", summary.ProteinRemainingG, "93.5")
	assertDecimal(t, "carbs_remaining_g", summary.CarbsRemainingG, "140")
}

func TestRollupRecalculateIsIdempotent(t *testing.T) {
	f := newRollupFixture(t)
	f.seed(t)

	first, err := f.rollup.Recalculate(f.user.ID, f.day)
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}
	second, err := f.rollup.Recalculate(f.user.ID, f.day)
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected the same row, got %d and %d", first.ID, second.ID)
	}
	if !sameDayView(NewDayView(*first), NewDayView(*second)) {
		t.Fatalf("recalculation is not idempotent:\n%+v\n%+v", first, second)
	}

	var count int64
	if err := f.gdb.Model(&db.DailySummary{}).Where("user_id = ?", f.user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count summaries: %v", err)
	}
	// 打卡触发了前两天的汇总，加上当天共 3 行
	if count != 3 {
		t.Fatalf("expected 3 summary rows, got %d", count)
	}
}

func TestRollupRecalculateReflectsSourceChanges(t *testing.T) {
	f := newRollupFixture(t)
	f.seed(t)

	var meal db.Meal
	if err := f.gdb.Where("user_id = ? AND date = ?", f.user.ID, f.day).First(&meal).Error; err != nil {
		t.Fatalf("load meal: %v", err)
	}
	if err := f.food.DeleteMeal(f.user.ID, meal.ID); err != nil {
		t.Fatalf("delete meal: %v", err)
	}

	var stored db.DailySummary
	if err := f.gdb.Where("user_id = ? AND date = ?", f.user.ID, f.day).First(&stored).Error; err != nil {
		t.Fatalf("load summary: %v", err)
	}
	if stored.CaloriesConsumed != 0 || stored.CaloriesRemaining != 1600 {
		t.Fatalf("summary should drop deleted meal: %+v", stored)
	}
	assertDecimal(t, "protein_g", stored.ProteinG, "0")
	assertDecimal(t, "protein_remaining_g", stored.ProteinRemainingG, "140")
	if stored.MeditationMinutes != 40 {
		t.Fatalf("other domains should be untouched, got %d minutes", stored.MeditationMinutes)
	}

	fresh, err := f.rollup.Recalculate(f.user.ID, f.day)
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}
	if !sameDayView(NewDayView(stored), NewDayView(*fresh)) {
		t.Fatalf("trigger result differs from a fresh rebuild:\n%+v\n%+v", stored, fresh)
	}
}

func TestRollupRecalculateErrors(t *testing.T) {
	gdb := setupServiceTestDB(t)
	rollup := NewRollupService(gdb)

	if _, err := rollup.Recalculate(999, mustDate(t, "2024-08-01")); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	orphan := createTestUserWithoutProfile(t, gdb, "orphan")
	if _, err := rollup.Recalculate(orphan.ID, mustDate(t, "2024-08-01")); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if err := rollup.OnActivityWritten(orphan.ID, mustDate(t, "2024-08-01"), DomainHabits); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("trigger should surface the failure, got %v", err)
	}
}

func TestRollupEmptyDayHasFullRemaining(t *testing.T) {
	gdb := setupServiceTestDB(t)
	user := createTestUser(t, gdb, "idle")
	rollup := NewRollupService(gdb)

	summary, err := rollup.Recalculate(user.ID, mustDate(t, "2024-08-02"))
	if err != nil {
		t.Fatalf("Recalculate returned error: %v", err)
	}
	if !summary.IsEmpty() {
		t.Fatalf("expected empty summary: %+v", summary)
	}
	if summary.CaloriesRemaining != 1600 {
		t.Fatalf("unexpected calories remaining: %d", summary.CaloriesRemaining)
	}
	assertDecimal(t, "fat_remaining_g", summary.FatRemainingG, "45")
}

func sameDayView(a, b DayView) bool {
	return a.Date.Equal(b.Date) &&
		a.HabitsCompleted == b.HabitsCompleted &&
		a.HabitsTotal == b.HabitsTotal &&
		a.HabitsStreak == b.HabitsStreak &&
		a.MeditationMinutes == b.MeditationMinutes &&
		a.MeditationSessions == b.MeditationSessions &&
		a.WorkoutSessions == b.WorkoutSessions &&
		a.PRsAchieved == b.PRsAchieved &&
		a.TotalVolumeKg.Equal(b.TotalVolumeKg) &&
		a.CaloriesConsumed == b.CaloriesConsumed &&
		a.ProteinG.Equal(b.ProteinG) &&
		a.CarbsG.Equal(b.CarbsG) &&
		a.FatG.Equal(b.FatG) &&
		a.CaloriesRemaining == b.CaloriesRemaining &&
		a.ProteinRemainingG.Equal(b.ProteinRemainingG) &&
		a.CarbsRemainingG.Equal(b.CarbsRemainingG) &&
		a.FatRemainingG.Equal(b.FatRemainingG)
}

func TestRollupConcurrentRecalculateKeepsSingleRow(t *testing.T) {
	f := newRollupFixture(t)
	f.seed(t)
	if err := f.gdb.Where("user_id = ?", f.user.ID).Delete(&db.DailySummary{}).Error; err != nil {
		t.Fatalf("clear summaries: %v", err)
	}

	const writers = 8
	results := make([]*db.DailySummary, writers)
	var g errgroup.Group
	for i := 0; i < writers; i++ {
		g.Go(func() error {
			summary, err := f.rollup.Recalculate(f.user.ID, f.day)
			results[i] = summary
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent recalculate returned error: %v", err)
	}

	var count int64
	if err := f.gdb.Model(&db.DailySummary{}).Where("user_id = ? AND date = ?", f.user.ID, f.day).Count(&count).Error; err != nil {
		t.Fatalf("count summaries: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one summary row, got %d", count)
	}

	first := results[0]
	for _, summary := range results[1:] {
		if summary.ID != first.ID ||
			summary.HabitsCompleted != first.HabitsCompleted ||
			summary.MeditationMinutes != first.MeditationMinutes ||
			summary.PRsAchieved != first.PRsAchieved ||
			!summary.TotalVolumeKg.Equal(first.TotalVolumeKg) ||
			summary.CaloriesConsumed != first.CaloriesConsumed ||
			!summary.ProteinG.Equal(first.ProteinG) {
			t.Fatalf("concurrent writers disagree: %+v vs %+v", summary, first)
		}
	}
	if first.MeditationMinutes != 40 || first.WorkoutSessions != 1 {
		t.Fatalf("unexpected summary values: %+v", first)
	}
}
