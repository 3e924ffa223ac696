package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrUserNotFound 在用户不存在时返回
var ErrUserNotFound = errors.New("user not found")

// RollupService 根据源数据重建 (user, date) 的 DailySummary
// 每次重算都完整覆盖派生字段，可以安全地重复执行
type RollupService struct {
	db        *gorm.DB
	streaks   *StreakCalculator
	nutrition *NutritionEngine
}

// NewRollupService 构造 RollupService
func NewRollupService(gdb *gorm.DB) *RollupService {
	return &RollupService{
		db:        gdb,
		streaks:   NewStreakCalculator(gdb),
		nutrition: NewNutritionEngine(gdb),
	}
}

// Recalculate 重新计算并写入某个用户某天的汇总，返回写入后的记录
func (s *RollupService) Recalculate(userID uint, date time.Time) (*db.DailySummary, error) {
	date = normalizeToDate(date)

	if err := s.ensureUser(userID); err != nil {
		return nil, err
	}
	profile, err := loadProfile(s.db, userID)
	if err != nil {
		return nil, err
	}

	summary := db.DailySummary{UserID: userID, Date: date}
	if err := s.fillHabits(&summary); err != nil {
		return nil, err
	}
	if err := s.fillMeditation(&summary); err != nil {
		return nil, err
	}
	if err := s.fillWorkouts(&summary); err != nil {
		return nil, err
	}
	if err := s.fillNutrition(&summary, *profile); err != nil {
		return nil, err
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns(db.DailySummaryDerivedColumns),
	}).Create(&summary).Error; err != nil {
		return nil, fmt.Errorf("upsert daily summary: %w", err)
	}

	var stored db.DailySummary
	if err := s.db.Where("user_id = ? AND date = ?", userID, date).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload daily summary: %w", err)
	}
	return &stored, nil
}

// OnActivityWritten 实现 ActivityTrigger：领域数据写入后重算对应日期，失败由调用方记录
func (s *RollupService) OnActivityWritten(userID uint, date time.Time, _ Domain) error {
	_, err := s.Recalculate(userID, date)
	return err
}

func (s *RollupService) ensureUser(userID uint) error {
	var count int64
	if err := s.db.Model(&db.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("%w: id=%d", ErrUserNotFound, userID)
	}
	return nil
}

// fillHabits 统计启用习惯数、当天完成数，以及按 id 排序的第一个启用习惯的连续天数
func (s *RollupService) fillHabits(summary *db.DailySummary) error {
	var active []db.Habit
	if err := s.db.Where("user_id = ? AND status = ?", summary.UserID, db.HabitStatusActive).
		Order("id ASC").
		Find(&active).Error; err != nil {
		return fmt.Errorf("list active habits: %w", err)
	}
	summary.HabitsTotal = len(active)

	var completed int64
	if err := s.db.Model(&db.HabitCheck{}).
		Joins("JOIN habits ON habits.id = habit_checks.habit_id").
		Where("habits.user_id = ? AND habit_checks.date = ? AND habit_checks.completed = ?", summary.UserID, summary.Date, true).
		Count(&completed).Error; err != nil {
		return fmt.Errorf("count habit checks: %w", err)
	}
	summary.HabitsCompleted = int(completed)

	if len(active) > 0 {
		streak, err := s.streaks.Streak(active[0].ID, summary.Date)
		if err != nil {
			return err
		}
		summary.HabitsStreak = streak
	}
	return nil
}

func (s *RollupService) fillMeditation(summary *db.DailySummary) error {
	var totals struct {
		Minutes  int
		Sessions int
	}
	if err := s.db.Model(&db.MeditationLog{}).
		Select("COALESCE(SUM(duration_minutes), 0) AS minutes, COUNT(*) AS sessions").
		Where("user_id = ? AND date = ?", summary.UserID, summary.Date).
		Scan(&totals).Error; err != nil {
		return fmt.Errorf("sum meditation logs: %w", err)
	}

	summary.MeditationMinutes = totals.Minutes
	summary.MeditationSessions = totals.Sessions
	return nil
}

// fillWorkouts 只读取 is_pr 缓存，不在这里重新判定 PR
func (s *RollupService) fillWorkouts(summary *db.DailySummary) error {
	var sessions []db.WorkoutSession
	if err := s.db.Preload("Sets").
		Where("user_id = ? AND date = ?", summary.UserID, summary.Date).
		Find(&sessions).Error; err != nil {
		return fmt.Errorf("list workout sessions: %w", err)
	}

	volume := decimal.Zero
	prs := 0
	for _, session := range sessions {
		volume = volume.Add(SessionVolume(session.Sets))
		for _, set := range session.Sets {
			if set.IsPR {
				prs++
			}
		}
	}

	summary.WorkoutSessions = len(sessions)
	summary.TotalVolumeKg = volume.Round(2)
	summary.PRsAchieved = prs
	return nil
}

func (s *RollupService) fillNutrition(summary *db.DailySummary, profile db.Profile) error {
	consumed, _, err := s.nutrition.Consumed(summary.UserID, summary.Date)
	if err != nil {
		return err
	}
	consumed = consumed.Rounded()
	remaining := remainingMacros(profile, consumed)

	summary.CaloriesConsumed = consumed.Calories
	summary.ProteinG = consumed.ProteinG
	summary.CarbsG = consumed.CarbsG
	summary.FatG = consumed.FatG
	summary.CaloriesRemaining = remaining.Calories
	summary.ProteinRemainingG = remaining.ProteinG
	summary.CarbsRemainingG = remaining.CarbsG
	summary.FatRemainingG = remaining.FatG
	return nil
}
