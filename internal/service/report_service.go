package service

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
)

// DefaultMaxRangeDays 是区间查询默认允许的最大天数
const DefaultMaxRangeDays = 366

// DayView 是某天汇总的只读投影
type DayView struct {
	Date               time.Time
	HabitsCompleted    int
	HabitsTotal        int
	HabitsStreak       int
	MeditationMinutes  int
	MeditationSessions int
	WorkoutSessions    int
	PRsAchieved        int
	TotalVolumeKg      decimal.Decimal
	CaloriesConsumed   int
	ProteinG           decimal.Decimal
	CarbsG             decimal.Decimal
	FatG               decimal.Decimal
	CaloriesRemaining  int
	ProteinRemainingG  decimal.Decimal
	CarbsRemainingG    decimal.Decimal
	FatRemainingG      decimal.Decimal
}

// PeriodStats 是区间内已存储汇总的聚合
// 习惯与冥想的日均按区间天数计算；营养均值只对已存储的行求平均
type PeriodStats struct {
	Start      time.Time
	End        time.Time
	Days       int
	StoredDays int

	HabitsCompleted        int
	HabitsAverageDaily     float64
	MeditationMinutes      int
	MeditationAverageDaily float64

	WorkoutSessions int
	TotalVolumeKg   decimal.Decimal
	PRsAchieved     int

	AverageCalories float64
	AverageProteinG decimal.Decimal
	AverageCarbsG   decimal.Decimal
	AverageFatG     decimal.Decimal
}

// DashboardHabit 是今日看板中的单个习惯及其完成状态
type DashboardHabit struct {
	ID        uint
	Name      string
	Completed bool
}

// Dashboard 是今日看板：当天汇总、实时习惯列表与营养目标
type Dashboard struct {
	Day     DayView
	Habits  []DashboardHabit
	Targets db.Profile
}

// ReportService 提供汇总查询，缺失或全零的日期会按需重算
type ReportService struct {
	db           *gorm.DB
	rollup       *RollupService
	maxRangeDays int
}

// NewReportService 构造 ReportService，maxRangeDays<=0 时使用默认上限
func NewReportService(gdb *gorm.DB, rollup *RollupService, maxRangeDays int) *ReportService {
	if rollup == nil {
		rollup = NewRollupService(gdb)
	}
	if maxRangeDays <= 0 {
		maxRangeDays = DefaultMaxRangeDays
	}
	return &ReportService{db: gdb, rollup: rollup, maxRangeDays: maxRangeDays}
}

// GetDailySummary 返回某天的汇总，记录不存在或全部为零时先重算
func (s *ReportService) GetDailySummary(userID uint, date time.Time) (*db.DailySummary, error) {
	date = normalizeToDate(date)

	var summary db.DailySummary
	err := s.db.Where("user_id = ? AND date = ?", userID, date).First(&summary).Error
	switch {
	case err == nil && !summary.IsEmpty():
		return &summary, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return s.rollup.Recalculate(userID, date)
	case err != nil:
		return nil, fmt.Errorf("get daily summary: %w", err)
	}

	return s.refreshStored(summary)
}

// refreshStored 重算已存储的空行；除用户不存在外，重算失败时退回存储值
func (s *ReportService) refreshStored(summary db.DailySummary) (*db.DailySummary, error) {
	recalculated, err := s.rollup.Recalculate(summary.UserID, summary.Date)
	if err == nil {
		return recalculated, nil
	}
	if errors.Is(err, ErrUserNotFound) {
		return nil, err
	}
	log.Printf("[report] recalculate user=%d date=%s failed, serving stored summary: %v", summary.UserID, normalizeToDate(summary.Date).Format(DateLayout), err)
	return &summary, nil
}

// RangeSummaries 返回闭区间内每天的视图，按日期升序
func (s *ReportService) RangeSummaries(userID uint, start, end time.Time) ([]DayView, error) {
	start, end, days, err := validateRange(start, end, s.maxRangeDays)
	if err != nil {
		return nil, err
	}

	stored, err := s.storedSummaries(userID, start, end)
	if err != nil {
		return nil, err
	}
	byDate := make(map[time.Time]db.DailySummary, len(stored))
	for _, summary := range stored {
		byDate[normalizeToDate(summary.Date)] = summary
	}

	views := make([]DayView, 0, days)
	err = eachDay(start, end, func(day time.Time) error {
		summary, ok := byDate[day]
		switch {
		case !ok:
			recalculated, err := s.rollup.Recalculate(userID, day)
			if err != nil {
				return err
			}
			summary = *recalculated
		case summary.IsEmpty():
			refreshed, err := s.refreshStored(summary)
			if err != nil {
				return err
			}
			summary = *refreshed
		}
		views = append(views, NewDayView(summary))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// PeriodStatistics 聚合区间内已存储的汇总，不触发重算
func (s *ReportService) PeriodStatistics(userID uint, start, end time.Time) (*PeriodStats, error) {
	start, end, days, err := validateRange(start, end, s.maxRangeDays)
	if err != nil {
		return nil, err
	}

	stored, err := s.storedSummaries(userID, start, end)
	if err != nil {
		return nil, err
	}

	stats := &PeriodStats{
		Start:           start,
		End:             end,
		Days:            days,
		StoredDays:      len(stored),
		TotalVolumeKg:   decimal.Zero,
		AverageProteinG: decimal.Zero,
		AverageCarbsG:   decimal.Zero,
		AverageFatG:     decimal.Zero,
	}

	calories := 0
	protein, carbs, fat := decimal.Zero, decimal.Zero, decimal.Zero
	for _, summary := range stored {
		stats.HabitsCompleted += summary.HabitsCompleted
		stats.MeditationMinutes += summary.MeditationMinutes
		stats.WorkoutSessions += summary.WorkoutSessions
		stats.TotalVolumeKg = stats.TotalVolumeKg.Add(summary.TotalVolumeKg)
		stats.PRsAchieved += summary.PRsAchieved

		calories += summary.CaloriesConsumed
		protein = protein.Add(summary.ProteinG)
		carbs = carbs.Add(summary.CarbsG)
		fat = fat.Add(summary.FatG)
	}

	stats.HabitsAverageDaily = float64(stats.HabitsCompleted) / float64(days)
	stats.MeditationAverageDaily = float64(stats.MeditationMinutes) / float64(days)

	if rows := len(stored); rows > 0 {
		count := decimal.NewFromInt(int64(rows))
		stats.AverageCalories = float64(calories) / float64(rows)
		stats.AverageProteinG = protein.DivRound(count, 2)
		stats.AverageCarbsG = carbs.DivRound(count, 2)
		stats.AverageFatG = fat.DivRound(count, 2)
	}

	return stats, nil
}

// DashboardToday 重算 today 的汇总，并附上启用习惯的当天完成状态与目标值
func (s *ReportService) DashboardToday(userID uint, today time.Time) (*Dashboard, error) {
	today = normalizeToDate(today)

	summary, err := s.rollup.Recalculate(userID, today)
	if err != nil {
		return nil, err
	}
	profile, err := loadProfile(s.db, userID)
	if err != nil {
		return nil, err
	}

	var habits []db.Habit
	if err := s.db.Where("user_id = ? AND status = ?", userID, db.HabitStatusActive).
		Order("id ASC").
		Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list active habits: %w", err)
	}

	completed := make(map[uint]bool, len(habits))
	if len(habits) > 0 {
		ids := make([]uint, 0, len(habits))
		for _, habit := range habits {
			ids = append(ids, habit.ID)
		}

		var checks []db.HabitCheck
		if err := s.db.Where("habit_id IN ? AND date = ?", ids, today).Find(&checks).Error; err != nil {
			return nil, fmt.Errorf("list habit checks: %w", err)
		}
		for _, check := range checks {
			completed[check.HabitID] = check.Completed
		}
	}

	dashboard := &Dashboard{
		Day:     NewDayView(*summary),
		Habits:  make([]DashboardHabit, 0, len(habits)),
		Targets: *profile,
	}
	for _, habit := range habits {
		dashboard.Habits = append(dashboard.Habits, DashboardHabit{
			ID:        habit.ID,
			Name:      habit.Name,
			Completed: completed[habit.ID],
		})
	}
	return dashboard, nil
}

func (s *ReportService) storedSummaries(userID uint, start, end time.Time) ([]db.DailySummary, error) {
	var summaries []db.DailySummary
	if err := s.db.Where("user_id = ? AND date BETWEEN ? AND ?", userID, start, end).
		Order("date ASC").
		Find(&summaries).Error; err != nil {
		return nil, fmt.Errorf("list daily summaries: %w", err)
	}
	return summaries, nil
}

// NewDayView 把存储的汇总投影为 DayView
func NewDayView(summary db.DailySummary) DayView {
	return DayView{
		Date:               normalizeToDate(summary.Date),
		HabitsCompleted:    summary.HabitsCompleted,
		HabitsTotal:        summary.HabitsTotal,
		HabitsStreak:       summary.HabitsStreak,
		MeditationMinutes:  summary.MeditationMinutes,
		MeditationSessions: summary.MeditationSessions,
		WorkoutSessions:    summary.WorkoutSessions,
		PRsAchieved:        summary.PRsAchieved,
		TotalVolumeKg:      summary.TotalVolumeKg,
		CaloriesConsumed:   summary.CaloriesConsumed,
		ProteinG:           summary.ProteinG,
		CarbsG:             summary.CarbsG,
		FatG:               summary.FatG,
		CaloriesRemaining:  summary.CaloriesRemaining,
		ProteinRemainingG:  summary.ProteinRemainingG,
		CarbsRemainingG:    summary.CarbsRemainingG,
		FatRemainingG:      summary.FatRemainingG,
	}
}
