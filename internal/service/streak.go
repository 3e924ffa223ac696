package service

import (
	"fmt"
	"time"

	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
)

// StreakCalculator 根据打卡记录计算习惯的当前连续天数
type StreakCalculator struct {
	db *gorm.DB
}

// NewStreakCalculator 构造 StreakCalculator
func NewStreakCalculator(gdb *gorm.DB) *StreakCalculator {
	return &StreakCalculator{db: gdb}
}

// Streak 返回截至 asOf 的连续完成天数
// 调用方需保证 habitID 有效，这里不做存在性校验
func (s *StreakCalculator) Streak(habitID uint, asOf time.Time) (int, error) {
	asOf = normalizeToDate(asOf)

	var checks []db.HabitCheck
	if err := s.db.Where("habit_id = ? AND date <= ?", habitID, asOf).
		Order("date DESC").
		Find(&checks).Error; err != nil {
		return 0, fmt.Errorf("list habit checks: %w", err)
	}

	return calculateStreak(checks, asOf), nil
}

// calculateStreak 从 asOf 开始向前数连续完成的天数；
// asOf 当天未完成时退回到前一天开始数，两天都未完成则为 0。缺失的日期视为中断。
func calculateStreak(checks []db.HabitCheck, asOf time.Time) int {
	if len(checks) == 0 {
		return 0
	}

	completed := make(map[time.Time]bool, len(checks))
	for _, check := range checks {
		if check.Completed {
			completed[normalizeToDate(check.Date)] = true
		}
	}

	day := normalizeToDate(asOf)
	if !completed[day] {
		day = day.AddDate(0, 0, -1)
		if !completed[day] {
			return 0
		}
	}

	streak := 0
	for completed[day] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// longestStreak 返回记录中最长的连续完成天数，checks 需按日期升序
func longestStreak(checks []db.HabitCheck) int {
	longest, current := 0, 0
	var prev time.Time

	for _, check := range checks {
		if !check.Completed {
			current = 0
			continue
		}
		date := normalizeToDate(check.Date)
		if current > 0 && daysBetween(prev, date) == 1 {
			current++
		} else {
			current = 1
		}
		prev = date
		if current > longest {
			longest = current
		}
	}

	return longest
}
