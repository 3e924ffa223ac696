package db

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailySummary 是 (user, date) 维度的反范式汇总，所有字段均可由源数据重新计算
// 每次重算都会整体覆盖派生字段，不做增量修补
type DailySummary struct {
	ID     uint      `gorm:"primaryKey"`
	UserID uint      `gorm:"not null;uniqueIndex:idx_daily_summary_user_date,priority:1"`
	Date   time.Time `gorm:"not null;index;uniqueIndex:idx_daily_summary_user_date,priority:2"`

	HabitsCompleted int `gorm:"default:0"`
	HabitsTotal     int `gorm:"default:0"`
	HabitsStreak    int `gorm:"default:0"`

	MeditationMinutes  int `gorm:"default:0"`
	MeditationSessions int `gorm:"default:0"`

	WorkoutSessions int             `gorm:"default:0"`
	TotalVolumeKg   decimal.Decimal `gorm:"type:decimal(10,2);default:0"`
	PRsAchieved     int             `gorm:"column:prs_achieved;default:0"`

	CaloriesConsumed int             `gorm:"default:0"`
	ProteinG         decimal.Decimal `gorm:"type:decimal(8,2);default:0"`
	CarbsG           decimal.Decimal `gorm:"type:decimal(8,2);default:0"`
	FatG             decimal.Decimal `gorm:"type:decimal(8,2);default:0"`

	CaloriesRemaining int             `gorm:"default:0"`
	ProteinRemainingG decimal.Decimal `gorm:"type:decimal(8,2);default:0"`
	CarbsRemainingG   decimal.Decimal `gorm:"type:decimal(8,2);default:0"`
	FatRemainingG     decimal.Decimal `gorm:"type:decimal(8,2);default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名
func (DailySummary) TableName() string {
	return "daily_summaries"
}

// IsEmpty 判断汇总中的活动数据是否全部为零（remaining 字段不参与判断）
func (s DailySummary) IsEmpty() bool {
	return s.HabitsCompleted == 0 &&
		s.HabitsTotal == 0 &&
		s.HabitsStreak == 0 &&
		s.MeditationMinutes == 0 &&
		s.MeditationSessions == 0 &&
		s.WorkoutSessions == 0 &&
		s.TotalVolumeKg.IsZero() &&
		s.PRsAchieved == 0 &&
		s.CaloriesConsumed == 0 &&
		s.ProteinG.IsZero() &&
		s.CarbsG.IsZero() &&
		s.FatG.IsZero()
}

// DailySummaryDerivedColumns 列出重算时需要整体覆盖的列
var DailySummaryDerivedColumns = []string{
	"habits_completed",
	"habits_total",
	"habits_streak",
	"meditation_minutes",
	"meditation_sessions",
	"workout_sessions",
	"total_volume_kg",
	"prs_achieved",
	"calories_consumed",
	"protein_g",
	"carbs_g",
	"fat_g",
	"calories_remaining",
	"protein_remaining_g",
	"carbs_remaining_g",
	"fat_remaining_g",
	"updated_at",
}
