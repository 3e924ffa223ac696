package db

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ExerciseCategoryPush     = "push"
	ExerciseCategoryPull     = "pull"
	ExerciseCategoryLegs     = "legs"
	ExerciseCategoryCardio   = "cardio"
	ExerciseCategoryMobility = "mobility"
	ExerciseCategoryCore     = "core"
)

// Exercise 是动作库条目，CreatedBy 为空表示系统内置动作
type Exercise struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;not null;uniqueIndex:idx_exercise_name_owner"`
	Category    string `gorm:"size:20;not null;index"`
	Description string
	IsCompound  bool
	IsCustom    bool
	CreatedBy   *uint `gorm:"uniqueIndex:idx_exercise_name_owner"`
	CreatedAt   time.Time
}

// TableName 指定自定义表名
func (Exercise) TableName() string {
	return "exercises"
}

// WorkoutSession 是一次训练的容器
type WorkoutSession struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index:idx_workout_user_date,priority:1"`
	Date      time.Time `gorm:"not null;index:idx_workout_user_date,priority:2"`
	StartTime time.Time
	EndTime   *time.Time
	Notes     string
	Sets      []WorkoutSet `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名
func (WorkoutSession) TableName() string {
	return "workout_sessions"
}

// WorkoutSet 记录单组训练
// IsPR 是由 PR 引擎维护的派生缓存，不接受用户输入
type WorkoutSet struct {
	ID              uint     `gorm:"primaryKey"`
	SessionID       uint     `gorm:"not null;index;uniqueIndex:idx_workout_set_unique"`
	ExerciseID      uint     `gorm:"not null;index;uniqueIndex:idx_workout_set_unique"`
	Exercise        Exercise `gorm:"constraint:OnDelete:CASCADE"`
	SetNumber       int      `gorm:"not null;uniqueIndex:idx_workout_set_unique"`
	Reps            *int
	WeightKg        decimal.NullDecimal `gorm:"type:decimal(6,2)"`
	DurationSeconds *int
	DistanceKm      decimal.NullDecimal `gorm:"type:decimal(6,2)"`
	RPE             *int
	Notes           string
	IsPR            bool `gorm:"column:is_pr;index;default:false"`
	CreatedAt       time.Time
}

// TableName 指定自定义表名
func (WorkoutSet) TableName() string {
	return "workout_sets"
}

// Lift 返回组的重量与次数，只有两者都为正时 ok 为 true
func (s WorkoutSet) Lift() (weight decimal.Decimal, reps int, ok bool) {
	if !s.WeightKg.Valid || s.Reps == nil {
		return decimal.Zero, 0, false
	}
	if !s.WeightKg.Decimal.IsPositive() || *s.Reps <= 0 {
		return decimal.Zero, 0, false
	}
	return s.WeightKg.Decimal, *s.Reps, true
}
