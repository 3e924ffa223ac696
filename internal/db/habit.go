package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	HabitStatusActive   = "active"
	HabitStatusInactive = "inactive"
)

// Habit 定义了习惯模型
// Name 在同一用户下唯一；Status 仅使用 active/inactive，停用即软删除，
// 保留历史打卡以便报表继续引用
type Habit struct {
	gorm.Model
	UserID      uint   `gorm:"not null;index;uniqueIndex:idx_habit_user_name"`
	Name        string `gorm:"size:100;not null;uniqueIndex:idx_habit_user_name"`
	Description string
	Status      string `gorm:"size:16;index;default:active"`
}

// IsActive 判断习惯是否处于启用状态
func (h Habit) IsActive() bool {
	return h.Status != HabitStatusInactive
}

// HabitCheck 记录习惯每日完成情况
// Habit + Date 采用唯一索引，保证同一天只会有一条记录，重复提交走幂等更新
type HabitCheck struct {
	gorm.Model
	HabitID   uint      `gorm:"index;uniqueIndex:idx_habit_check_unique"`
	Habit     Habit     `gorm:"constraint:OnDelete:CASCADE"`
	Date      time.Time `gorm:"index;uniqueIndex:idx_habit_check_unique"`
	Completed bool
	Notes     string
}

// TableName 重写确保唯一索引作用到 habit_id + date
func (HabitCheck) TableName() string {
	return "habit_checks"
}
