package db

import "time"

// MeditationLog 记录单次冥想，日志之间相互独立，不保存任何聚合状态
type MeditationLog struct {
	ID              uint      `gorm:"primaryKey"`
	UserID          uint      `gorm:"not null;index:idx_meditation_user_date,priority:1"`
	Date            time.Time `gorm:"not null;index:idx_meditation_user_date,priority:2"`
	StartTime       time.Time `gorm:"not null"`
	DurationMinutes int       `gorm:"not null"`
	Style           string    `gorm:"size:20;not null"`
	CustomStyle     string    `gorm:"size:50"`
	PreMood         *int
	PostMood        *int
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName 指定自定义表名
func (MeditationLog) TableName() string {
	return "meditation_logs"
}
