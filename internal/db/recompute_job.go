package db

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RecomputeJobPending   = "pending"
	RecomputeJobRunning   = "running"
	RecomputeJobSucceeded = "succeeded"
	RecomputeJobPartial   = "partial"
	RecomputeJobFailed    = "failed"
)

// RecomputeJob 记录一次后台批量重算任务
// UserID 为空表示覆盖全部用户；Failures 以 JSON 数组保存失败的 user/date
type RecomputeJob struct {
	ID             string    `gorm:"primaryKey;size:36"`
	UserID         *uint     `gorm:"index"`
	StartDate      time.Time `gorm:"not null"`
	EndDate        time.Time `gorm:"not null"`
	Status         string    `gorm:"size:16;index;not null"`
	UsersProcessed int
	UsersSucceeded int
	Failures       datatypes.JSON
	Error          string
	StartedAt      *time.Time
	FinishedAt     *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName 指定自定义表名
func (RecomputeJob) TableName() string {
	return "recompute_jobs"
}
