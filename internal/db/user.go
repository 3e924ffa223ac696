package db

import (
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	Password string `gorm:"not null"`
	IsAdmin  bool
	Profile  *Profile `gorm:"constraint:OnDelete:CASCADE"`
}

// Profile 保存用户的每日营养目标与偏好
// 目标值是 DailySummary 中 remaining 字段的唯一来源
type Profile struct {
	ID                    uint   `gorm:"primaryKey"`
	UserID                uint   `gorm:"uniqueIndex;not null"`
	Timezone              string `gorm:"size:50;default:UTC"`
	Units                 string `gorm:"size:10;default:metric"`
	CalorieTarget         int    `gorm:"default:1600"`
	ProteinTarget         int    `gorm:"default:140"`
	CarbsTarget           int    `gorm:"default:140"`
	FatTarget             int    `gorm:"default:45"`
	MeditationGoalMinutes int    `gorm:"default:20"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// TableName 指定自定义表名
func (Profile) TableName() string {
	return "profiles"
}

// DefaultProfile 返回带默认目标值的 Profile
func DefaultProfile(userID uint) Profile {
	return Profile{
		UserID:                userID,
		Timezone:              "UTC",
		Units:                 "metric",
		CalorieTarget:         1600,
		ProteinTarget:         140,
		CarbsTarget:           140,
		FatTarget:             45,
		MeditationGoalMinutes: 20,
	}
}

// EnsureUser 存在性检查：若提供的用户名与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的管理员用户及默认 Profile。
func EnsureUser(gdb *gorm.DB, username, password string) error {
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if gdb == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := gdb.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return gdb.Transaction(func(tx *gorm.DB) error {
			user := User{Username: trimmedUser, Password: string(hashed), IsAdmin: true}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			profile := DefaultProfile(user.ID)
			return tx.Create(&profile).Error
		})
	}

	return nil
}
