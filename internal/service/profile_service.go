package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
)

// ErrProfileInvalidInput 在目标值或偏好不合法时返回
var ErrProfileInvalidInput = errors.New("invalid profile input")

// ProfileService 负责维护用户的每日目标与偏好
// 修改目标不会回写已有汇总，下一次重算时读取新目标
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService 构造 ProfileService
func NewProfileService(gdb *gorm.DB) *ProfileService {
	return &ProfileService{db: gdb}
}

// ProfileInput 描述更新 Profile 时可设置的字段，指针为空表示不修改
type ProfileInput struct {
	Timezone              *string
	Units                 *string
	CalorieTarget         *int
	ProteinTarget         *int
	CarbsTarget           *int
	FatTarget             *int
	MeditationGoalMinutes *int
}

// Get 返回用户的 Profile
func (s *ProfileService) Get(userID uint) (*db.Profile, error) {
	return loadProfile(s.db, userID)
}

// Update 局部更新 Profile，不存在时以默认值创建后再更新
func (s *ProfileService) Update(userID uint, input ProfileInput) (*db.Profile, error) {
	profile, err := loadProfile(s.db, userID)
	if errors.Is(err, ErrProfileNotFound) {
		created := db.DefaultProfile(userID)
		profile = &created
	} else if err != nil {
		return nil, err
	}

	if input.Timezone != nil {
		tz := strings.TrimSpace(*input.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return nil, fmt.Errorf("%w: unknown timezone %s", ErrProfileInvalidInput, tz)
		}
		profile.Timezone = tz
	}
	if input.Units != nil {
		units := strings.TrimSpace(strings.ToLower(*input.Units))
		if units != "metric" && units != "imperial" {
			return nil, fmt.Errorf("%w: unsupported units %s", ErrProfileInvalidInput, units)
		}
		profile.Units = units
	}

	targets := []struct {
		name  string
		value *int
		dest  *int
	}{
		{"calorie_target", input.CalorieTarget, &profile.CalorieTarget},
		{"protein_target", input.ProteinTarget, &profile.ProteinTarget},
		{"carbs_target", input.CarbsTarget, &profile.CarbsTarget},
		{"fat_target", input.FatTarget, &profile.FatTarget},
		{"meditation_goal_minutes", input.MeditationGoalMinutes, &profile.MeditationGoalMinutes},
	}
	for _, target := range targets {
		if target.value == nil {
			continue
		}
		if *target.value < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrProfileInvalidInput, target.name)
		}
		*target.dest = *target.value
	}

	if err := s.db.Save(profile).Error; err != nil {
		return nil, fmt.Errorf("save profile: %w", err)
	}
	return profile, nil
}
