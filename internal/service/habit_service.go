package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrHabitNotFound 在指定习惯不存在或不属于当前用户时返回
	ErrHabitNotFound = errors.New("habit not found")
	// ErrHabitCheckNotFound 在指定打卡记录不存在时返回
	ErrHabitCheckNotFound = errors.New("habit check not found")
	// ErrHabitInvalidInput 当习惯输入不完整时返回
	ErrHabitInvalidInput = errors.New("invalid habit input")
	// ErrHabitDuplicateName 当同一用户下习惯重名时返回
	ErrHabitDuplicateName = errors.New("habit name already exists")
)

// HabitService 负责 Habit 数据的增删改查
// 所有操作都限定在 userID 范围内；停用即软删除，历史打卡保留
type HabitService struct {
	db *gorm.DB
}

// HabitFilter 描述列表过滤条件
type HabitFilter struct {
	Status string
	Search string
}

// HabitInput 定义创建/更新习惯时可配置字段
type HabitInput struct {
	Name        string
	Description string
	Status      string
}

// NewHabitService 构造 HabitService
func NewHabitService(gdb *gorm.DB) *HabitService {
	return &HabitService{db: gdb}
}

// List 返回用户的习惯集合，支持基本筛选，按创建顺序排列
func (s *HabitService) List(userID uint, filter HabitFilter) ([]db.Habit, error) {
	var habits []db.Habit

	query := s.db.Model(&db.Habit{}).Where("user_id = ?", userID)

	if filter.Status != "" {
		query = query.Where("status = ?", normalizeStatus(filter.Status))
	}
	if filter.Search != "" {
		like := fmt.Sprintf("%%%s%%", strings.TrimSpace(filter.Search))
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Order("id ASC").Find(&habits).Error; err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	return habits, nil
}

// ListActive 返回用户启用中的习惯，按 id 升序，顺序稳定
func (s *HabitService) ListActive(userID uint) ([]db.Habit, error) {
	return s.List(userID, HabitFilter{Status: db.HabitStatusActive})
}

// Get 根据 ID 获取习惯
func (s *HabitService) Get(userID, id uint) (*db.Habit, error) {
	var habit db.Habit
	if err := s.db.Where("user_id = ?", userID).First(&habit, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHabitNotFound
		}
		return nil, fmt.Errorf("get habit: %w", err)
	}
	return &habit, nil
}

// Create 新建习惯
func (s *HabitService) Create(userID uint, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if err := s.ensureUniqueName(userID, name, 0); err != nil {
		return nil, err
	}

	habit := db.Habit{
		UserID:      userID,
		Name:        name,
		Description: sanitizeText(input.Description),
		Status:      normalizeStatus(input.Status),
	}

	if err := s.db.Create(&habit).Error; err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	return &habit, nil
}

// Update 更新习惯
func (s *HabitService) Update(userID, id uint, input HabitInput) (*db.Habit, error) {
	if err := validateHabitInput(input); err != nil {
		return nil, err
	}

	existing, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if err := s.ensureUniqueName(userID, name, id); err != nil {
		return nil, err
	}

	existing.Name = name
	existing.Description = sanitizeText(input.Description)
	existing.Status = normalizeStatus(input.Status)

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update habit: %w", err)
	}
	return existing, nil
}

// Deactivate 停用习惯，历史打卡继续参与报表
func (s *HabitService) Deactivate(userID, id uint) (*db.Habit, error) {
	existing, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	existing.Status = db.HabitStatusInactive
	if err := s.db.Model(existing).Update("status", db.HabitStatusInactive).Error; err != nil {
		return nil, fmt.Errorf("deactivate habit: %w", err)
	}
	return existing, nil
}

func (s *HabitService) ensureUniqueName(userID uint, name string, excludeID uint) error {
	var count int64
	query := s.db.Model(&db.Habit{}).Where("user_id = ? AND name = ?", userID, name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check habit name: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrHabitDuplicateName, name)
	}
	return nil
}

func validateHabitInput(input HabitInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrHabitInvalidInput)
	}
	if len([]rune(name)) > 100 {
		return fmt.Errorf("%w: name too long", ErrHabitInvalidInput)
	}
	return nil
}

func normalizeStatus(status string) string {
	status = strings.TrimSpace(strings.ToLower(status))
	if status != db.HabitStatusInactive {
		return db.HabitStatusActive
	}
	return db.HabitStatusInactive
}

// HabitCheckService 负责打卡与统计逻辑，写入后通知汇总层
type HabitCheckService struct {
	db      *gorm.DB
	habits  *HabitService
	streaks *StreakCalculator
	trigger ActivityTrigger
}

// HabitCheckInput 定义打卡时的输入对象
type HabitCheckInput struct {
	HabitID   uint
	Date      time.Time
	Completed bool
	Notes     string
}

// HabitStats 汇总区间内的基础统计数据
type HabitStats struct {
	RangeStart     time.Time
	RangeEnd       time.Time
	CompletedCount int
	TotalDays      int
	CompletionRate float64
	CurrentStreak  int
	LongestStreak  int
}

// NewHabitCheckService 构造 HabitCheckService，trigger 为空时不触发重算
func NewHabitCheckService(gdb *gorm.DB, trigger ActivityTrigger) *HabitCheckService {
	return &HabitCheckService{
		db:      gdb,
		habits:  NewHabitService(gdb),
		streaks: NewStreakCalculator(gdb),
		trigger: triggerOrNoop(trigger),
	}
}

// Upsert 处理幂等打卡逻辑：同一习惯同一天只保留一条记录，重复提交覆盖完成状态与备注
func (s *HabitCheckService) Upsert(userID uint, input HabitCheckInput) (*db.HabitCheck, error) {
	if _, err := s.habits.Get(userID, input.HabitID); err != nil {
		return nil, err
	}

	date := normalizeToDate(input.Date)
	record := db.HabitCheck{
		HabitID:   input.HabitID,
		Date:      date,
		Completed: input.Completed,
		Notes:     sanitizeText(input.Notes),
	}

	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "habit_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "notes", "updated_at", "deleted_at"}),
	}).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("upsert habit check: %w", err)
	}

	var stored db.HabitCheck
	if err := s.db.Where("habit_id = ? AND date = ?", input.HabitID, date).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("reload habit check: %w", err)
	}

	notifyActivity(s.trigger, userID, date, DomainHabits)
	return &stored, nil
}

// Delete 删除指定打卡记录
func (s *HabitCheckService) Delete(userID, habitID, checkID uint) error {
	if _, err := s.habits.Get(userID, habitID); err != nil {
		return err
	}

	var check db.HabitCheck
	if err := s.db.Where("habit_id = ?", habitID).First(&check, checkID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrHabitCheckNotFound
		}
		return fmt.Errorf("get habit check: %w", err)
	}

	if err := s.db.Unscoped().Delete(&check).Error; err != nil {
		return fmt.Errorf("delete habit check: %w", err)
	}

	notifyActivity(s.trigger, userID, check.Date, DomainHabits)
	return nil
}

// ListBetween 返回指定区间内的打卡记录
func (s *HabitCheckService) ListBetween(userID, habitID uint, start, end time.Time) ([]db.HabitCheck, error) {
	if _, err := s.habits.Get(userID, habitID); err != nil {
		return nil, err
	}

	start, end, _, err := validateRange(start, end, 0)
	if err != nil {
		return nil, err
	}

	var checks []db.HabitCheck
	if err := s.db.Where("habit_id = ?", habitID).
		Where("date BETWEEN ? AND ?", start, end).
		Order("date ASC").
		Find(&checks).Error; err != nil {
		return nil, fmt.Errorf("list habit checks: %w", err)
	}

	return checks, nil
}

// Stats 计算区间内的完成数、完成率以及截至区间终点的连续天数
func (s *HabitCheckService) Stats(userID, habitID uint, start, end time.Time) (*HabitStats, error) {
	checks, err := s.ListBetween(userID, habitID, start, end)
	if err != nil {
		return nil, err
	}

	start, end = normalizeToDate(start), normalizeToDate(end)
	stats := &HabitStats{
		RangeStart: start,
		RangeEnd:   end,
		TotalDays:  daysBetween(start, end) + 1,
	}

	for _, check := range checks {
		if check.Completed {
			stats.CompletedCount++
		}
	}
	if stats.TotalDays > 0 {
		stats.CompletionRate = float64(stats.CompletedCount) / float64(stats.TotalDays)
	}

	stats.LongestStreak = longestStreak(checks)
	stats.CurrentStreak, err = s.streaks.Streak(habitID, end)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
