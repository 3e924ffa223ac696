package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrExerciseNotFound 在动作不存在或对当前用户不可见时返回
	ErrExerciseNotFound = errors.New("exercise not found")
	// ErrWorkoutNotFound 在训练不存在或不属于当前用户时返回
	ErrWorkoutNotFound = errors.New("workout session not found")
	// ErrWorkoutSetNotFound 在训练组不存在时返回
	ErrWorkoutSetNotFound = errors.New("workout set not found")
	// ErrWorkoutInvalidInput 当训练输入不合法时返回
	ErrWorkoutInvalidInput = errors.New("invalid workout input")
	// ErrWorkoutSetDuplicate 当同一训练中动作+组号重复时返回
	ErrWorkoutSetDuplicate = errors.New("workout set number already exists")
)

var exerciseCategories = map[string]struct{}{
	db.ExerciseCategoryPush:     {},
	db.ExerciseCategoryPull:     {},
	db.ExerciseCategoryLegs:     {},
	db.ExerciseCategoryCardio:   {},
	db.ExerciseCategoryMobility: {},
	db.ExerciseCategoryCore:     {},
}

// WorkoutService 负责动作库、训练与训练组的写入
// 组写入后先刷新 PR 标记，再通知汇总层重算
type WorkoutService struct {
	db      *gorm.DB
	prs     *PREngine
	trigger ActivityTrigger
}

// ExerciseInput 定义自定义动作的字段
type ExerciseInput struct {
	Name        string
	Category    string
	Description string
	IsCompound  bool
}

// WorkoutSessionInput 定义创建训练的字段
type WorkoutSessionInput struct {
	Date      time.Time
	StartTime time.Time
	EndTime   *time.Time
	Notes     string
}

// WorkoutSetInput 定义训练组可写字段；IsPR 由引擎维护，不在输入中
type WorkoutSetInput struct {
	ExerciseID      uint
	SetNumber       int
	Reps            *int
	WeightKg        decimal.NullDecimal
	DurationSeconds *int
	DistanceKm      decimal.NullDecimal
	RPE             *int
	Notes           string
}

// NewWorkoutService 构造 WorkoutService
func NewWorkoutService(gdb *gorm.DB, trigger ActivityTrigger) *WorkoutService {
	return &WorkoutService{db: gdb, prs: NewPREngine(gdb), trigger: triggerOrNoop(trigger)}
}

// ListExercises 返回系统动作与用户自定义动作，可按分类过滤
func (s *WorkoutService) ListExercises(userID uint, category string) ([]db.Exercise, error) {
	query := s.db.Model(&db.Exercise{}).Where("created_by IS NULL OR created_by = ?", userID)
	if category = strings.TrimSpace(strings.ToLower(category)); category != "" {
		query = query.Where("category = ?", category)
	}

	var exercises []db.Exercise
	if err := query.Order("name ASC, id ASC").Find(&exercises).Error; err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return exercises, nil
}

// CreateExercise 新建用户自定义动作
func (s *WorkoutService) CreateExercise(userID uint, input ExerciseInput) (*db.Exercise, error) {
	name := strings.TrimSpace(input.Name)
	category := strings.TrimSpace(strings.ToLower(input.Category))
	if name == "" {
		return nil, fmt.Errorf("%w: exercise name is required", ErrWorkoutInvalidInput)
	}
	if _, ok := exerciseCategories[category]; !ok {
		return nil, fmt.Errorf("%w: unsupported category %s", ErrWorkoutInvalidInput, input.Category)
	}

	owner := userID
	exercise := db.Exercise{
		Name:        name,
		Category:    category,
		Description: sanitizeText(input.Description),
		IsCompound:  input.IsCompound,
		IsCustom:    true,
		CreatedBy:   &owner,
	}
	if err := s.db.Create(&exercise).Error; err != nil {
		return nil, fmt.Errorf("create exercise: %w", err)
	}
	return &exercise, nil
}

// CreateSession 新建训练
func (s *WorkoutService) CreateSession(userID uint, input WorkoutSessionInput) (*db.WorkoutSession, error) {
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrWorkoutInvalidInput)
	}
	if input.EndTime != nil && !input.StartTime.IsZero() && input.EndTime.Before(input.StartTime) {
		return nil, fmt.Errorf("%w: end time before start time", ErrWorkoutInvalidInput)
	}

	session := db.WorkoutSession{
		UserID:    userID,
		Date:      normalizeToDate(input.Date),
		StartTime: input.StartTime,
		EndTime:   input.EndTime,
		Notes:     sanitizeText(input.Notes),
	}
	if session.StartTime.IsZero() {
		session.StartTime = session.Date
	}

	if err := s.db.Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create workout session: %w", err)
	}

	notifyActivity(s.trigger, userID, session.Date, DomainWorkouts)
	return &session, nil
}

// GetSession 返回训练及其全部组
func (s *WorkoutService) GetSession(userID, id uint) (*db.WorkoutSession, error) {
	var session db.WorkoutSession
	if err := s.db.Preload("Sets", func(q *gorm.DB) *gorm.DB {
		return q.Order("set_number ASC, id ASC")
	}).Preload("Sets.Exercise").
		Where("user_id = ?", userID).
		First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, fmt.Errorf("get workout session: %w", err)
	}
	return &session, nil
}

// DeleteSession 删除训练及其全部组
func (s *WorkoutService) DeleteSession(userID, id uint) error {
	session, err := s.GetSession(userID, id)
	if err != nil {
		return err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", session.ID).Delete(&db.WorkoutSet{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.WorkoutSession{}, session.ID).Error
	}); err != nil {
		return fmt.Errorf("delete workout session: %w", err)
	}

	return s.refreshPRs(userID, session.Date, setExerciseIDs(session.Sets))
}

// AddSet 为训练新增一组，SetNumber 为 0 时自动取下一个组号
func (s *WorkoutService) AddSet(userID, sessionID uint, input WorkoutSetInput) (*db.WorkoutSet, error) {
	session, err := s.GetSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.validateSetInput(userID, input); err != nil {
		return nil, err
	}

	if input.SetNumber == 0 {
		input.SetNumber = nextSetNumber(session.Sets, input.ExerciseID)
	}
	if err := s.ensureSetNumberFree(session.ID, input.ExerciseID, input.SetNumber, 0); err != nil {
		return nil, err
	}

	set := db.WorkoutSet{SessionID: session.ID}
	applySetInput(&set, input)
	if err := s.db.Create(&set).Error; err != nil {
		return nil, fmt.Errorf("create workout set: %w", err)
	}

	return s.afterSetWrite(userID, session, set.ID, set.ExerciseID)
}

// UpdateSet 覆盖训练组的可写字段
func (s *WorkoutService) UpdateSet(userID, sessionID, setID uint, input WorkoutSetInput) (*db.WorkoutSet, error) {
	session, err := s.GetSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	set, err := s.findSet(session.ID, setID)
	if err != nil {
		return nil, err
	}
	if err := s.validateSetInput(userID, input); err != nil {
		return nil, err
	}
	if input.SetNumber == 0 {
		input.SetNumber = set.SetNumber
	}
	if err := s.ensureSetNumberFree(session.ID, input.ExerciseID, input.SetNumber, set.ID); err != nil {
		return nil, err
	}

	previousExercise := set.ExerciseID
	applySetInput(set, input)
	if err := s.db.Model(set).Select(
		"exercise_id", "set_number", "reps", "weight_kg", "duration_seconds", "distance_km", "rpe", "notes",
	).Updates(set).Error; err != nil {
		return nil, fmt.Errorf("update workout set: %w", err)
	}

	return s.afterSetWrite(userID, session, set.ID, previousExercise, set.ExerciseID)
}

// DeleteSet 删除训练组
func (s *WorkoutService) DeleteSet(userID, sessionID, setID uint) error {
	session, err := s.GetSession(userID, sessionID)
	if err != nil {
		return err
	}
	set, err := s.findSet(session.ID, setID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(&db.WorkoutSet{}, set.ID).Error; err != nil {
		return fmt.Errorf("delete workout set: %w", err)
	}

	return s.refreshPRs(userID, session.Date, []uint{set.ExerciseID})
}

func (s *WorkoutService) afterSetWrite(userID uint, session *db.WorkoutSession, setID uint, exerciseIDs ...uint) (*db.WorkoutSet, error) {
	if err := s.refreshPRs(userID, session.Date, exerciseIDs); err != nil {
		return nil, err
	}
	return s.findSet(session.ID, setID)
}

// refreshPRs 重新判断 date 当天及之后涉及这些动作的 PR 标记，
// 然后通知 date 以及其他标记有变化的日期重算汇总
func (s *WorkoutService) refreshPRs(userID uint, date time.Time, exerciseIDs []uint) error {
	date = normalizeToDate(date)
	changed, err := s.prs.RefreshFrom(userID, uniqueIDs(exerciseIDs), date)
	if err != nil {
		return err
	}

	notifyActivity(s.trigger, userID, date, DomainWorkouts)
	for _, day := range changed {
		if !day.Equal(date) {
			notifyActivity(s.trigger, userID, day, DomainWorkouts)
		}
	}
	return nil
}

func setExerciseIDs(sets []db.WorkoutSet) []uint {
	ids := make([]uint, 0, len(sets))
	for _, set := range sets {
		ids = append(ids, set.ExerciseID)
	}
	return ids
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

func (s *WorkoutService) findSet(sessionID, setID uint) (*db.WorkoutSet, error) {
	var set db.WorkoutSet
	if err := s.db.Preload("Exercise").Where("session_id = ?", sessionID).First(&set, setID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkoutSetNotFound
		}
		return nil, fmt.Errorf("get workout set: %w", err)
	}
	return &set, nil
}

func (s *WorkoutService) validateSetInput(userID uint, input WorkoutSetInput) error {
	if input.ExerciseID == 0 {
		return fmt.Errorf("%w: exercise is required", ErrWorkoutInvalidInput)
	}
	if input.SetNumber < 0 {
		return fmt.Errorf("%w: set number must not be negative", ErrWorkoutInvalidInput)
	}
	if input.Reps != nil && *input.Reps < 0 {
		return fmt.Errorf("%w: reps must not be negative", ErrWorkoutInvalidInput)
	}
	if input.WeightKg.Valid && input.WeightKg.Decimal.IsNegative() {
		return fmt.Errorf("%w: weight must not be negative", ErrWorkoutInvalidInput)
	}
	if input.DurationSeconds != nil && *input.DurationSeconds < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrWorkoutInvalidInput)
	}
	if input.DistanceKm.Valid && input.DistanceKm.Decimal.IsNegative() {
		return fmt.Errorf("%w: distance must not be negative", ErrWorkoutInvalidInput)
	}
	if input.RPE != nil && (*input.RPE < 1 || *input.RPE > 10) {
		return fmt.Errorf("%w: rpe must be between 1 and 10", ErrWorkoutInvalidInput)
	}

	var count int64
	if err := s.db.Model(&db.Exercise{}).
		Where("id = ? AND (created_by IS NULL OR created_by = ?)", input.ExerciseID, userID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check exercise: %w", err)
	}
	if count == 0 {
		return ErrExerciseNotFound
	}
	return nil
}

func (s *WorkoutService) ensureSetNumberFree(sessionID, exerciseID uint, setNumber int, excludeID uint) error {
	var count int64
	query := s.db.Model(&db.WorkoutSet{}).
		Where("session_id = ? AND exercise_id = ? AND set_number = ?", sessionID, exerciseID, setNumber)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check workout set number: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: set %d", ErrWorkoutSetDuplicate, setNumber)
	}
	return nil
}

func nextSetNumber(sets []db.WorkoutSet, exerciseID uint) int {
	next := 1
	for _, set := range sets {
		if set.ExerciseID == exerciseID && set.SetNumber >= next {
			next = set.SetNumber + 1
		}
	}
	return next
}

func applySetInput(set *db.WorkoutSet, input WorkoutSetInput) {
	set.ExerciseID = input.ExerciseID
	set.SetNumber = input.SetNumber
	set.Reps = input.Reps
	set.WeightKg = input.WeightKg
	set.DurationSeconds = input.DurationSeconds
	set.DistanceKm = input.DistanceKm
	set.RPE = input.RPE
	set.Notes = sanitizeText(input.Notes)
}
