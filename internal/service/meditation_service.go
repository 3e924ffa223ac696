package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrMeditationNotFound 在冥想记录不存在或不属于当前用户时返回
	ErrMeditationNotFound = errors.New("meditation log not found")
	// ErrMeditationInvalidInput 当冥想输入不合法时返回
	ErrMeditationInvalidInput = errors.New("invalid meditation input")
	// ErrMeditationOverlap 当与同一天已有的冥想时间段重叠时返回
	ErrMeditationOverlap = errors.New("meditation session overlaps with existing session")
)

const maxMeditationMinutes = 300

var meditationStyles = map[string]struct{}{
	"mindfulness":     {},
	"breathing":       {},
	"mantra":          {},
	"body_scan":       {},
	"loving_kindness": {},
	"custom":          {},
}

// MeditationService 负责冥想记录的写入与周统计
type MeditationService struct {
	db      *gorm.DB
	trigger ActivityTrigger
}

// MeditationInput 定义冥想记录字段
type MeditationInput struct {
	Date            time.Time
	StartTime       time.Time
	DurationMinutes int
	Style           string
	CustomStyle     string
	PreMood         *int
	PostMood        *int
	Notes           string
}

// WeeklyMeditation 是 7 天窗口内的冥想统计
type WeeklyMeditation struct {
	Start        time.Time
	End          time.Time
	TotalMinutes int
	Sessions     int
	GoalMinutes  int
	GoalAchieved bool
	AverageDaily float64
}

// NewMeditationService 构造 MeditationService
func NewMeditationService(gdb *gorm.DB, trigger ActivityTrigger) *MeditationService {
	return &MeditationService{db: gdb, trigger: triggerOrNoop(trigger)}
}

// Create 新建冥想记录，同一天的时间段不允许重叠
func (s *MeditationService) Create(userID uint, input MeditationInput) (*db.MeditationLog, error) {
	if err := validateMeditationInput(&input); err != nil {
		return nil, err
	}

	date := normalizeToDate(input.Date)
	start := input.StartTime
	if start.IsZero() {
		start = date
	}
	if err := s.ensureNoOverlap(userID, date, start, input.DurationMinutes); err != nil {
		return nil, err
	}

	record := db.MeditationLog{
		UserID:          userID,
		Date:            date,
		StartTime:       start,
		DurationMinutes: input.DurationMinutes,
		Style:           input.Style,
		CustomStyle:     strings.TrimSpace(input.CustomStyle),
		PreMood:         input.PreMood,
		PostMood:        input.PostMood,
		Notes:           sanitizeText(input.Notes),
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("create meditation log: %w", err)
	}

	notifyActivity(s.trigger, userID, date, DomainMeditation)
	return &record, nil
}

// Delete 删除冥想记录
func (s *MeditationService) Delete(userID, id uint) error {
	var record db.MeditationLog
	if err := s.db.Where("user_id = ?", userID).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMeditationNotFound
		}
		return fmt.Errorf("get meditation log: %w", err)
	}

	if err := s.db.Delete(&record).Error; err != nil {
		return fmt.Errorf("delete meditation log: %w", err)
	}

	notifyActivity(s.trigger, userID, record.Date, DomainMeditation)
	return nil
}

// WeeklySummary 统计 start 起 7 天内的冥想，目标为每日目标 × 7
func (s *MeditationService) WeeklySummary(userID uint, start time.Time) (*WeeklyMeditation, error) {
	profile, err := loadProfile(s.db, userID)
	if err != nil {
		return nil, err
	}

	start = normalizeToDate(start)
	end := start.AddDate(0, 0, 6)

	var logs []db.MeditationLog
	if err := s.db.Where("user_id = ? AND date BETWEEN ? AND ?", userID, start, end).
		Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list meditation logs: %w", err)
	}

	summary := &WeeklyMeditation{
		Start:       start,
		End:         end,
		Sessions:    len(logs),
		GoalMinutes: profile.MeditationGoalMinutes * 7,
	}
	for _, log := range logs {
		summary.TotalMinutes += log.DurationMinutes
	}
	summary.GoalAchieved = summary.TotalMinutes >= summary.GoalMinutes
	summary.AverageDaily = float64(summary.TotalMinutes) / 7

	return summary, nil
}

func (s *MeditationService) ensureNoOverlap(userID uint, date, start time.Time, minutes int) error {
	var existing []db.MeditationLog
	if err := s.db.Where("user_id = ? AND date = ?", userID, date).Find(&existing).Error; err != nil {
		return fmt.Errorf("list meditation logs: %w", err)
	}

	end := start.Add(time.Duration(minutes) * time.Minute)
	for _, other := range existing {
		otherEnd := other.StartTime.Add(time.Duration(other.DurationMinutes) * time.Minute)
		if other.StartTime.Before(end) && otherEnd.After(start) {
			return ErrMeditationOverlap
		}
	}
	return nil
}

func validateMeditationInput(input *MeditationInput) error {
	if input.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrMeditationInvalidInput)
	}
	if input.DurationMinutes < 1 || input.DurationMinutes > maxMeditationMinutes {
		return fmt.Errorf("%w: duration must be between 1 and %d minutes", ErrMeditationInvalidInput, maxMeditationMinutes)
	}

	input.Style = strings.TrimSpace(strings.ToLower(input.Style))
	if input.Style == "" {
		input.Style = "mindfulness"
	}
	if _, ok := meditationStyles[input.Style]; !ok {
		return fmt.Errorf("%w: unsupported style %s", ErrMeditationInvalidInput, input.Style)
	}
	if input.Style == "custom" && strings.TrimSpace(input.CustomStyle) == "" {
		return fmt.Errorf("%w: custom style requires a name", ErrMeditationInvalidInput)
	}

	for _, mood := range []*int{input.PreMood, input.PostMood} {
		if mood != nil && (*mood < 1 || *mood > 5) {
			return fmt.Errorf("%w: mood must be between 1 and 5", ErrMeditationInvalidInput)
		}
	}
	return nil
}
