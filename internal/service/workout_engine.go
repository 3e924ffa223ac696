package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
)

// liftRecord 是 PR 比较所需的单组历史数据
type liftRecord struct {
	Weight decimal.Decimal
	Reps   int
}

// SessionVolume 计算训练容量：Σ reps × weight，缺少任一值的组（如有氧）不计入
func SessionVolume(sets []db.WorkoutSet) decimal.Decimal {
	total := decimal.Zero
	for _, set := range sets {
		if !set.WeightKg.Valid || set.Reps == nil {
			continue
		}
		total = total.Add(set.WeightKg.Decimal.Mul(decimal.NewFromInt(int64(*set.Reps))))
	}
	return total
}

// EstimateOneRepMax 使用 Epley 公式估算 1RM，保留两位小数
func EstimateOneRepMax(weight decimal.Decimal, reps int) (decimal.Decimal, bool) {
	if !weight.IsPositive() || reps <= 0 {
		return decimal.Zero, false
	}
	factor := decimal.NewFromInt(1).Add(decimal.NewFromInt(int64(reps)).Div(decimal.NewFromInt(30)))
	return weight.Mul(factor).Round(2), true
}

// isPersonalRecord 按“先比重量，再比该重量下的次数”判断候选组是否刷新纪录。
// 没有任何有效历史时直接视为 PR；重量与次数都持平不算 PR。
func isPersonalRecord(history []liftRecord, weight decimal.Decimal, reps int) bool {
	if !weight.IsPositive() || reps <= 0 {
		return false
	}

	found := false
	bestWeight := decimal.Zero
	bestReps := 0
	for _, record := range history {
		if !record.Weight.IsPositive() || record.Reps <= 0 {
			continue
		}
		switch {
		case !found || record.Weight.GreaterThan(bestWeight):
			bestWeight, bestReps, found = record.Weight, record.Reps, true
		case record.Weight.Equal(bestWeight) && record.Reps > bestReps:
			bestReps = record.Reps
		}
	}

	if !found {
		return true
	}
	if weight.GreaterThan(bestWeight) {
		return true
	}
	return weight.Equal(bestWeight) && reps > bestReps
}

// PREngine 维护 WorkoutSet.IsPR 这一派生缓存
type PREngine struct {
	db *gorm.DB
}

// NewPREngine 构造 PREngine
func NewPREngine(gdb *gorm.DB) *PREngine {
	return &PREngine{db: gdb}
}

// DetectPR 判断候选重量/次数相对用户在 asOf 当天及之前的全部记录是否为新 PR
func (e *PREngine) DetectPR(userID, exerciseID uint, weight decimal.Decimal, reps int, asOf time.Time) (bool, error) {
	history, err := e.liftHistory(userID, exerciseID, func(q *gorm.DB) *gorm.DB {
		return q.Where("workout_sessions.date <= ?", normalizeToDate(asOf))
	})
	if err != nil {
		return false, err
	}
	return isPersonalRecord(history, weight, reps), nil
}

// UpdatePRs 重新计算训练中每一组的 PR 标记，只在取值变化时写库，返回改动的组数。
// 每组只和它之前的记录比较：更早日期的训练，或同一天中 id 更小的组。
func (e *PREngine) UpdatePRs(sessionID uint) (int, error) {
	var session db.WorkoutSession
	if err := e.db.Preload("Sets", func(q *gorm.DB) *gorm.DB {
		return q.Order("set_number ASC, id ASC")
	}).First(&session, sessionID).Error; err != nil {
		return 0, fmt.Errorf("load workout session: %w", err)
	}

	date := normalizeToDate(session.Date)
	changed := 0
	for _, set := range session.Sets {
		isPR := false
		if weight, reps, ok := set.Lift(); ok {
			history, err := e.liftHistory(session.UserID, set.ExerciseID, func(q *gorm.DB) *gorm.DB {
				return q.Where("(workout_sessions.date < ? OR (workout_sessions.date = ? AND workout_sets.id < ?))", date, date, set.ID)
			})
			if err != nil {
				return changed, err
			}
			isPR = isPersonalRecord(history, weight, reps)
		}

		if isPR == set.IsPR {
			continue
		}
		if err := e.db.Model(&db.WorkoutSet{}).Where("id = ?", set.ID).Update("is_pr", isPR).Error; err != nil {
			return changed, fmt.Errorf("update workout set pr: %w", err)
		}
		changed++
	}

	return changed, nil
}

// RefreshFrom 对用户自 from 当天起、包含任一指定动作的训练逐个执行 UpdatePRs，
// 返回 PR 标记发生变化的日期（升序、去重）。
// 较早的组被修改或删除后，之后同一动作的组都需要重新判断。
func (e *PREngine) RefreshFrom(userID uint, exerciseIDs []uint, from time.Time) ([]time.Time, error) {
	if len(exerciseIDs) == 0 {
		return nil, nil
	}

	var sessions []db.WorkoutSession
	if err := e.db.Model(&db.WorkoutSession{}).
		Where("user_id = ? AND date >= ?", userID, normalizeToDate(from)).
		Where("id IN (?)", e.db.Model(&db.WorkoutSet{}).Select("session_id").Where("exercise_id IN ?", exerciseIDs)).
		Order("date ASC, id ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list later workout sessions: %w", err)
	}

	var dates []time.Time
	for _, session := range sessions {
		changed, err := e.UpdatePRs(session.ID)
		if err != nil {
			return dates, err
		}
		date := normalizeToDate(session.Date)
		if changed > 0 && (len(dates) == 0 || !dates[len(dates)-1].Equal(date)) {
			dates = append(dates, date)
		}
	}
	return dates, nil
}

// SessionVolume 读取训练的全部组并计算容量
func (e *PREngine) SessionVolume(sessionID uint) (decimal.Decimal, error) {
	var sets []db.WorkoutSet
	if err := e.db.Where("session_id = ?", sessionID).Find(&sets).Error; err != nil {
		return decimal.Zero, fmt.Errorf("list workout sets: %w", err)
	}
	return SessionVolume(sets), nil
}

func (e *PREngine) liftHistory(userID, exerciseID uint, scope func(*gorm.DB) *gorm.DB) ([]liftRecord, error) {
	var sets []db.WorkoutSet
	query := e.db.Model(&db.WorkoutSet{}).
		Select("workout_sets.*").
		Joins("JOIN workout_sessions ON workout_sessions.id = workout_sets.session_id").
		Where("workout_sessions.user_id = ? AND workout_sets.exercise_id = ?", userID, exerciseID).
		Where("workout_sets.weight_kg IS NOT NULL AND workout_sets.reps IS NOT NULL")
	if scope != nil {
		query = scope(query)
	}
	if err := query.Find(&sets).Error; err != nil {
		return nil, fmt.Errorf("list lift history: %w", err)
	}

	history := make([]liftRecord, 0, len(sets))
	for _, set := range sets {
		if weight, reps, ok := set.Lift(); ok {
			history = append(history, liftRecord{Weight: weight, Reps: reps})
		}
	}
	return history, nil
}
