package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
)

// ErrProfileNotFound 在用户缺少 Profile（目标值来源）时返回
var ErrProfileNotFound = errors.New("profile not found")

// MacroTotals 是一组宏量营养素合计，克数保持精确小数
type MacroTotals struct {
	Calories int
	ProteinG decimal.Decimal
	CarbsG   decimal.Decimal
	FatG     decimal.Decimal
}

// Add 逐项相加
func (m MacroTotals) Add(other MacroTotals) MacroTotals {
	return MacroTotals{
		Calories: m.Calories + other.Calories,
		ProteinG: m.ProteinG.Add(other.ProteinG),
		CarbsG:   m.CarbsG.Add(other.CarbsG),
		FatG:     m.FatG.Add(other.FatG),
	}
}

// Rounded 返回克数保留两位小数后的副本
func (m MacroTotals) Rounded() MacroTotals {
	return MacroTotals{
		Calories: m.Calories,
		ProteinG: m.ProteinG.Round(2),
		CarbsG:   m.CarbsG.Round(2),
		FatG:     m.FatG.Round(2),
	}
}

// DailyNutrition 是某天的摄入合计与剩余额度，剩余可以为负
type DailyNutrition struct {
	Date      time.Time
	Consumed  MacroTotals
	Remaining MacroTotals
	Meals     int
}

// ItemMacros 计算单个餐品的宏量营养素
// 每个字段独立判断：覆盖值非空时原样使用（0 也算），否则为 份数 × 食物每份数值
// 热量向零截断为整数
func ItemMacros(item db.MealItem) MacroTotals {
	qty := item.Quantity
	totals := MacroTotals{
		Calories: int(qty.Mul(decimal.NewFromInt(int64(item.Food.Calories))).IntPart()),
		ProteinG: qty.Mul(item.Food.ProteinG),
		CarbsG:   qty.Mul(item.Food.CarbsG),
		FatG:     qty.Mul(item.Food.FatG),
	}

	if item.CustomCalories != nil {
		totals.Calories = *item.CustomCalories
	}
	if item.CustomProteinG.Valid {
		totals.ProteinG = item.CustomProteinG.Decimal
	}
	if item.CustomCarbsG.Valid {
		totals.CarbsG = item.CustomCarbsG.Decimal
	}
	if item.CustomFatG.Valid {
		totals.FatG = item.CustomFatG.Decimal
	}
	return totals
}

// MealMacros 对一餐中的所有餐品求和，Items 需预加载 Food
func MealMacros(meal db.Meal) MacroTotals {
	totals := MacroTotals{}
	for _, item := range meal.Items {
		totals = totals.Add(ItemMacros(item))
	}
	return totals
}

// NutritionEngine 聚合用户某天的营养摄入并与 Profile 目标对比
type NutritionEngine struct {
	db *gorm.DB
}

// NewNutritionEngine 构造 NutritionEngine
func NewNutritionEngine(gdb *gorm.DB) *NutritionEngine {
	return &NutritionEngine{db: gdb}
}

// Consumed 返回用户某天所有餐的合计与餐数
func (e *NutritionEngine) Consumed(userID uint, date time.Time) (MacroTotals, int, error) {
	date = normalizeToDate(date)

	var meals []db.Meal
	if err := e.db.Preload("Items.Food").
		Where("user_id = ? AND date = ?", userID, date).
		Order("id ASC").
		Find(&meals).Error; err != nil {
		return MacroTotals{}, 0, fmt.Errorf("list meals: %w", err)
	}

	totals := MacroTotals{}
	for _, meal := range meals {
		totals = totals.Add(MealMacros(meal))
	}
	return totals, len(meals), nil
}

// DailyNutrition 返回某天的摄入与剩余额度
func (e *NutritionEngine) DailyNutrition(userID uint, date time.Time) (*DailyNutrition, error) {
	profile, err := loadProfile(e.db, userID)
	if err != nil {
		return nil, err
	}

	consumed, meals, err := e.Consumed(userID, date)
	if err != nil {
		return nil, err
	}

	consumed = consumed.Rounded()
	return &DailyNutrition{
		Date:      normalizeToDate(date),
		Consumed:  consumed,
		Remaining: remainingMacros(*profile, consumed),
		Meals:     meals,
	}, nil
}

func remainingMacros(profile db.Profile, consumed MacroTotals) MacroTotals {
	return MacroTotals{
		Calories: profile.CalorieTarget - consumed.Calories,
		ProteinG: decimal.NewFromInt(int64(profile.ProteinTarget)).Sub(consumed.ProteinG),
		CarbsG:   decimal.NewFromInt(int64(profile.CarbsTarget)).Sub(consumed.CarbsG),
		FatG:     decimal.NewFromInt(int64(profile.FatTarget)).Sub(consumed.FatG),
	}
}

func loadProfile(gdb *gorm.DB, userID uint) (*db.Profile, error) {
	var profile db.Profile
	if err := gdb.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &profile, nil
}
