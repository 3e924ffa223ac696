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
	// ErrFoodNotFound 在食物不存在或对当前用户不可见时返回
	ErrFoodNotFound = errors.New("food not found")
	// ErrMealNotFound 在餐不存在或不属于当前用户时返回
	ErrMealNotFound = errors.New("meal not found")
	// ErrMealItemNotFound 在餐品不存在时返回
	ErrMealItemNotFound = errors.New("meal item not found")
	// ErrNutritionInvalidInput 当营养输入不合法时返回
	ErrNutritionInvalidInput = errors.New("invalid nutrition input")
)

var mealTypes = map[string]struct{}{
	db.MealTypeBreakfast: {},
	db.MealTypeLunch:     {},
	db.MealTypeDinner:    {},
	db.MealTypeSnack:     {},
}

// NutritionService 负责食物库与餐食记录，写入后通知汇总层
type NutritionService struct {
	db      *gorm.DB
	trigger ActivityTrigger
}

// FoodInput 定义自定义食物字段，宏量按每份填写
type FoodInput struct {
	Name        string
	Brand       string
	ServingSize string
	Calories    int
	ProteinG    decimal.Decimal
	CarbsG      decimal.Decimal
	FatG        decimal.Decimal
	FiberG      decimal.NullDecimal
	SugarG      decimal.NullDecimal
	SodiumMg    decimal.NullDecimal
}

// MealInput 定义创建餐的字段
type MealInput struct {
	Date     time.Time
	MealType string
	Notes    string
	Items    []MealItemInput
}

// MealItemInput 定义餐品字段，Custom* 非空时覆盖食物数值
type MealItemInput struct {
	FoodID         uint
	Quantity       decimal.Decimal
	CustomCalories *int
	CustomProteinG decimal.NullDecimal
	CustomCarbsG   decimal.NullDecimal
	CustomFatG     decimal.NullDecimal
}

// MealDetail 是带合计的餐
type MealDetail struct {
	Meal   db.Meal
	Totals MacroTotals
}

// NewNutritionService 构造 NutritionService
func NewNutritionService(gdb *gorm.DB, trigger ActivityTrigger) *NutritionService {
	return &NutritionService{db: gdb, trigger: triggerOrNoop(trigger)}
}

// SearchFoods 按名称或品牌模糊搜索系统食物与用户自定义食物
func (s *NutritionService) SearchFoods(userID uint, keyword string, limit int) ([]db.Food, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := s.db.Model(&db.Food{}).Where("created_by IS NULL OR created_by = ?", userID)
	if keyword = strings.TrimSpace(keyword); keyword != "" {
		like := fmt.Sprintf("%%%s%%", keyword)
		query = query.Where("name LIKE ? OR brand LIKE ?", like, like)
	}

	var foods []db.Food
	if err := query.Order("name ASC, id ASC").Limit(limit).Find(&foods).Error; err != nil {
		return nil, fmt.Errorf("search foods: %w", err)
	}
	return foods, nil
}

// CreateFood 新建用户自定义食物
func (s *NutritionService) CreateFood(userID uint, input FoodInput) (*db.Food, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: food name is required", ErrNutritionInvalidInput)
	}
	if input.Calories < 0 || input.ProteinG.IsNegative() || input.CarbsG.IsNegative() || input.FatG.IsNegative() {
		return nil, fmt.Errorf("%w: macros must not be negative", ErrNutritionInvalidInput)
	}

	owner := userID
	food := db.Food{
		Name:        name,
		Brand:       strings.TrimSpace(input.Brand),
		ServingSize: strings.TrimSpace(input.ServingSize),
		Calories:    input.Calories,
		ProteinG:    input.ProteinG,
		CarbsG:      input.CarbsG,
		FatG:        input.FatG,
		FiberG:      input.FiberG,
		SugarG:      input.SugarG,
		SodiumMg:    input.SodiumMg,
		IsCustom:    true,
		CreatedBy:   &owner,
	}
	if food.ServingSize == "" {
		food.ServingSize = "100g"
	}

	if err := s.db.Create(&food).Error; err != nil {
		return nil, fmt.Errorf("create food: %w", err)
	}
	return &food, nil
}

// CreateMeal 新建一餐，可同时写入餐品
func (s *NutritionService) CreateMeal(userID uint, input MealInput) (*MealDetail, error) {
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrNutritionInvalidInput)
	}
	mealType := strings.TrimSpace(strings.ToLower(input.MealType))
	if _, ok := mealTypes[mealType]; !ok {
		return nil, fmt.Errorf("%w: unsupported meal type %s", ErrNutritionInvalidInput, input.MealType)
	}

	items := make([]db.MealItem, 0, len(input.Items))
	for _, itemInput := range input.Items {
		item, err := s.buildItem(userID, itemInput)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	meal := db.Meal{
		UserID:   userID,
		Date:     normalizeToDate(input.Date),
		MealType: mealType,
		Notes:    sanitizeText(input.Notes),
		Items:    items,
	}
	if err := s.db.Create(&meal).Error; err != nil {
		return nil, fmt.Errorf("create meal: %w", err)
	}

	notifyActivity(s.trigger, userID, meal.Date, DomainNutrition)
	return s.GetMeal(userID, meal.ID)
}

// GetMeal 返回餐及其合计
func (s *NutritionService) GetMeal(userID, id uint) (*MealDetail, error) {
	meal, err := s.findMeal(userID, id)
	if err != nil {
		return nil, err
	}
	return &MealDetail{Meal: *meal, Totals: MealMacros(*meal).Rounded()}, nil
}

// DeleteMeal 删除一餐及其全部餐品
func (s *NutritionService) DeleteMeal(userID, id uint) error {
	meal, err := s.findMeal(userID, id)
	if err != nil {
		return err
	}

	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("meal_id = ?", meal.ID).Delete(&db.MealItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&db.Meal{}, meal.ID).Error
	}); err != nil {
		return fmt.Errorf("delete meal: %w", err)
	}

	notifyActivity(s.trigger, userID, meal.Date, DomainNutrition)
	return nil
}

// AddItem 向一餐追加餐品
func (s *NutritionService) AddItem(userID, mealID uint, input MealItemInput) (*MealDetail, error) {
	meal, err := s.findMeal(userID, mealID)
	if err != nil {
		return nil, err
	}

	item, err := s.buildItem(userID, input)
	if err != nil {
		return nil, err
	}
	item.MealID = meal.ID
	if err := s.db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("create meal item: %w", err)
	}

	notifyActivity(s.trigger, userID, meal.Date, DomainNutrition)
	return s.GetMeal(userID, meal.ID)
}

// DeleteItem 删除餐品
func (s *NutritionService) DeleteItem(userID, mealID, itemID uint) error {
	meal, err := s.findMeal(userID, mealID)
	if err != nil {
		return err
	}

	result := s.db.Where("meal_id = ?", meal.ID).Delete(&db.MealItem{}, itemID)
	if result.Error != nil {
		return fmt.Errorf("delete meal item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrMealItemNotFound
	}

	notifyActivity(s.trigger, userID, meal.Date, DomainNutrition)
	return nil
}

func (s *NutritionService) findMeal(userID, id uint) (*db.Meal, error) {
	var meal db.Meal
	if err := s.db.Preload("Items", func(q *gorm.DB) *gorm.DB {
		return q.Order("id ASC")
	}).Preload("Items.Food").
		Where("user_id = ?", userID).
		First(&meal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMealNotFound
		}
		return nil, fmt.Errorf("get meal: %w", err)
	}
	return &meal, nil
}

func (s *NutritionService) buildItem(userID uint, input MealItemInput) (db.MealItem, error) {
	if !input.Quantity.IsPositive() {
		return db.MealItem{}, fmt.Errorf("%w: quantity must be positive", ErrNutritionInvalidInput)
	}
	if input.CustomCalories != nil && *input.CustomCalories < 0 {
		return db.MealItem{}, fmt.Errorf("%w: calories must not be negative", ErrNutritionInvalidInput)
	}
	for _, override := range []decimal.NullDecimal{input.CustomProteinG, input.CustomCarbsG, input.CustomFatG} {
		if override.Valid && override.Decimal.IsNegative() {
			return db.MealItem{}, fmt.Errorf("%w: macros must not be negative", ErrNutritionInvalidInput)
		}
	}

	var count int64
	if err := s.db.Model(&db.Food{}).
		Where("id = ? AND (created_by IS NULL OR created_by = ?)", input.FoodID, userID).
		Count(&count).Error; err != nil {
		return db.MealItem{}, fmt.Errorf("check food: %w", err)
	}
	if count == 0 {
		return db.MealItem{}, ErrFoodNotFound
	}

	return db.MealItem{
		FoodID:         input.FoodID,
		Quantity:       input.Quantity,
		CustomCalories: input.CustomCalories,
		CustomProteinG: input.CustomProteinG,
		CustomCarbsG:   input.CustomCarbsG,
		CustomFatG:     input.CustomFatG,
	}, nil
}
