package db

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
	MealTypeSnack     = "snack"
)

// Food 是食物库条目，宏量营养素按每份计算
type Food struct {
	ID          uint                `gorm:"primaryKey"`
	Name        string              `gorm:"size:100;not null;index"`
	Brand       string              `gorm:"size:50"`
	ServingSize string              `gorm:"size:50;default:100g"`
	Calories    int                 `gorm:"not null"`
	ProteinG    decimal.Decimal     `gorm:"type:decimal(6,2);not null"`
	CarbsG      decimal.Decimal     `gorm:"type:decimal(6,2);not null"`
	FatG        decimal.Decimal     `gorm:"type:decimal(6,2);not null"`
	FiberG      decimal.NullDecimal `gorm:"type:decimal(6,2)"`
	SugarG      decimal.NullDecimal `gorm:"type:decimal(6,2)"`
	SodiumMg    decimal.NullDecimal `gorm:"type:decimal(8,2)"`
	IsCustom    bool
	CreatedBy   *uint `gorm:"index"`
	CreatedAt   time.Time
}

// TableName 指定自定义表名
func (Food) TableName() string {
	return "foods"
}

// Meal 是一餐的容器
type Meal struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;index:idx_meal_user_date,priority:1"`
	Date      time.Time `gorm:"not null;index:idx_meal_user_date,priority:2"`
	MealType  string    `gorm:"size:20;not null"`
	Notes     string
	Items     []MealItem `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 指定自定义表名
func (Meal) TableName() string {
	return "meals"
}

// MealItem 引用食物并记录份数，Custom* 字段非空时覆盖对应的食物数值
type MealItem struct {
	ID             uint            `gorm:"primaryKey"`
	MealID         uint            `gorm:"not null;index"`
	FoodID         uint            `gorm:"not null;index"`
	Food           Food            `gorm:"constraint:OnDelete:CASCADE"`
	Quantity       decimal.Decimal `gorm:"type:decimal(8,2);not null"`
	CustomCalories *int
	CustomProteinG decimal.NullDecimal `gorm:"type:decimal(6,2)"`
	CustomCarbsG   decimal.NullDecimal `gorm:"type:decimal(6,2)"`
	CustomFatG     decimal.NullDecimal `gorm:"type:decimal(6,2)"`
	CreatedAt      time.Time
}

// TableName 指定自定义表名
func (MealItem) TableName() string {
	return "meal_items"
}
