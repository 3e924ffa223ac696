package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
)

type foodPayload struct {
	Name        string              `json:"name"`
	Brand       string              `json:"brand"`
	ServingSize string              `json:"serving_size"`
	Calories    int                 `json:"calories"`
	ProteinG    decimal.Decimal     `json:"protein_g"`
	CarbsG      decimal.Decimal     `json:"carbs_g"`
	FatG        decimal.Decimal     `json:"fat_g"`
	FiberG      decimal.NullDecimal `json:"fiber_g"`
	SugarG      decimal.NullDecimal `json:"sugar_g"`
	SodiumMg    decimal.NullDecimal `json:"sodium_mg"`
}

type mealItemPayload struct {
	FoodID         uint                `json:"food_id"`
	Quantity       decimal.Decimal     `json:"quantity"`
	CustomCalories *int                `json:"custom_calories"`
	CustomProteinG decimal.NullDecimal `json:"custom_protein_g"`
	CustomCarbsG   decimal.NullDecimal `json:"custom_carbs_g"`
	CustomFatG     decimal.NullDecimal `json:"custom_fat_g"`
}

type mealPayload struct {
	Date     string            `json:"date"`
	MealType string            `json:"meal_type"`
	Notes    string            `json:"notes"`
	Items    []mealItemPayload `json:"items"`
}

// SearchFoods 按关键字搜索食物库
func (a *API) SearchFoods(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "limit 应为数字")
			return
		}
		limit = parsed
	}

	foods, err := a.nutrition.SearchFoods(currentUserID(c), c.Query("q"), limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	items := make([]gin.H, 0, len(foods))
	for _, food := range foods {
		items = append(items, foodToPayload(food))
	}

	c.JSON(http.StatusOK, gin.H{"foods": items})
}

// CreateFood 创建自定义食物
func (a *API) CreateFood(c *gin.Context) {
	var payload foodPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	food, err := a.nutrition.CreateFood(currentUserID(c), service.FoodInput{
		Name:        payload.Name,
		Brand:       payload.Brand,
		ServingSize: payload.ServingSize,
		Calories:    payload.Calories,
		ProteinG:    payload.ProteinG,
		CarbsG:      payload.CarbsG,
		FatG:        payload.FatG,
		FiberG:      payload.FiberG,
		SugarG:      payload.SugarG,
		SodiumMg:    payload.SodiumMg,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"food": foodToPayload(*food)})
}

// CreateMeal 新建一餐
func (a *API) CreateMeal(c *gin.Context) {
	var payload mealPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	date := a.today()
	if payload.Date != "" {
		parsed, ok := parseDateValue(payload.Date)
		if !ok {
			respondError(c, http.StatusBadRequest, "无效的用餐日期")
			return
		}
		date = parsed
	}

	items := make([]service.MealItemInput, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, item.input())
	}

	detail, err := a.nutrition.CreateMeal(currentUserID(c), service.MealInput{
		Date:     date,
		MealType: payload.MealType,
		Notes:    payload.Notes,
		Items:    items,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"meal": mealToPayload(*detail)})
}

// GetMeal 返回餐食详情及合计
func (a *API) GetMeal(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的餐食ID")
		return
	}

	detail, err := a.nutrition.GetMeal(currentUserID(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"meal": mealToPayload(*detail)})
}

// DeleteMeal 删除餐食及其餐品
func (a *API) DeleteMeal(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的餐食ID")
		return
	}

	if err := a.nutrition.DeleteMeal(currentUserID(c), id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// AddMealItem 向餐食追加餐品
func (a *API) AddMealItem(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的餐食ID")
		return
	}

	var payload mealItemPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	detail, err := a.nutrition.AddItem(currentUserID(c), id, payload.input())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"meal": mealToPayload(*detail)})
}

// DeleteMealItem 删除餐品
func (a *API) DeleteMealItem(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的餐食ID")
		return
	}
	itemID, err := parseUintParam(c, "itemId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的餐品ID")
		return
	}

	if err := a.nutrition.DeleteItem(currentUserID(c), id, itemID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (p mealItemPayload) input() service.MealItemInput {
	return service.MealItemInput{
		FoodID:         p.FoodID,
		Quantity:       p.Quantity,
		CustomCalories: p.CustomCalories,
		CustomProteinG: p.CustomProteinG,
		CustomCarbsG:   p.CustomCarbsG,
		CustomFatG:     p.CustomFatG,
	}
}

func foodToPayload(food db.Food) gin.H {
	return gin.H{
		"id":           food.ID,
		"name":         food.Name,
		"brand":        food.Brand,
		"serving_size": food.ServingSize,
		"calories":     food.Calories,
		"protein_g":    decimalFloat(food.ProteinG),
		"carbs_g":      decimalFloat(food.CarbsG),
		"fat_g":        decimalFloat(food.FatG),
		"fiber_g":      nullDecimalFloat(food.FiberG),
		"sugar_g":      nullDecimalFloat(food.SugarG),
		"sodium_mg":    nullDecimalFloat(food.SodiumMg),
		"is_custom":    food.IsCustom,
	}
}

func macrosToPayload(totals service.MacroTotals) gin.H {
	totals = totals.Rounded()
	return gin.H{
		"calories":  totals.Calories,
		"protein_g": decimalFloat(totals.ProteinG),
		"carbs_g":   decimalFloat(totals.CarbsG),
		"fat_g":     decimalFloat(totals.FatG),
	}
}

func mealToPayload(detail service.MealDetail) gin.H {
	items := make([]gin.H, 0, len(detail.Meal.Items))
	for _, item := range detail.Meal.Items {
		items = append(items, gin.H{
			"id":        item.ID,
			"food_id":   item.FoodID,
			"food_name": item.Food.Name,
			"quantity":  decimalFloat(item.Quantity),
			"macros":    macrosToPayload(service.ItemMacros(item)),
		})
	}

	return gin.H{
		"id":        detail.Meal.ID,
		"date":      formatDate(detail.Meal.Date),
		"meal_type": detail.Meal.MealType,
		"notes":     detail.Meal.Notes,
		"items":     items,
		"totals":    macrosToPayload(detail.Totals),
	}
}
