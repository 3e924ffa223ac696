package service

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/db"
)

func TestNutritionServiceMealLifecycle(t *testing.T) {
	gdb := setupServiceTestDB(t)
	user := createTestUser(t, gdb, "cook")
	other := createTestUser(t, gdb, "guest")
	oats := createTestFood(t, gdb, "燕麦", 389, "16.9", "66.3", "6.9")
	trigger := &recordingTrigger{}
	svc := NewNutritionService(gdb, trigger)

	day := mustDate(t, "2024-05-02")
	detail, err := svc.CreateMeal(user.ID, MealInput{Date: day, MealType: "Breakfast", Notes: "<b>早餐</b>"})
	if err != nil {
		t.Fatalf("create meal: %v", err)
	}
	if detail.Meal.MealType != db.MealTypeBreakfast {
		t.Fatalf("meal type should be normalized, got %s", detail.Meal.MealType)
	}
	if detail.Meal.Notes != "早餐" {
		t.Fatalf("notes should be sanitized, got %q", detail.Meal.Notes)
	}

	detail, err = svc.AddItem(user.ID, detail.Meal.ID, MealItemInput{FoodID: oats.ID, Quantity: decimal.RequireFromString("0.5")})
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if detail.Totals.Calories != 194 {
		t.Fatalf("unexpected calories: %d", detail.Totals.Calories)
	}
	assertDecimal(t, "protein", detail.Totals.ProteinG, "8.45")

	if _, err := svc.AddItem(user.ID, detail.Meal.ID, MealItemInput{FoodID: oats.ID}); !errors.Is(err, ErrNutritionInvalidInput) {
		t.Fatalf("expected invalid quantity error, got %v", err)
	}
	if _, err := svc.AddItem(other.ID, detail.Meal.ID, MealItemInput{FoodID: oats.ID, Quantity: decimal.NewFromInt(1)}); !errors.Is(err, ErrMealNotFound) {
		t.Fatalf("expected meal not found for other user, got %v", err)
	}

	itemID := detail.Meal.Items[0].ID
	if err := svc.DeleteItem(user.ID, detail.Meal.ID, itemID); err != nil {
		t.Fatalf("delete item: %v", err)
	}
	if err := svc.DeleteItem(user.ID, detail.Meal.ID, itemID); !errors.Is(err, ErrMealItemNotFound) {
		t.Fatalf("expected item not found, got %v", err)
	}
	if err := svc.DeleteMeal(user.ID, detail.Meal.ID); err != nil {
		t.Fatalf("delete meal: %v", err)
	}

	// 建餐、加餐品、删餐品、删餐
	if len(trigger.calls) != 4 {
		t.Fatalf("expected 4 trigger calls, got %d", len(trigger.calls))
	}
	for _, call := range trigger.calls {
		if call.Domain != DomainNutrition || !call.Date.Equal(day) {
			t.Fatalf("unexpected trigger call: %+v", call)
		}
	}
}

func TestNutritionServiceFoods(t *testing.T) {
	gdb := setupServiceTestDB(t)
	user := createTestUser(t, gdb, "shopper")
	other := createTestUser(t, gdb, "neighbor")
	createTestFood(t, gdb, "Greek Yogurt", 59, "10", "3.6", "0.4")
	svc := NewNutritionService(gdb, nil)

	if _, err := svc.CreateFood(user.ID, FoodInput{Name: "Homemade Yogurt", Calories: 70, ProteinG: decimal.NewFromInt(5)}); err != nil {
		t.Fatalf("create food: %v", err)
	}
	if _, err := svc.CreateFood(user.ID, FoodInput{Name: "Broken", Calories: -1}); !errors.Is(err, ErrNutritionInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	foods, err := svc.SearchFoods(user.ID, "Yogurt", 0)
	if err != nil {
		t.Fatalf("search foods: %v", err)
	}
	if len(foods) != 2 {
		t.Fatalf("expected 2 foods, got %d", len(foods))
	}

	foods, err = svc.SearchFoods(other.ID, "Yogurt", 0)
	if err != nil {
		t.Fatalf("search foods: %v", err)
	}
	if len(foods) != 1 {
		t.Fatalf("custom foods should be private, got %d", len(foods))
	}
}
