package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:vitalog-service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(db.DriverSQLite, dsn, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func createTestUser(t *testing.T, gdb *gorm.DB, username string) db.User {
	t.Helper()
	user := db.User{Username: username, Password: "hashed"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	profile := db.DefaultProfile(user.ID)
	if err := gdb.Create(&profile).Error; err != nil {
		t.Fatalf("create profile: %v", err)
	}
	return user
}

func createTestUserWithoutProfile(t *testing.T, gdb *gorm.DB, username string) db.User {
	t.Helper()
	user := db.User{Username: username, Password: "hashed"}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func createTestExercise(t *testing.T, gdb *gorm.DB, name string) db.Exercise {
	t.Helper()
	exercise := db.Exercise{Name: name, Category: db.ExerciseCategoryPush, IsCompound: true}
	if err := gdb.Create(&exercise).Error; err != nil {
		t.Fatalf("create exercise: %v", err)
	}
	return exercise
}

func createTestFood(t *testing.T, gdb *gorm.DB, name string, calories int, protein, carbs, fat string) db.Food {
	t.Helper()
	food := db.Food{
		Name:     name,
		Calories: calories,
		ProteinG: decimal.RequireFromString(protein),
		CarbsG:   decimal.RequireFromString(carbs),
		FatG:     decimal.RequireFromString(fat),
	}
	if err := gdb.Create(&food).Error; err != nil {
		t.Fatalf("create food: %v", err)
	}
	return food
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	date, err := ParseDate(raw)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return date
}

func intPtr(v int) *int {
	return &v
}

func nullDecimal(raw string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(raw))
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("unexpected %s: got %s want %s", name, got, want)
	}
}

type recordingTrigger struct {
	calls []triggerCall
}

type triggerCall struct {
	UserID uint
	Date   time.Time
	Domain Domain
}

func (r *recordingTrigger) OnActivityWritten(userID uint, date time.Time, domain Domain) error {
	r.calls = append(r.calls, triggerCall{UserID: userID, Date: date, Domain: domain})
	return nil
}
