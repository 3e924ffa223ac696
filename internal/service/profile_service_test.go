package service

import (
	"errors"
	"testing"
)

func TestProfileServiceGetAndUpdate(t *testing.T) {
	gdb := setupServiceTestDB(t)
	user := createTestUser(t, gdb, "planner")
	svc := NewProfileService(gdb)

	profile, err := svc.Get(user.ID)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if profile.CalorieTarget != 1600 || profile.ProteinTarget != 140 {
		t.Fatalf("unexpected defaults: %+v", profile)
	}

	tz := "Asia/Shanghai"
	updated, err := svc.Update(user.ID, ProfileInput{Timezone: &tz, CalorieTarget: intPtr(2200)})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.CalorieTarget != 2200 || updated.Timezone != tz {
		t.Fatalf("update not applied: %+v", updated)
	}
	if updated.FatTarget != 45 {
		t.Fatalf("untouched target should keep its value, got %d", updated.FatTarget)
	}
}

func TestProfileServiceValidation(t *testing.T) {
	gdb := setupServiceTestDB(t)
	user := createTestUser(t, gdb, "strict")
	svc := NewProfileService(gdb)

	if _, err := svc.Update(user.ID, ProfileInput{ProteinTarget: intPtr(-1)}); !errors.Is(err, ErrProfileInvalidInput) {
		t.Fatalf("expected invalid input for negative target, got %v", err)
	}
	bad := "Mars/Olympus"
	if _, err := svc.Update(user.ID, ProfileInput{Timezone: &bad}); !errors.Is(err, ErrProfileInvalidInput) {
		t.Fatalf("expected invalid input for timezone, got %v", err)
	}
}

func TestProfileServiceCreatesMissingProfile(t *testing.T) {
	gdb := setupServiceTestDB(t)
	user := createTestUserWithoutProfile(t, gdb, "fresh")
	svc := NewProfileService(gdb)

	if _, err := svc.Get(user.ID); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}

	profile, err := svc.Update(user.ID, ProfileInput{MeditationGoalMinutes: intPtr(30)})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if profile.ID == 0 || profile.MeditationGoalMinutes != 30 || profile.CalorieTarget != 1600 {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}
