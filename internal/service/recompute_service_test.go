package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vitalog/internal/db"
)

func TestRecomputeRangeContinuesAfterUserFailure(t *testing.T) {
	gdb := setupServiceTestDB(t)
	alice := createTestUser(t, gdb, "alice")
	broken := createTestUserWithoutProfile(t, gdb, "broken")
	carol := createTestUser(t, gdb, "carol")
	svc := NewRecomputeService(gdb, nil, RecomputeOptions{Workers: 2})

	start := mustDate(t, "2024-10-01")
	end := start.AddDate(0, 0, 2)
	result, err := svc.RecomputeRange(context.Background(), RecomputeRequest{Start: start, End: end})
	if err != nil {
		t.Fatalf("RecomputeRange returned error: %v", err)
	}

	report := result.Report
	if report == nil || result.Job != nil {
		t.Fatalf("sync recompute should return a report: %+v", result)
	}
	if report.UsersProcessed != 3 || report.UsersSucceeded != 2 {
		t.Fatalf("unexpected user counts: %+v", report)
	}
	if report.Days != 3 || report.SummariesWritten != 6 {
		t.Fatalf("unexpected summary counts: %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].UserID != broken.ID {
		t.Fatalf("unexpected failures: %+v", report.Failures)
	}
	if report.Failures[0].Date != "2024-10-01" {
		t.Fatalf("failure should record the first failing date, got %s", report.Failures[0].Date)
	}

	for _, user := range []db.User{alice, carol} {
		var count int64
		if err := gdb.Model(&db.DailySummary{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
			t.Fatalf("count summaries: %v", err)
		}
		if count != 3 {
			t.Fatalf("expected 3 summaries for %s, got %d", user.Username, count)
		}
	}
}

func TestRecomputeRangeValidation(t *testing.T) {
	gdb := setupServiceTestDB(t)
	createTestUser(t, gdb, "solo")
	svc := NewRecomputeService(gdb, nil, RecomputeOptions{MaxRangeDays: 10})
	start := mustDate(t, "2024-10-05")

	if _, err := svc.RecomputeRange(context.Background(), RecomputeRequest{Start: start, End: start.AddDate(0, 0, -1)}); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if _, err := svc.RecomputeRange(context.Background(), RecomputeRequest{Start: start, End: start.AddDate(0, 0, 10)}); !errors.Is(err, ErrRangeTooLarge) {
		t.Fatalf("expected ErrRangeTooLarge, got %v", err)
	}

	missing := uint(42)
	if _, err := svc.RecomputeRange(context.Background(), RecomputeRequest{UserID: &missing, Start: start, End: start}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	var jobs int64
	if err := gdb.Model(&db.RecomputeJob{}).Count(&jobs).Error; err != nil {
		t.Fatalf("count jobs: %v", err)
	}
	if jobs != 0 {
		t.Fatalf("rejected requests must not create jobs, got %d", jobs)
	}
}

func TestRecomputeJobLifecycle(t *testing.T) {
	gdb := setupServiceTestDB(t)
	createTestUser(t, gdb, "alice")
	createTestUserWithoutProfile(t, gdb, "broken")
	svc := NewRecomputeService(gdb, nil, RecomputeOptions{})
	day := mustDate(t, "2024-10-08")

	result, err := svc.RecomputeRange(context.Background(), RecomputeRequest{Start: day, End: day, Async: true})
	if err != nil {
		t.Fatalf("RecomputeRange returned error: %v", err)
	}
	job := result.Job
	if job == nil || job.ID == "" || job.Status != db.RecomputeJobPending {
		t.Fatalf("async recompute should return a pending job: %+v", result)
	}

	svc.RunJob(context.Background(), job.ID)

	finished, err := svc.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if finished.Status != db.RecomputeJobPartial {
		t.Fatalf("expected partial status, got %s (%s)", finished.Status, finished.Error)
	}
	if finished.UsersProcessed != 2 || finished.UsersSucceeded != 1 {
		t.Fatalf("unexpected job counts: %+v", finished)
	}
	if finished.StartedAt == nil || finished.FinishedAt == nil {
		t.Fatalf("job timestamps should be set: %+v", finished)
	}

	failures, err := JobFailures(finished)
	if err != nil {
		t.Fatalf("JobFailures returned error: %v", err)
	}
	if len(failures) != 1 || failures[0].Date != "2024-10-08" {
		t.Fatalf("unexpected failures: %+v", failures)
	}

	// 已完成的任务不会被再次认领
	svc.RunJob(context.Background(), job.ID)
	again, err := svc.GetJob(job.ID)
	if err != nil {
		t.Fatalf("GetJob returned error: %v", err)
	}
	if !again.FinishedAt.Equal(*finished.FinishedAt) {
		t.Fatal("finished job should not run twice")
	}

	if _, err := svc.GetJob("missing"); !errors.Is(err, ErrRecomputeJobNotFound) {
		t.Fatalf("expected ErrRecomputeJobNotFound, got %v", err)
	}
}

func TestRecomputeWorkerRunsQueuedJobs(t *testing.T) {
	gdb := setupServiceTestDB(t)
	user := createTestUser(t, gdb, "queued")
	svc := NewRecomputeService(gdb, nil, RecomputeOptions{PollInterval: 50 * time.Millisecond})
	day := mustDate(t, "2024-10-09")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.Run(ctx)
	}()

	result, err := svc.RecomputeRange(context.Background(), RecomputeRequest{UserID: &user.ID, Start: day, End: day.AddDate(0, 0, 1), Async: true})
	if err != nil {
		cancel()
		t.Fatalf("RecomputeRange returned error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	var job *db.RecomputeJob
	for time.Now().Before(deadline) {
		job, err = svc.GetJob(result.Job.ID)
		if err != nil {
			cancel()
			t.Fatalf("GetJob returned error: %v", err)
		}
		if job.Status == db.RecomputeJobSucceeded {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("worker should stop with context.Canceled, got %v", err)
	}
	if job.Status != db.RecomputeJobSucceeded {
		t.Fatalf("job did not finish in time: %+v", job)
	}

	var count int64
	if err := gdb.Model(&db.DailySummary{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count summaries: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 summaries, got %d", count)
	}
}

func TestNightlyRollup(t *testing.T) {
	gdb := setupServiceTestDB(t)
	createTestUser(t, gdb, "night-owl")
	createTestUser(t, gdb, "early-bird")
	svc := NewRecomputeService(gdb, nil, RecomputeOptions{})

	report, err := svc.NightlyRollup(context.Background(), mustDate(t, "2024-10-10"))
	if err != nil {
		t.Fatalf("NightlyRollup returned error: %v", err)
	}
	if report.UsersSucceeded != 2 || report.SummariesWritten != 2 || len(report.Failures) != 0 {
		t.Fatalf("unexpected nightly report: %+v", report)
	}
}
