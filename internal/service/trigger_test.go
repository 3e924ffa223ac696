package service

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"testing"
	"time"
)

type failingTrigger struct{}

func (failingTrigger) OnActivityWritten(uint, time.Time, Domain) error {
	return errors.New("summary store unavailable")
}

func TestNotifyActivityLogsTriggerFailure(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	gdb := setupServiceTestDB(t)
	user := createTestUser(t, gdb, "noisy")
	svc := NewMeditationService(gdb, failingTrigger{})

	day := mustDate(t, "2024-05-06")
	if _, err := svc.Create(user.ID, MeditationInput{Date: day, StartTime: day.Add(7 * time.Hour), DurationMinutes: 10}); err != nil {
		t.Fatalf("write should succeed even when the trigger fails: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"user=", "date=2024-05-06", "domain=meditation", "summary store unavailable"} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected log to contain %q, got %q", want, output)
		}
	}
}
