package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vitalog/internal/db"
	"gorm.io/gorm/logger"
)

func seedDatabase(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vitalog.db")
	gdb, err := db.Open(db.DriverSQLite, path, logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("open seed db: %v", err)
	}
	defer closeDB(gdb)

	if err := db.EnsureUser(gdb, "root", "secret"); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return path
}

func runRollup(t *testing.T, args ...string) (string, error) {
	t.Helper()

	recomputeStart, recomputeEnd, recomputeUserID, recomputeAsync = "", "", 0, false
	nightlyDate = ""

	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := runRollup(t, "--help")
	if err != nil {
		t.Fatalf("execute root help: %v", err)
	}
	if !strings.Contains(out, "recompute") || !strings.Contains(out, "nightly") {
		t.Fatalf("expected subcommands in help output, got %q", out)
	}
}

func TestRecomputeCommand(t *testing.T) {
	path := seedDatabase(t)

	out, err := runRollup(t, "--db", path, "recompute", "--start", "2025-01-01", "--end", "2025-01-03")
	if err != nil {
		t.Fatalf("recompute failed: %v", err)
	}
	if !strings.Contains(out, "Summaries written: 3") {
		t.Fatalf("expected 3 summaries written, got %q", out)
	}
	if !strings.Contains(out, "Users: 1 processed, 1 succeeded") {
		t.Fatalf("unexpected users line: %q", out)
	}
}

func TestRecomputeCommandRejectsBadInput(t *testing.T) {
	path := seedDatabase(t)

	tests := []struct {
		name string
		args []string
	}{
		{name: "malformed start", args: []string{"--db", path, "recompute", "--start", "2025-1-1", "--end", "2025-01-03"}},
		{name: "inverted range", args: []string{"--db", path, "recompute", "--start", "2025-01-05", "--end", "2025-01-03"}},
		{name: "unknown user", args: []string{"--db", path, "recompute", "--start", "2025-01-01", "--end", "2025-01-01", "--user-id", "99"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runRollup(t, tt.args...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRecomputeCommandAsyncQueuesJob(t *testing.T) {
	path := seedDatabase(t)

	out, err := runRollup(t, "--db", path, "recompute", "--start", "2025-01-01", "--end", "2025-01-01", "--async")
	if err != nil {
		t.Fatalf("async recompute failed: %v", err)
	}
	if !strings.Contains(out, "Queued job") || !strings.Contains(out, db.RecomputeJobPending) {
		t.Fatalf("expected queued job output, got %q", out)
	}
}

func TestNightlyCommand(t *testing.T) {
	path := seedDatabase(t)

	out, err := runRollup(t, "--db", path, "nightly", "--date", "2025-02-10")
	if err != nil {
		t.Fatalf("nightly failed: %v", err)
	}
	if !strings.Contains(out, "Range: 2025-02-10 .. 2025-02-10 (1 days)") {
		t.Fatalf("unexpected nightly output: %q", out)
	}
}
