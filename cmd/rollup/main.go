package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/vitalog/internal/config"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:           "rollup",
	Short:         "rollup rebuilds vitalog daily summaries",
	Long:          "rollup recomputes per-user daily summaries from habits, meditation, workouts and meals, either inline or as a job for the server worker.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides DATABASE_PATH)")
}

// withRecompute 打开数据库并构造 RecomputeService，结束后关闭连接
func withRecompute(run func(*service.RecomputeService) error) error {
	cfg := config.Load()
	driver, source := cfg.DatabaseDriver, cfg.DatabaseSource()
	if path := strings.TrimSpace(dbPath); path != "" {
		driver, source = db.DriverSQLite, path
	}

	gdb, err := db.Open(driver, source, logger.Default.LogMode(logger.Warn))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeDB(gdb)

	rollup := service.NewRollupService(gdb)
	return run(service.NewRecomputeService(gdb, rollup, service.RecomputeOptions{
		Workers:      cfg.RollupWorkers,
		PollInterval: cfg.RollupJobPollInterval,
		MaxRangeDays: cfg.RollupMaxRangeDays,
	}))
}

func closeDB(gdb *gorm.DB) {
	if sqlDB, err := gdb.DB(); err == nil {
		sqlDB.Close()
	}
}

func parseDateFlag(name, value string) (time.Time, error) {
	parsed, err := service.ParseDate(value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q (expected YYYY-MM-DD)", name, value)
	}
	return parsed, nil
}

func printReport(cmd *cobra.Command, report *service.RecomputeReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Range: %s .. %s (%d days)\n", report.Start.Format(service.DateLayout), report.End.Format(service.DateLayout), report.Days)
	fmt.Fprintf(out, "Users: %d processed, %d succeeded\n", report.UsersProcessed, report.UsersSucceeded)
	fmt.Fprintf(out, "Summaries written: %d\n", report.SummariesWritten)
	for _, failure := range report.Failures {
		fmt.Fprintf(out, "FAILED user=%d date=%s: %s\n", failure.UserID, failure.Date, failure.Error)
	}
}
