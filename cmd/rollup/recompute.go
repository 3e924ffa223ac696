package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vitalog/internal/service"
)

var (
	recomputeStart  string
	recomputeEnd    string
	recomputeUserID uint
	recomputeAsync  bool
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Recompute daily summaries for a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, err := parseDateFlag("start", recomputeStart)
		if err != nil {
			return err
		}
		end, err := parseDateFlag("end", recomputeEnd)
		if err != nil {
			return err
		}

		req := service.RecomputeRequest{Start: start, End: end, Async: recomputeAsync}
		if recomputeUserID != 0 {
			userID := recomputeUserID
			req.UserID = &userID
		}

		return withRecompute(func(svc *service.RecomputeService) error {
			result, err := svc.RecomputeRange(cmd.Context(), req)
			if err != nil {
				return err
			}
			if result.Job != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %s (%s)\n", result.Job.ID, result.Job.Status)
				return nil
			}
			printReport(cmd, result.Report)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(recomputeCmd)
	recomputeCmd.Flags().StringVar(&recomputeStart, "start", "", "Start date YYYY-MM-DD (inclusive)")
	recomputeCmd.Flags().StringVar(&recomputeEnd, "end", "", "End date YYYY-MM-DD (inclusive)")
	recomputeCmd.Flags().UintVar(&recomputeUserID, "user-id", 0, "Only recompute this user (default all users)")
	recomputeCmd.Flags().BoolVar(&recomputeAsync, "async", false, "Queue a job for the server worker instead of running inline")
	_ = recomputeCmd.MarkFlagRequired("start")
	_ = recomputeCmd.MarkFlagRequired("end")
}
