package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/vitalog/internal/config"
	"github.com/vitalog/internal/service"
)

var nightlyDate string

var nightlyCmd = &cobra.Command{
	Use:   "nightly",
	Short: "Recompute every user's summary for one day (default yesterday)",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := service.Today(time.Now(), config.Load().Location).AddDate(0, 0, -1)
		if nightlyDate != "" {
			parsed, err := parseDateFlag("date", nightlyDate)
			if err != nil {
				return err
			}
			target = parsed
		}

		return withRecompute(func(svc *service.RecomputeService) error {
			report, err := svc.NightlyRollup(cmd.Context(), target)
			if err != nil {
				return err
			}
			printReport(cmd, report)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(nightlyCmd)
	nightlyCmd.Flags().StringVar(&nightlyDate, "date", "", "Date YYYY-MM-DD (default yesterday)")
}
