package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/service"
)

// GetDashboardToday 返回今日看板
func (a *API) GetDashboardToday(c *gin.Context) {
	dashboard, err := a.reports.DashboardToday(currentUserID(c), a.today())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	habits := make([]gin.H, 0, len(dashboard.Habits))
	for _, habit := range dashboard.Habits {
		habits = append(habits, gin.H{
			"id":        habit.ID,
			"name":      habit.Name,
			"completed": habit.Completed,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": dayViewToPayload(dashboard.Day),
		"habits":  habits,
		"targets": profileToPayload(dashboard.Targets),
	})
}

// GetDaySummary 返回单日汇总，缺失时按需重算
func (a *API) GetDaySummary(c *gin.Context) {
	date, ok := parseDateValue(c.Param("date"))
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的日期 (YYYY-MM-DD)")
		return
	}

	summary, err := a.reports.GetDailySummary(currentUserID(c), date)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dayViewToPayload(service.NewDayView(*summary)))
}

// GetDailySummaries 返回区间内每天的汇总，按日期升序
func (a *API) GetDailySummaries(c *gin.Context) {
	start, end, ok := parseRangeQuery(c)
	if !ok {
		return
	}

	views, err := a.reports.RangeSummaries(currentUserID(c), start, end)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	days := make([]gin.H, 0, len(views))
	for _, view := range views {
		days = append(days, dayViewToPayload(view))
	}

	c.JSON(http.StatusOK, gin.H{
		"start": formatDate(start),
		"end":   formatDate(end),
		"days":  days,
	})
}

// GetPeriodSummary 返回区间聚合统计
func (a *API) GetPeriodSummary(c *gin.Context) {
	start, end, ok := parseRangeQuery(c)
	if !ok {
		return
	}

	stats, err := a.reports.PeriodStatistics(currentUserID(c), start, end)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"start":       formatDate(stats.Start),
		"end":         formatDate(stats.End),
		"days":        stats.Days,
		"stored_days": stats.StoredDays,
		"habits": gin.H{
			"total_completed": stats.HabitsCompleted,
			"average_daily":   stats.HabitsAverageDaily,
		},
		"meditation": gin.H{
			"total_minutes": stats.MeditationMinutes,
			"average_daily": stats.MeditationAverageDaily,
		},
		"workouts": gin.H{
			"total_sessions": stats.WorkoutSessions,
			"total_volume":   decimalFloat(stats.TotalVolumeKg),
			"total_prs":      stats.PRsAchieved,
		},
		"nutrition": gin.H{
			"average_calories":  stats.AverageCalories,
			"average_protein_g": decimalFloat(stats.AverageProteinG),
			"average_carbs_g":   decimalFloat(stats.AverageCarbsG),
			"average_fat_g":     decimalFloat(stats.AverageFatG),
		},
	})
}

func dayViewToPayload(view service.DayView) gin.H {
	return gin.H{
		"date":                formatDate(view.Date),
		"habits_completed":    view.HabitsCompleted,
		"habits_total":        view.HabitsTotal,
		"habits_streak":       view.HabitsStreak,
		"meditation_minutes":  view.MeditationMinutes,
		"meditation_sessions": view.MeditationSessions,
		"workout_sessions":    view.WorkoutSessions,
		"prs_achieved":        view.PRsAchieved,
		"total_volume":        decimalFloat(view.TotalVolumeKg),
		"calories_consumed":   view.CaloriesConsumed,
		"protein_g":           decimalFloat(view.ProteinG),
		"carbs_g":             decimalFloat(view.CarbsG),
		"fat_g":               decimalFloat(view.FatG),
		"calories_remaining":  view.CaloriesRemaining,
		"protein_remaining_g": decimalFloat(view.ProteinRemainingG),
		"carbs_remaining_g":   decimalFloat(view.CarbsRemainingG),
		"fat_remaining_g":     decimalFloat(view.FatRemainingG),
	}
}
