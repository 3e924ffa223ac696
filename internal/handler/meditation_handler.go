package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
)

type meditationPayload struct {
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Style           string `json:"style"`
	CustomStyle     string `json:"custom_style"`
	PreMood         *int   `json:"pre_mood"`
	PostMood        *int   `json:"post_mood"`
	Notes           string `json:"notes"`
}

// CreateMeditation 记录一次冥想
func (a *API) CreateMeditation(c *gin.Context) {
	var payload meditationPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	date := a.today()
	if payload.Date != "" {
		parsed, ok := parseDateValue(payload.Date)
		if !ok {
			respondError(c, http.StatusBadRequest, "无效的冥想日期")
			return
		}
		date = parsed
	}
	start, ok := parseTimeValue(payload.StartTime)
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的开始时间")
		return
	}

	record, err := a.meditations.Create(currentUserID(c), service.MeditationInput{
		Date:            date,
		StartTime:       start,
		DurationMinutes: payload.DurationMinutes,
		Style:           payload.Style,
		CustomStyle:     payload.CustomStyle,
		PreMood:         payload.PreMood,
		PostMood:        payload.PostMood,
		Notes:           payload.Notes,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"meditation": meditationToPayload(*record)})
}

// DeleteMeditation 删除冥想记录
func (a *API) DeleteMeditation(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的冥想ID")
		return
	}

	if err := a.meditations.Delete(currentUserID(c), id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetMeditationWeekly 返回从 start 起 7 天的冥想统计，缺省为今天往前 6 天
func (a *API) GetMeditationWeekly(c *gin.Context) {
	start := a.today().AddDate(0, 0, -6)
	if raw := c.Query("start"); raw != "" {
		parsed, ok := parseDateValue(raw)
		if !ok {
			respondError(c, http.StatusBadRequest, "请提供有效的开始日期 (YYYY-MM-DD)")
			return
		}
		start = parsed
	}

	summary, err := a.meditations.WeeklySummary(currentUserID(c), start)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"start":         formatDate(summary.Start),
		"end":           formatDate(summary.End),
		"total_minutes": summary.TotalMinutes,
		"sessions":      summary.Sessions,
		"goal_minutes":  summary.GoalMinutes,
		"goal_achieved": summary.GoalAchieved,
		"average_daily": summary.AverageDaily,
	})
}

func meditationToPayload(record db.MeditationLog) gin.H {
	return gin.H{
		"id":               record.ID,
		"date":             formatDate(record.Date),
		"start_time":       record.StartTime,
		"duration_minutes": record.DurationMinutes,
		"style":            record.Style,
		"custom_style":     record.CustomStyle,
		"pre_mood":         record.PreMood,
		"post_mood":        record.PostMood,
		"notes":            record.Notes,
	}
}
