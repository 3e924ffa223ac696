package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
)

type habitPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type habitCheckPayload struct {
	Date      string `json:"date"`
	Completed *bool  `json:"completed"`
	Notes     string `json:"notes"`
}

// ListHabits 返回当前用户的习惯列表
func (a *API) ListHabits(c *gin.Context) {
	filter := service.HabitFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}

	habits, err := a.habits.List(currentUserID(c), filter)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	items := make([]gin.H, 0, len(habits))
	for _, habit := range habits {
		items = append(items, habitToPayload(habit))
	}

	c.JSON(http.StatusOK, gin.H{"habits": items})
}

// GetHabit 返回单个习惯详情
func (a *API) GetHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.habits.Get(currentUserID(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var payload habitPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Create(currentUserID(c), payload.input())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"habit": habitToPayload(*habit)})
}

// UpdateHabit 更新习惯
func (a *API) UpdateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload habitPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	habit, err := a.habits.Update(currentUserID(c), id, payload.input())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// DeactivateHabit 停用习惯，历史打卡保留
func (a *API) DeactivateHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	habit, err := a.habits.Deactivate(currentUserID(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"habit": habitToPayload(*habit)})
}

// CheckHabit 幂等打卡，同一天重复提交覆盖原记录
func (a *API) CheckHabit(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	var payload habitCheckPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	date := a.today()
	if strings.TrimSpace(payload.Date) != "" {
		parsed, ok := parseDateValue(payload.Date)
		if !ok {
			respondError(c, http.StatusBadRequest, "无效的打卡日期")
			return
		}
		date = parsed
	}

	completed := true
	if payload.Completed != nil {
		completed = *payload.Completed
	}

	check, err := a.habitChecks.Upsert(currentUserID(c), service.HabitCheckInput{
		HabitID:   id,
		Date:      date,
		Completed: completed,
		Notes:     payload.Notes,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"check": habitCheckToPayload(*check)})
}

// DeleteHabitCheck 删除打卡记录
func (a *API) DeleteHabitCheck(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}
	checkID, err := parseUintParam(c, "checkId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的打卡ID")
		return
	}

	if err := a.habitChecks.Delete(currentUserID(c), id, checkID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetHabitStats 返回区间内的完成情况与连续天数
func (a *API) GetHabitStats(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的习惯ID")
		return
	}

	start, end, ok := parseRangeQuery(c)
	if !ok {
		return
	}

	stats, err := a.habitChecks.Stats(currentUserID(c), id, start, end)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"start":           formatDate(stats.RangeStart),
		"end":             formatDate(stats.RangeEnd),
		"completed_count": stats.CompletedCount,
		"total_days":      stats.TotalDays,
		"completion_rate": stats.CompletionRate,
		"current_streak":  stats.CurrentStreak,
		"longest_streak":  stats.LongestStreak,
	})
}

func (p habitPayload) input() service.HabitInput {
	return service.HabitInput{
		Name:        p.Name,
		Description: p.Description,
		Status:      p.Status,
	}
}

func habitToPayload(habit db.Habit) gin.H {
	return gin.H{
		"id":          habit.ID,
		"name":        habit.Name,
		"description": habit.Description,
		"status":      habit.Status,
		"created_at":  habit.CreatedAt,
	}
}

func habitCheckToPayload(check db.HabitCheck) gin.H {
	return gin.H{
		"id":        check.ID,
		"habit_id":  check.HabitID,
		"date":      formatDate(check.Date),
		"completed": check.Completed,
		"notes":     check.Notes,
	}
}
