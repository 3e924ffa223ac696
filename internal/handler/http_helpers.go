package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/service"
)

const userIDContextKey = "user_id"

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseDateValue(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	date, err := service.ParseDate(raw)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// parseTimeValue 解析 RFC3339 时间，空字符串返回零值
func parseTimeValue(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseRangeQuery 读取 start/end 查询参数，缺失或格式错误时直接写出 400
func parseRangeQuery(c *gin.Context) (time.Time, time.Time, bool) {
	start, ok := parseDateValue(c.Query("start"))
	if !ok {
		respondError(c, http.StatusBadRequest, "请提供有效的开始日期 (YYYY-MM-DD)")
		return time.Time{}, time.Time{}, false
	}
	end, ok := parseDateValue(c.Query("end"))
	if !ok {
		respondError(c, http.StatusBadRequest, "请提供有效的结束日期 (YYYY-MM-DD)")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint(userIDContextKey)
}

func formatDate(t time.Time) string {
	return t.Format(service.DateLayout)
}

func decimalFloat(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func nullDecimalFloat(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	value := d.Decimal.InexactFloat64()
	return &value
}

// handleServiceError 把服务层哨兵错误映射为 HTTP 状态码
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRange):
		respondError(c, http.StatusBadRequest, "开始日期不能晚于结束日期")
	case errors.Is(err, service.ErrRangeTooLarge):
		respondError(c, http.StatusBadRequest, "日期区间过长")
	case errors.Is(err, service.ErrUserNotFound):
		respondError(c, http.StatusNotFound, "用户不存在")
	case errors.Is(err, service.ErrProfileNotFound):
		respondError(c, http.StatusNotFound, "尚未设置个人目标")
	case errors.Is(err, service.ErrHabitNotFound):
		respondError(c, http.StatusNotFound, "习惯不存在")
	case errors.Is(err, service.ErrHabitCheckNotFound):
		respondError(c, http.StatusNotFound, "打卡记录不存在")
	case errors.Is(err, service.ErrHabitDuplicateName):
		respondError(c, http.StatusConflict, "习惯名称已存在")
	case errors.Is(err, service.ErrMeditationNotFound):
		respondError(c, http.StatusNotFound, "冥想记录不存在")
	case errors.Is(err, service.ErrMeditationOverlap):
		respondError(c, http.StatusConflict, "与已有冥想时间段重叠")
	case errors.Is(err, service.ErrExerciseNotFound):
		respondError(c, http.StatusNotFound, "动作不存在")
	case errors.Is(err, service.ErrWorkoutNotFound):
		respondError(c, http.StatusNotFound, "训练不存在")
	case errors.Is(err, service.ErrWorkoutSetNotFound):
		respondError(c, http.StatusNotFound, "训练组不存在")
	case errors.Is(err, service.ErrWorkoutSetDuplicate):
		respondError(c, http.StatusConflict, "组号已存在")
	case errors.Is(err, service.ErrFoodNotFound):
		respondError(c, http.StatusNotFound, "食物不存在")
	case errors.Is(err, service.ErrMealNotFound):
		respondError(c, http.StatusNotFound, "餐食记录不存在")
	case errors.Is(err, service.ErrMealItemNotFound):
		respondError(c, http.StatusNotFound, "餐品不存在")
	case errors.Is(err, service.ErrRecomputeJobNotFound):
		respondError(c, http.StatusNotFound, "重算任务不存在")
	case errors.Is(err, service.ErrHabitInvalidInput),
		errors.Is(err, service.ErrMeditationInvalidInput),
		errors.Is(err, service.ErrWorkoutInvalidInput),
		errors.Is(err, service.ErrNutritionInvalidInput),
		errors.Is(err, service.ErrProfileInvalidInput):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[handler] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
