package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
)

type exercisePayload struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	IsCompound  bool   `json:"is_compound"`
}

type workoutPayload struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Notes     string `json:"notes"`
}

type workoutSetPayload struct {
	ExerciseID      uint                `json:"exercise_id"`
	SetNumber       int                 `json:"set_number"`
	Reps            *int                `json:"reps"`
	WeightKg        decimal.NullDecimal `json:"weight_kg"`
	DurationSeconds *int                `json:"duration_seconds"`
	DistanceKm      decimal.NullDecimal `json:"distance_km"`
	RPE             *int                `json:"rpe"`
	Notes           string              `json:"notes"`
}

// ListExercises 返回系统动作与当前用户的自定义动作
func (a *API) ListExercises(c *gin.Context) {
	exercises, err := a.workouts.ListExercises(currentUserID(c), c.Query("category"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	items := make([]gin.H, 0, len(exercises))
	for _, exercise := range exercises {
		items = append(items, exerciseToPayload(exercise))
	}

	c.JSON(http.StatusOK, gin.H{"exercises": items})
}

// CreateExercise 创建自定义动作
func (a *API) CreateExercise(c *gin.Context) {
	var payload exercisePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	exercise, err := a.workouts.CreateExercise(currentUserID(c), service.ExerciseInput{
		Name:        payload.Name,
		Category:    payload.Category,
		Description: payload.Description,
		IsCompound:  payload.IsCompound,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"exercise": exerciseToPayload(*exercise)})
}

// CreateWorkout 新建训练
func (a *API) CreateWorkout(c *gin.Context) {
	var payload workoutPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	date := a.today()
	if payload.Date != "" {
		parsed, ok := parseDateValue(payload.Date)
		if !ok {
			respondError(c, http.StatusBadRequest, "无效的训练日期")
			return
		}
		date = parsed
	}
	start, ok := parseTimeValue(payload.StartTime)
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的开始时间")
		return
	}
	end, ok := parseTimeValue(payload.EndTime)
	if !ok {
		respondError(c, http.StatusBadRequest, "无效的结束时间")
		return
	}

	input := service.WorkoutSessionInput{Date: date, StartTime: start, Notes: payload.Notes}
	if !end.IsZero() {
		input.EndTime = &end
	}

	session, err := a.workouts.CreateSession(currentUserID(c), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"workout": workoutToPayload(*session)})
}

// GetWorkout 返回训练详情、全部组与训练量
func (a *API) GetWorkout(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的训练ID")
		return
	}

	session, err := a.workouts.GetSession(currentUserID(c), id)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"workout": workoutToPayload(*session)})
}

// DeleteWorkout 删除训练及其全部组
func (a *API) DeleteWorkout(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的训练ID")
		return
	}

	if err := a.workouts.DeleteSession(currentUserID(c), id); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// AddWorkoutSet 为训练添加一组
func (a *API) AddWorkoutSet(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的训练ID")
		return
	}

	var payload workoutSetPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	set, err := a.workouts.AddSet(currentUserID(c), id, payload.input())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"set": workoutSetToPayload(*set)})
}

// UpdateWorkoutSet 更新训练组
func (a *API) UpdateWorkoutSet(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的训练ID")
		return
	}
	setID, err := parseUintParam(c, "setId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的训练组ID")
		return
	}

	var payload workoutSetPayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	set, err := a.workouts.UpdateSet(currentUserID(c), id, setID, payload.input())
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"set": workoutSetToPayload(*set)})
}

// DeleteWorkoutSet 删除训练组
func (a *API) DeleteWorkoutSet(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的训练ID")
		return
	}
	setID, err := parseUintParam(c, "setId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的训练组ID")
		return
	}

	if err := a.workouts.DeleteSet(currentUserID(c), id, setID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (p workoutSetPayload) input() service.WorkoutSetInput {
	return service.WorkoutSetInput{
		ExerciseID:      p.ExerciseID,
		SetNumber:       p.SetNumber,
		Reps:            p.Reps,
		WeightKg:        p.WeightKg,
		DurationSeconds: p.DurationSeconds,
		DistanceKm:      p.DistanceKm,
		RPE:             p.RPE,
		Notes:           p.Notes,
	}
}

func exerciseToPayload(exercise db.Exercise) gin.H {
	return gin.H{
		"id":          exercise.ID,
		"name":        exercise.Name,
		"category":    exercise.Category,
		"description": exercise.Description,
		"is_compound": exercise.IsCompound,
		"is_custom":   exercise.IsCustom,
	}
}

func workoutToPayload(session db.WorkoutSession) gin.H {
	sets := make([]gin.H, 0, len(session.Sets))
	for _, set := range session.Sets {
		sets = append(sets, workoutSetToPayload(set))
	}

	item := gin.H{
		"id":           session.ID,
		"date":         formatDate(session.Date),
		"start_time":   session.StartTime,
		"notes":        session.Notes,
		"sets":         sets,
		"total_volume": decimalFloat(service.SessionVolume(session.Sets)),
	}
	if session.EndTime != nil {
		item["end_time"] = *session.EndTime
	}
	return item
}

func workoutSetToPayload(set db.WorkoutSet) gin.H {
	item := gin.H{
		"id":               set.ID,
		"session_id":       set.SessionID,
		"exercise_id":      set.ExerciseID,
		"set_number":       set.SetNumber,
		"reps":             set.Reps,
		"weight_kg":        nullDecimalFloat(set.WeightKg),
		"duration_seconds": set.DurationSeconds,
		"distance_km":      nullDecimalFloat(set.DistanceKm),
		"rpe":              set.RPE,
		"notes":            set.Notes,
		"is_pr":            set.IsPR,
	}
	if set.Exercise.ID != 0 {
		item["exercise_name"] = set.Exercise.Name
	}
	return item
}
