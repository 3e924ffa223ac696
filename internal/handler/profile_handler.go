package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
)

type profilePayload struct {
	Timezone              *string `json:"timezone"`
	Units                 *string `json:"units"`
	CalorieTarget         *int    `json:"calorie_target"`
	ProteinTarget         *int    `json:"protein_target"`
	CarbsTarget           *int    `json:"carbs_target"`
	FatTarget             *int    `json:"fat_target"`
	MeditationGoalMinutes *int    `json:"meditation_goal_minutes"`
}

// GetProfile 返回当前用户的目标设置
func (a *API) GetProfile(c *gin.Context) {
	profile, err := a.profiles.Get(currentUserID(c))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profileToPayload(*profile)})
}

// UpdateProfile 局部更新目标设置，新目标在下一次重算时生效
func (a *API) UpdateProfile(c *gin.Context) {
	var payload profilePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	profile, err := a.profiles.Update(currentUserID(c), service.ProfileInput{
		Timezone:              payload.Timezone,
		Units:                 payload.Units,
		CalorieTarget:         payload.CalorieTarget,
		ProteinTarget:         payload.ProteinTarget,
		CarbsTarget:           payload.CarbsTarget,
		FatTarget:             payload.FatTarget,
		MeditationGoalMinutes: payload.MeditationGoalMinutes,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"profile": profileToPayload(*profile)})
}

func profileToPayload(profile db.Profile) gin.H {
	return gin.H{
		"timezone":                profile.Timezone,
		"units":                   profile.Units,
		"calorie_target":          profile.CalorieTarget,
		"protein_target":          profile.ProteinTarget,
		"carbs_target":            profile.CarbsTarget,
		"fat_target":              profile.FatTarget,
		"meditation_goal_minutes": profile.MeditationGoalMinutes,
	}
}
