package router

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/handler"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	if sessionSecret == "" {
		sessionSecret = "vitalog-dev-secret"
	}
	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{Path: "/", HttpOnly: true, MaxAge: 7 * 24 * 3600})
	r.Use(sessions.Sessions("vitalog_session", store))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/api")
	{
		public.POST("/login", api.Login)
		public.POST("/logout", api.Logout)
	}

	// 需要登录的用户接口
	authed := r.Group("/api")
	authed.Use(handler.AuthRequired())
	{
		authed.GET("/profile", api.GetProfile)
		authed.PUT("/profile", api.UpdateProfile)

		authed.GET("/habits", api.ListHabits)
		authed.POST("/habits", api.CreateHabit)
		authed.GET("/habits/:id", api.GetHabit)
		authed.PUT("/habits/:id", api.UpdateHabit)
		authed.DELETE("/habits/:id", api.DeactivateHabit)
		authed.POST("/habits/:id/checks", api.CheckHabit)
		authed.DELETE("/habits/:id/checks/:checkId", api.DeleteHabitCheck)
		authed.GET("/habits/:id/stats", api.GetHabitStats)

		authed.POST("/meditations", api.CreateMeditation)
		authed.GET("/meditations/weekly", api.GetMeditationWeekly)
		authed.DELETE("/meditations/:id", api.DeleteMeditation)

		authed.GET("/exercises", api.ListExercises)
		authed.POST("/exercises", api.CreateExercise)
		authed.POST("/workouts", api.CreateWorkout)
		authed.GET("/workouts/:id", api.GetWorkout)
		authed.DELETE("/workouts/:id", api.DeleteWorkout)
		authed.POST("/workouts/:id/sets", api.AddWorkoutSet)
		authed.PUT("/workouts/:id/sets/:setId", api.UpdateWorkoutSet)
		authed.DELETE("/workouts/:id/sets/:setId", api.DeleteWorkoutSet)

		authed.GET("/foods", api.SearchFoods)
		authed.POST("/foods", api.CreateFood)
		authed.POST("/meals", api.CreateMeal)
		authed.GET("/meals/:id", api.GetMeal)
		authed.DELETE("/meals/:id", api.DeleteMeal)
		authed.POST("/meals/:id/items", api.AddMealItem)
		authed.DELETE("/meals/:id/items/:itemId", api.DeleteMealItem)

		reports := authed.Group("/reports")
		{
			reports.GET("/dashboard/today", api.GetDashboardToday)
			reports.GET("/summary/day/:date", api.GetDaySummary)
			reports.GET("/summary/daily", api.GetDailySummaries)
			reports.GET("/summary", api.GetPeriodSummary)
		}
	}

	// 后台管理接口
	admin := r.Group("/admin/api")
	admin.Use(handler.AuthRequired(), api.AdminRequired())
	{
		admin.POST("/recompute", api.TriggerRecompute)
		admin.GET("/recompute/jobs/:id", api.GetRecomputeJob)
	}

	return r
}
