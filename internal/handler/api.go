package handler

import (
	"time"

	"github.com/vitalog/internal/service"
	"gorm.io/gorm"
)

// Options 描述构造 API 时的可选参数
type Options struct {
	Location     *time.Location
	MaxRangeDays int
	Recompute    service.RecomputeOptions
	Now          func() time.Time
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db          *gorm.DB
	habits      *service.HabitService
	habitChecks *service.HabitCheckService
	meditations *service.MeditationService
	workouts    *service.WorkoutService
	nutrition   *service.NutritionService
	profiles    *service.ProfileService
	rollup      *service.RollupService
	reports     *service.ReportService
	recompute   *service.RecomputeService
	location    *time.Location
	now         func() time.Time
}

// NewAPI constructs a handler set with shared services.
// 所有领域服务共用同一个 RollupService 作为写入后的重算触发器。
func NewAPI(db *gorm.DB, opts Options) *API {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Recompute.MaxRangeDays <= 0 {
		opts.Recompute.MaxRangeDays = opts.MaxRangeDays
	}

	rollup := service.NewRollupService(db)
	return &API{
		db:          db,
		habits:      service.NewHabitService(db),
		habitChecks: service.NewHabitCheckService(db, rollup),
		meditations: service.NewMeditationService(db, rollup),
		workouts:    service.NewWorkoutService(db, rollup),
		nutrition:   service.NewNutritionService(db, rollup),
		profiles:    service.NewProfileService(db),
		rollup:      rollup,
		reports:     service.NewReportService(db, rollup, opts.MaxRangeDays),
		recompute:   service.NewRecomputeService(db, rollup, opts.Recompute),
		location:    opts.Location,
		now:         opts.Now,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Recompute 返回批量重算服务，供进程启动后台 worker
func (a *API) Recompute() *service.RecomputeService {
	return a.recompute
}

func (a *API) today() time.Time {
	return service.Today(a.now(), a.location)
}
