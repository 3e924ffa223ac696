package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vitalog/internal/db"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrRecomputeJobNotFound 在重算任务不存在时返回
var ErrRecomputeJobNotFound = errors.New("recompute job not found")

const (
	defaultRecomputeWorkers = 4
	defaultJobPollInterval  = 30 * time.Second
	jobQueueSize            = 64
)

// RecomputeRequest 描述一次批量重算；UserID 为空表示全部用户
type RecomputeRequest struct {
	UserID *uint
	Start  time.Time
	End    time.Time
	Async  bool
}

// RecomputeFailure 记录单个用户重算失败的位置
type RecomputeFailure struct {
	UserID uint   `json:"user_id"`
	Date   string `json:"date"`
	Error  string `json:"error"`
}

// RecomputeReport 是一次同步批量重算的结果
type RecomputeReport struct {
	Start            time.Time
	End              time.Time
	Days             int
	UsersProcessed   int
	UsersSucceeded   int
	SummariesWritten int
	Failures         []RecomputeFailure
}

// RecomputeResult 同步执行时带 Report，异步执行时带 Job
type RecomputeResult struct {
	Report *RecomputeReport
	Job    *db.RecomputeJob
}

// RecomputeOptions 控制并发度、轮询间隔与区间上限
type RecomputeOptions struct {
	Workers      int
	PollInterval time.Duration
	MaxRangeDays int
}

// RecomputeService 负责批量重算，既可同步执行也可交给后台 worker
// 单个用户失败只记录并跳过，不会中断整批任务
type RecomputeService struct {
	db           *gorm.DB
	rollup       *RollupService
	workers      int
	pollInterval time.Duration
	maxRangeDays int
	queue        chan string
}

// NewRecomputeService 构造 RecomputeService
func NewRecomputeService(gdb *gorm.DB, rollup *RollupService, opts RecomputeOptions) *RecomputeService {
	if rollup == nil {
		rollup = NewRollupService(gdb)
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultRecomputeWorkers
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultJobPollInterval
	}
	if opts.MaxRangeDays <= 0 {
		opts.MaxRangeDays = DefaultMaxRangeDays
	}
	return &RecomputeService{
		db:           gdb,
		rollup:       rollup,
		workers:      opts.Workers,
		pollInterval: opts.PollInterval,
		maxRangeDays: opts.MaxRangeDays,
		queue:        make(chan string, jobQueueSize),
	}
}

// RecomputeRange 校验参数后同步执行，或写入待执行任务交给后台 worker
func (s *RecomputeService) RecomputeRange(ctx context.Context, req RecomputeRequest) (*RecomputeResult, error) {
	start, end, _, err := validateRange(req.Start, req.End, s.maxRangeDays)
	if err != nil {
		return nil, err
	}
	if req.UserID != nil {
		if err := s.rollup.ensureUser(*req.UserID); err != nil {
			return nil, err
		}
	}

	if req.Async {
		job, err := s.enqueue(req.UserID, start, end)
		if err != nil {
			return nil, err
		}
		return &RecomputeResult{Job: job}, nil
	}

	userIDs, err := s.resolveUsers(req.UserID)
	if err != nil {
		return nil, err
	}
	report, err := s.execute(ctx, userIDs, start, end)
	if err != nil {
		return nil, err
	}
	return &RecomputeResult{Report: report}, nil
}

// NightlyRollup 为所有用户重算指定日期
func (s *RecomputeService) NightlyRollup(ctx context.Context, date time.Time) (*RecomputeReport, error) {
	date = normalizeToDate(date)
	userIDs, err := s.resolveUsers(nil)
	if err != nil {
		return nil, err
	}

	report, err := s.execute(ctx, userIDs, date, date)
	if err != nil {
		return nil, err
	}
	log.Printf("[recompute] nightly %s: users=%d succeeded=%d failures=%d",
		date.Format(DateLayout), report.UsersProcessed, report.UsersSucceeded, len(report.Failures))
	return report, nil
}

// GetJob 返回任务详情
func (s *RecomputeService) GetJob(id string) (*db.RecomputeJob, error) {
	var job db.RecomputeJob
	if err := s.db.Where("id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecomputeJobNotFound
		}
		return nil, fmt.Errorf("get recompute job: %w", err)
	}
	return &job, nil
}

// JobFailures 解析任务中保存的失败列表
func JobFailures(job *db.RecomputeJob) ([]RecomputeFailure, error) {
	if job == nil || len(job.Failures) == 0 {
		return nil, nil
	}
	var failures []RecomputeFailure
	if err := json.Unmarshal(job.Failures, &failures); err != nil {
		return nil, fmt.Errorf("decode recompute failures: %w", err)
	}
	return failures, nil
}

// Run 启动后台 worker：消费进程内队列，并定期轮询其他进程写入的待执行任务
// ctx 取消时返回
func (s *RecomputeService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	s.runPending(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-s.queue:
			s.RunJob(ctx, id)
		case <-ticker.C:
			s.runPending(ctx)
		}
	}
}

// RunJob 认领并执行一个待执行任务；已被其他 worker 认领的任务直接跳过
func (s *RecomputeService) RunJob(ctx context.Context, id string) {
	now := time.Now()
	result := s.db.Model(&db.RecomputeJob{}).
		Where("id = ? AND status = ?", id, db.RecomputeJobPending).
		Updates(map[string]interface{}{"status": db.RecomputeJobRunning, "started_at": now})
	if result.Error != nil {
		log.Printf("[recompute] claim job %s failed: %v", id, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		return
	}

	job, err := s.GetJob(id)
	if err != nil {
		log.Printf("[recompute] load job %s failed: %v", id, err)
		return
	}

	updates := map[string]interface{}{}
	userIDs, err := s.resolveUsers(job.UserID)
	var report *RecomputeReport
	if err == nil {
		report, err = s.execute(ctx, userIDs, job.StartDate, job.EndDate)
	}

	if err != nil {
		updates["status"] = db.RecomputeJobFailed
		updates["error"] = err.Error()
		log.Printf("[recompute] job %s failed: %v", id, err)
	} else {
		failures, encodeErr := json.Marshal(report.Failures)
		if encodeErr != nil {
			failures = []byte("[]")
		}
		updates["status"] = jobStatus(report)
		updates["users_processed"] = report.UsersProcessed
		updates["users_succeeded"] = report.UsersSucceeded
		updates["failures"] = datatypes.JSON(failures)
		log.Printf("[recompute] job %s finished: status=%s users=%d succeeded=%d",
			id, updates["status"], report.UsersProcessed, report.UsersSucceeded)
	}
	updates["finished_at"] = time.Now()

	if err := s.db.Model(&db.RecomputeJob{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		log.Printf("[recompute] save job %s failed: %v", id, err)
	}
}

func (s *RecomputeService) runPending(ctx context.Context) {
	var ids []string
	if err := s.db.Model(&db.RecomputeJob{}).
		Where("status = ?", db.RecomputeJobPending).
		Order("created_at ASC").
		Pluck("id", &ids).Error; err != nil {
		log.Printf("[recompute] poll pending jobs failed: %v", err)
		return
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		s.RunJob(ctx, id)
	}
}

func (s *RecomputeService) enqueue(userID *uint, start, end time.Time) (*db.RecomputeJob, error) {
	job := db.RecomputeJob{
		ID:        uuid.NewString(),
		UserID:    userID,
		StartDate: start,
		EndDate:   end,
		Status:    db.RecomputeJobPending,
		Failures:  datatypes.JSON("[]"),
	}
	if err := s.db.Create(&job).Error; err != nil {
		return nil, fmt.Errorf("create recompute job: %w", err)
	}

	select {
	case s.queue <- job.ID:
	default:
		// 队列已满时由轮询兜底
	}
	return &job, nil
}

func (s *RecomputeService) resolveUsers(userID *uint) ([]uint, error) {
	if userID != nil {
		return []uint{*userID}, nil
	}

	var ids []uint
	if err := s.db.Model(&db.User{}).Order("id ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

// execute 以有限并发逐个用户重算区间内每一天
// 用户在某一天失败后跳过其剩余日期，继续处理其他用户
func (s *RecomputeService) execute(ctx context.Context, userIDs []uint, start, end time.Time) (*RecomputeReport, error) {
	report := &RecomputeReport{
		Start:          start,
		End:            end,
		Days:           daysBetween(start, end) + 1,
		UsersProcessed: len(userIDs),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, userID := range userIDs {
		g.Go(func() error {
			written := 0
			err := eachDay(start, end, func(day time.Time) error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if _, err := s.rollup.Recalculate(userID, day); err != nil {
					log.Printf("[recompute] user=%d date=%s failed: %v", userID, day.Format(DateLayout), err)
					mu.Lock()
					report.Failures = append(report.Failures, RecomputeFailure{
						UserID: userID,
						Date:   day.Format(DateLayout),
						Error:  err.Error(),
					})
					mu.Unlock()
					return errSkipUser
				}
				written++
				return nil
			})

			mu.Lock()
			defer mu.Unlock()
			report.SummariesWritten += written
			switch {
			case err == nil:
				report.UsersSucceeded++
				return nil
			case errors.Is(err, errSkipUser):
				return nil
			default:
				return err
			}
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recompute range: %w", err)
	}

	sort.Slice(report.Failures, func(i, j int) bool {
		if report.Failures[i].UserID != report.Failures[j].UserID {
			return report.Failures[i].UserID < report.Failures[j].UserID
		}
		return report.Failures[i].Date < report.Failures[j].Date
	})
	return report, nil
}

var errSkipUser = errors.New("skip user")

func jobStatus(report *RecomputeReport) string {
	switch {
	case len(report.Failures) == 0:
		return db.RecomputeJobSucceeded
	case report.UsersSucceeded == 0:
		return db.RecomputeJobFailed
	default:
		return db.RecomputeJobPartial
	}
}
