package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/vitalog/internal/db"
	"github.com/vitalog/internal/service"
)

type recomputePayload struct {
	UserID *uint  `json:"user_id"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Async  bool   `json:"async"`
}

// TriggerRecompute 批量重算指定区间的汇总；async=true 时只登记任务交给后台 worker
func (a *API) TriggerRecompute(c *gin.Context) {
	var payload recomputePayload
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	start, ok := parseDateValue(payload.Start)
	if !ok {
		respondError(c, http.StatusBadRequest, "请提供有效的开始日期 (YYYY-MM-DD)")
		return
	}
	end, ok := parseDateValue(payload.End)
	if !ok {
		respondError(c, http.StatusBadRequest, "请提供有效的结束日期 (YYYY-MM-DD)")
		return
	}

	result, err := a.recompute.RecomputeRange(c.Request.Context(), service.RecomputeRequest{
		UserID: payload.UserID,
		Start:  start,
		End:    end,
		Async:  payload.Async,
	})
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if result.Job != nil {
		c.JSON(http.StatusAccepted, gin.H{"job": recomputeJobToPayload(*result.Job)})
		return
	}

	c.JSON(http.StatusOK, recomputeReportToPayload(*result.Report))
}

// GetRecomputeJob 查询后台重算任务状态
func (a *API) GetRecomputeJob(c *gin.Context) {
	job, err := a.recompute.GetJob(c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"job": recomputeJobToPayload(*job)})
}

func recomputeReportToPayload(report service.RecomputeReport) gin.H {
	failures := report.Failures
	if failures == nil {
		failures = []service.RecomputeFailure{}
	}
	return gin.H{
		"start":             formatDate(report.Start),
		"end":               formatDate(report.End),
		"days":              report.Days,
		"users_processed":   report.UsersProcessed,
		"users_succeeded":   report.UsersSucceeded,
		"summaries_written": report.SummariesWritten,
		"failures":          failures,
	}
}

func recomputeJobToPayload(job db.RecomputeJob) gin.H {
	failures, err := service.JobFailures(&job)
	if err != nil {
		log.Printf("[recompute] decode failures of job %s: %v", job.ID, err)
	}
	if failures == nil {
		failures = []service.RecomputeFailure{}
	}

	item := gin.H{
		"id":              job.ID,
		"user_id":         job.UserID,
		"start":           formatDate(job.StartDate),
		"end":             formatDate(job.EndDate),
		"status":          job.Status,
		"users_processed": job.UsersProcessed,
		"users_succeeded": job.UsersSucceeded,
		"failures":        failures,
		"error":           job.Error,
		"created_at":      job.CreatedAt,
	}
	if job.StartedAt != nil {
		item["started_at"] = *job.StartedAt
	}
	if job.FinishedAt != nil {
		item["finished_at"] = *job.FinishedAt
	}
	return item
}
