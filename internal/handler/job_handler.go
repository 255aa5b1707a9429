package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wtppaul/course-catalog/internal/jobs"
	"github.com/wtppaul/course-catalog/internal/logger"
)

type JobHandler struct {
	runner   *jobs.Runner
	tieBreak jobs.TieBreak
	log      *logger.Logger
}

func NewJobHandler(runner *jobs.Runner, tieBreak jobs.TieBreak, log *logger.Logger) *JobHandler {
	return &JobHandler{runner: runner, tieBreak: tieBreak, log: log}
}

// LinkChapters (POST /internal/jobs/link-chapters)
// The run is synchronous; a report with failures answers 207.
func (h *JobHandler) LinkChapters(c *gin.Context) {
	var input struct {
		CourseID *uuid.UUID `json:"courseId"`
		DryRun   bool       `json:"dryRun"`
		TieBreak string     `json:"tieBreak"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	tieBreak := h.tieBreak
	if input.TieBreak != "" {
		tb, err := jobs.ParseTieBreak(input.TieBreak)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		tieBreak = tb
	}

	report, err := h.runner.LinkChapters(c.Request.Context(), jobs.LinkOptions{
		CourseID: input.CourseID,
		DryRun:   input.DryRun,
		TieBreak: tieBreak,
	})
	h.respondReport(c, report, err)
}

// MigrateAccess (POST /internal/jobs/migrate-access)
func (h *JobHandler) MigrateAccess(c *gin.Context) {
	var input struct {
		DryRun    bool `json:"dryRun"`
		BatchSize int  `json:"batchSize"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			badRequest(c, err.Error())
			return
		}
	}
	report, err := h.runner.MigrateAccess(c.Request.Context(), jobs.MigrateOptions{
		DryRun:    input.DryRun,
		BatchSize: input.BatchSize,
	})
	h.respondReport(c, report, err)
}

// ListRuns (GET /internal/jobs/runs?job=&limit=)
func (h *JobHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.runner.Runs(c.Request.Context(), c.Query("job"), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (h *JobHandler) respondReport(c *gin.Context, report interface{}, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, jobs.ErrItemsFailed), errors.Is(err, jobs.ErrInterrupted):
		c.JSON(http.StatusMultiStatus, gin.H{"error": err.Error(), "report": report})
	default:
		respondError(c, h.log, err)
	}
}
