package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wtppaul/course-catalog/internal/logger"
	"github.com/wtppaul/course-catalog/internal/models"
	"github.com/wtppaul/course-catalog/internal/repository"
	"github.com/wtppaul/course-catalog/internal/service"
)

type CourseHandler struct {
	courses *service.CourseService
	log     *logger.Logger
}

func NewCourseHandler(courses *service.CourseService, log *logger.Logger) *CourseHandler {
	return &CourseHandler{courses: courses, log: log}
}

// CreateCourse (POST /internal/courses)
// The author defaults to the gateway-authenticated user.
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var input struct {
		Title      string          `json:"title" binding:"required"`
		Price      decimal.Decimal `json:"price"`
		CategoryID *uuid.UUID      `json:"categoryId"`
		AuthorID   *uuid.UUID      `json:"authorId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}

	author := input.AuthorID
	if author == nil {
		if raw, ok := c.Get("authenticatedUserID"); ok {
			if id, err := uuid.Parse(raw.(string)); err == nil {
				author = &id
			}
		}
	}
	if author == nil {
		badRequest(c, "authorId is required")
		return
	}

	course, err := h.courses.CreateCourse(c.Request.Context(), service.CreateCourseInput{
		Title:      input.Title,
		Price:      input.Price,
		CategoryID: input.CategoryID,
		AuthorID:   *author,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

// GetCourses (GET /internal/courses?status=&page=&limit=)
func (h *CourseHandler) GetCourses(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	courses, err := h.courses.ListCourses(c.Request.Context(), repository.ListCoursesFilter{
		Status: models.CourseStatus(c.Query("status")),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

// GetCourseByID (GET /internal/courses/:courseId)
func (h *CourseHandler) GetCourseByID(c *gin.Context) {
	id, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	course, err := h.courses.GetCourse(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// GetCourseBySlug (GET /internal/courses/slug/:slug)
func (h *CourseHandler) GetCourseBySlug(c *gin.Context) {
	course, err := h.courses.GetCourseBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// UpdateCourseStatus (PATCH /internal/courses/:courseId/status)
func (h *CourseHandler) UpdateCourseStatus(c *gin.Context) {
	id, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	var input struct {
		Status models.CourseStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.courses.UpdateCourseStatus(c.Request.Context(), id, input.Status); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated successfully"})
}
