package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edulink/admin-api/internal/models"
	"github.com/edulink/admin-api/internal/service"
	appErrors "github.com/edulink/admin-api/pkg/errors"
	"github.com/edulink/admin-api/pkg/response"
)

// CourseHandler exposes course catalog and series endpoints.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler constructs CourseHandler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// List godoc
// @Summary List courses
// @Tags Courses
// @Produce json
// @Param instructorId query string false "Filter by instructor"
// @Param series query string false "Filter by series name"
// @Param published query bool false "Filter by published flag"
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CourseHandler) List(c *gin.Context) {
	var filter models.CourseFilter
	filter.InstructorID = c.Query("instructorId")
	filter.SeriesName = c.Query("series")
	filter.Search = c.Query("search")
	if raw := c.Query("published"); raw != "" {
		if published, err := strconv.ParseBool(raw); err == nil {
			filter.Published = &published
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	courses, pagination, err := h.courses.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses, pagination)
}

// Grouped godoc
// @Summary Courses grouped by series
// @Tags Courses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /courses/grouped [get]
func (h *CourseHandler) Grouped(c *gin.Context) {
	groups, warnings, err := h.courses.Grouped(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if len(warnings) > 0 {
		response.JSON(c, http.StatusOK, groups, nil, map[string]interface{}{"seriesWarnings": warnings})
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// Create godoc
// @Summary Create a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param payload body service.CreateCourseRequest true "Course payload"
// @Success 201 {object} response.Envelope
// @Router /courses [post]
func (h *CourseHandler) Create(c *gin.Context) {
	var req service.CreateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, err := h.courses.Create(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}

// Retag godoc
// @Summary Move a course into a series or change its part number
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.RetagCourseRequest true "Series assignment"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/series [put]
func (h *CourseHandler) Retag(c *gin.Context) {
	var req service.RetagCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	course, warning, err := h.courses.Retag(c.Request.Context(), c.Param("id"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	if warning != nil {
		response.JSON(c, http.StatusOK, course, nil, map[string]interface{}{"seriesWarning": warning})
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}

// SetPublished godoc
// @Summary Publish or unpublish a course
// @Tags Courses
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body object true "Published flag"
// @Success 200 {object} response.Envelope
// @Router /courses/{id}/published [put]
func (h *CourseHandler) SetPublished(c *gin.Context) {
	var payload struct {
		Published *bool `json:"published" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "published flag required"))
		return
	}
	course, err := h.courses.SetPublished(c.Request.Context(), c.Param("id"), *payload.Published)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, course, nil)
}
