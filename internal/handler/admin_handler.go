package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/microcourses/lms-api/internal/models"
	"github.com/microcourses/lms-api/internal/service"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
	"github.com/microcourses/lms-api/pkg/response"
)

// AdminHandler exposes moderation endpoints for administrators.
type AdminHandler struct {
	courses *service.CourseService
	users   *service.UserService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(courses *service.CourseService, users *service.UserService) *AdminHandler {
	return &AdminHandler{courses: courses, users: users}
}

// ListCourses godoc
// @Summary Courses awaiting review
// @Description List courses by status, pending by default; pass all to list every course
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Course status filter, or all"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/courses [get]
func (h *AdminHandler) ListCourses(c *gin.Context) {
	page, limit := pageParams(c)

	// "all" drops the filter and lists every course.
	status := models.CourseStatus(c.DefaultQuery("status", string(models.CourseStatusPending)))
	if status == "all" {
		status = ""
	}
	if status != "" && !status.Valid() {
		response.Error(c, appErrors.WithField(appErrors.ErrInvalidStatus, "status"))
		return
	}

	courses, pagination, err := h.courses.ListForReview(c.Request.Context(), status, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, courses, pagination)
}

// SetCourseStatus godoc
// @Summary Moderate a course
// @Description Publish or reject a submitted course
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Course ID"
// @Param payload body handler.SetCourseStatusRequest true "Moderation decision"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/courses/{id}/status [put]
func (h *AdminHandler) SetCourseStatus(c *gin.Context) {
	var req SetCourseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WithField(appErrors.ErrInvalidStatus, "status"))
		return
	}

	course, err := h.courses.SetStatus(c.Request.Context(), c.Param("id"), models.CourseStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, course, nil)
}

// SetCourseStatusRequest is the moderation decision payload.
type SetCourseStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListCreatorApplications godoc
// @Summary Pending creator applications
// @Description List creator accounts awaiting approval
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/creator-applications [get]
func (h *AdminHandler) ListCreatorApplications(c *gin.Context) {
	page, limit := pageParams(c)

	users, pagination, err := h.users.ListCreatorApplications(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, pagination)
}

// ApproveCreator godoc
// @Summary Approve a creator
// @Description Mark a creator account as approved to publish courses
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/creator-applications/{id} [put]
func (h *AdminHandler) ApproveCreator(c *gin.Context) {
	user, err := h.users.ApproveCreator(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, user, nil)
}
