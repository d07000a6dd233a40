package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/microcourses/lms-api/internal/service"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
	"github.com/microcourses/lms-api/pkg/response"
)

// EnrollmentHandler exposes learner enrollment and progress endpoints.
type EnrollmentHandler struct {
	service *service.EnrollmentService
}

// NewEnrollmentHandler creates a new handler.
func NewEnrollmentHandler(svc *service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Enroll godoc
// @Summary Enroll in a course
// @Description Enroll the authenticated learner in a published course
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string true "Idempotency key"
// @Param courseId path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enroll/{courseId} [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), claims, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, enrollment)
}

// UpdateProgress godoc
// @Summary Mark a lesson complete
// @Description Record lesson completion and recompute course progress
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param lessonId path string true "Lesson ID"
// @Param payload body service.UpdateProgressRequest true "Course reference"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /progress/{lessonId} [put]
func (h *EnrollmentHandler) UpdateProgress(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.WithField(appErrors.ErrMissingFields, "courseId"))
		return
	}

	enrollment, err := h.service.UpdateProgress(c.Request.Context(), claims, c.Param("lessonId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollment, nil)
}

// ListProgress godoc
// @Summary My enrollments
// @Description List the authenticated learner's enrollments with progress
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /progress [get]
func (h *EnrollmentHandler) ListProgress(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, limit := pageParams(c)

	enrollments, pagination, err := h.service.ListProgress(c.Request.Context(), claims, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, enrollments, pagination)
}
