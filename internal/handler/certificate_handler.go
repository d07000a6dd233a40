package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/microcourses/lms-api/internal/service"
	appErrors "github.com/microcourses/lms-api/pkg/errors"
	"github.com/microcourses/lms-api/pkg/response"
)

// CertificateHandler exposes certificate issuance and download endpoints.
type CertificateHandler struct {
	service *service.CertificateService
}

// NewCertificateHandler creates a new handler.
func NewCertificateHandler(svc *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// Issue godoc
// @Summary Issue a certificate
// @Description Issue a completion certificate for a finished course
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param Idempotency-Key header string true "Idempotency key"
// @Param courseId path string true "Course ID"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificate/{courseId} [post]
func (h *CertificateHandler) Issue(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	certificate, err := h.service.Issue(c.Request.Context(), claims, c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, certificate)
}

// List godoc
// @Summary My certificates
// @Description List certificates earned by the authenticated user
// @Tags Certificates
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /certificates [get]
func (h *CertificateHandler) List(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	page, limit := pageParams(c)

	certificates, pagination, err := h.service.List(c.Request.Context(), claims, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, certificates, pagination)
}

// Download godoc
// @Summary Download certificate PDF
// @Description Stream the rendered PDF for an owned certificate
// @Tags Certificates
// @Produce application/pdf
// @Security BearerAuth
// @Param id path string true "Certificate ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/{id}/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id := c.Param("id")
	pdf, err := h.service.RenderPDF(c.Request.Context(), claims, id)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=certificate-%s.pdf", id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
