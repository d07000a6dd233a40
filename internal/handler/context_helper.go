package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/microcourses/lms-api/internal/middleware"
	"github.com/microcourses/lms-api/internal/models"
)

// currentClaims extracts the authenticated user's claims from the request.
func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claimsValue, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil, false
	}
	claims, ok := claimsValue.(*models.JWTClaims)
	return claims, ok
}

// pageParams reads page/limit query values with the catalog defaults.
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit < 1 {
		limit = 10
	}
	return page, limit
}
