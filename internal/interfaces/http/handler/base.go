// Package handler holds the gin handlers of the HTTP API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	campaignapp "github.com/leadflow/backend/internal/application/campaign"
	leadapp "github.com/leadflow/backend/internal/application/lead"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/infrastructure/logger"
	"github.com/leadflow/backend/internal/interfaces/http/dto"
	"github.com/leadflow/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts an error into an HTTP response. Domain errors map
// through the error code table. A quota rejection also carries the usage
// snapshot as data, and a rejected lead file its row errors.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var quotaErr *campaignapp.QuotaExceededError
	if errors.As(err, &quotaErr) {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeUsageLimitExceeded, "Monthly usage limit exceeded", requestID)
		resp.Data = quotaErr.Usage
		c.JSON(http.StatusForbidden, resp)
		return
	}

	var rejected *leadapp.RejectedFileError
	if errors.As(err, &rejected) {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidLeadFile, "Lead file contains no valid lead", requestID)
		resp.Data = rejected
		c.JSON(http.StatusBadRequest, resp)
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status >= http.StatusInternalServerError {
			logger.L(c.Request.Context()).Error("Request failed",
				zap.String("code", code),
				zap.Error(err),
			)
		}
		c.JSON(status, dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	logger.L(c.Request.Context()).Error("Unexpected error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}

// userID returns the session user or writes 401 and returns false
func (h *BaseHandler) userID(c *gin.Context) (string, bool) {
	id := middleware.GetJWTUserID(c)
	if id == "" {
		h.Unauthorized(c, "Authentication required")
		return "", false
	}
	return id, true
}
