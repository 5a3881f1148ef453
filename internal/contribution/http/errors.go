package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/itss-pm/contribution-engine/internal/contribution/domain"
	"github.com/itss-pm/contribution-engine/internal/logging"
)

const (
	codeInvalidConfiguration = "INVALID_CONFIGURATION"
	codeValidation           = "VALIDATION_ERROR"
	codeProjectLocked        = "PROJECT_LOCKED"
	codeNotFound             = "NOT_FOUND"
	codeProjectBusy          = "PROJECT_BUSY"
	codeInternal             = "INTERNAL"
)

func errorBody(message, code string) gin.H {
	return gin.H{"error": message, "code": code}
}

// writeError maps a service error to a status code and error code.
func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidConfiguration):
		c.JSON(http.StatusUnprocessableEntity, errorBody(err.Error(), codeInvalidConfiguration))
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, errorBody(err.Error(), codeValidation))
	case errors.Is(err, domain.ErrProjectLocked):
		c.JSON(http.StatusConflict, errorBody(err.Error(), codeProjectLocked))
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody(err.Error(), codeNotFound))
	case errors.Is(err, domain.ErrProjectBusy):
		c.JSON(http.StatusServiceUnavailable, errorBody(err.Error(), codeProjectBusy))
	default:
		logging.New(c.Request.Context()).Error(op, err)
		msg := "internal server error"
		if errors.Is(err, domain.ErrSignalsUnavailable) {
			msg = domain.ErrSignalsUnavailable.Error()
		}
		c.JSON(http.StatusInternalServerError, errorBody(msg, codeInternal))
	}
}

// writeBindError reports a malformed or invalid request body.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, errorBody("invalid request body", codeValidation))
		return
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	c.JSON(http.StatusBadRequest, errorBody(strings.Join(msgs, "; "), codeValidation))
}

func fieldMessage(fe validator.FieldError) string {
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	for i, r := range s {
		return string(unicode.ToLower(r)) + s[i+len(string(r)):]
	}
	return s
}

// int64Param parses a positive integer path parameter.
func int64Param(c *gin.Context, name string) (int64, bool) {
	return parseID(c, name, c.Param(name))
}

func parseID(c *gin.Context, name, raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorBody(name+" must be a positive integer", codeValidation))
		return 0, false
	}
	return id, true
}

// scoreIDParam reads the score id path parameter. Score ids are UUIDs, so
// anything else cannot name a stored score and is reported as not found.
func scoreIDParam(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, errorBody(domain.ErrScoreNotFound.Error(), codeNotFound))
		return "", false
	}
	return id, true
}
