package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"task-tracker/internal/domain"
)

const internalErrorMessage = "Internal server error"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrPerformerNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError renders err as an ErrorResponse. Only *domain.Error messages
// reach the client; anything else is logged and reported as a 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusOf(err)
	message := err.Error()

	var domainErr *domain.Error
	if status == http.StatusInternalServerError || !errors.As(err, &domainErr) {
		h.logger.WithFields(logrus.Fields{
			"request_id": c.GetString(requestIDKey),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
		}).WithError(err).Error("request failed")
		status = http.StatusInternalServerError
		message = internalErrorMessage
	} else {
		message = domainErr.Message
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Status: status, Message: message})
}

// bindError turns a gin binding failure into a bad request.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return domain.Errorf(domain.ErrBadRequest, "%s is required", fe.Field())
		case "max":
			return domain.Errorf(domain.ErrBadRequest, "%s is too big", fe.Field())
		case "email":
			return domain.Errorf(domain.ErrBadRequest, "%s should be valid", fe.Field())
		}
		return domain.Errorf(domain.ErrBadRequest, "%s is invalid", fe.Field())
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return domain.Errorf(domain.ErrBadRequest, "Request body is required")
	case errors.As(err, &syntaxErr):
		return domain.Errorf(domain.ErrBadRequest, "Malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return domain.Errorf(domain.ErrBadRequest, "Field %s has the wrong type", typeErr.Field)
	}
	return domain.Errorf(domain.ErrBadRequest, "%s", err.Error())
}
