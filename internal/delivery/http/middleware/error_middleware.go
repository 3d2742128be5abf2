package middleware

import (
	"errors"
	"net/http"
	"strings"

	"card-assistant-backend/internal/delivery/http/response"
	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/apperror"
	"card-assistant-backend/pkg/logger"
	"card-assistant-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		appErr := ToAppError(err)
		if appErr.Code >= http.StatusInternalServerError {
			// Never expose internal error details to clients.
			logger.Log.Error("request failed",
				"path", c.FullPath(),
				"status", appErr.Code,
				"request_id", c.GetString(string(domain.KeyRequestID)),
				"error", err,
			)
		}
		response.Failure(c, appErr.Code, appErr.Message, appErr.Fields, appErr.Retryable)
	}
}

// ToAppError maps domain outcomes onto HTTP status and user-facing wording.
func ToAppError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		message := validationErr.Error()
		if len(validationErr.Messages) > 0 {
			message = strings.Join(validationErr.Messages, "; ")
		}
		return apperror.Validation(message, validationErr.Fields())
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		missing, invalid, _ := validation.SplitFieldErrors(fieldErrs)
		return apperror.Validation(strings.Join(validation.FormatValidationErrors(fieldErrs), "; "), append(missing, invalid...))
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return apperror.Unauthorized("Incorrect email or password")
	case errors.Is(err, domain.ErrNotAuthenticated):
		return apperror.Unauthorized("Sign in to continue")
	case errors.Is(err, domain.ErrProfileCreationFailed):
		return apperror.ServiceUnavailable("We could not set up your profile. Please try again.", err)
	case errors.Is(err, domain.ErrNetwork):
		return apperror.ServiceUnavailable("Network unavailable. Check your connection and try again.", err)
	case errors.Is(err, domain.ErrProvider):
		return apperror.ServiceUnavailable("Service temporarily unavailable. Please try again.", err)
	case errors.Is(err, domain.ErrNotFound):
		return apperror.NotFound("Not found")
	}
	return apperror.New(http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", err)
}
