package v1

import (
	"strings"

	"card-assistant-backend/internal/delivery/http/middleware"
	"card-assistant-backend/internal/domain"
	"card-assistant-backend/pkg/apperror"
	"card-assistant-backend/pkg/validation"

	"github.com/gin-gonic/gin"
)

// bindJSON decodes the body and records a 400/422 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	if missing, invalid, ok := validation.SplitFieldErrors(err); ok {
		fields := make([]string, 0, len(missing)+len(invalid))
		for _, f := range append(missing, invalid...) {
			fields = append(fields, strings.ToLower(f))
		}
		c.Error(apperror.Validation(strings.Join(validation.FormatValidationErrors(err), "; "), fields))
		return false
	}
	c.Error(apperror.BadRequest("Invalid request body"))
	return false
}

// identity returns the identity captured by RequireSession; handlers behind the guard always have one.
func identity(c *gin.Context) (domain.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		c.Error(domain.ErrNotAuthenticated)
	}
	return id, ok
}
