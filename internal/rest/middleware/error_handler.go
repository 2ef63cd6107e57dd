package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/masjid-suite/billing/internal/logger"

	ierr "github.com/masjid-suite/billing/internal/errors"
)

// ErrorHandler renders errors collected via c.Error into the standard error
// envelope. Handlers call c.Error(err) and return; this middleware owns the
// status code and the response body.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusOf(err)
		if status >= 500 {
			log.Errorw("request failed",
				"path", c.Request.URL.Path,
				"error", err,
			)
		}
		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
