package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NotFound answers with the generic not-found payload, echoing the requested path.
func NotFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
		"error": "not found",
		"path":  c.Request.URL.Path,
	})
}

// ServerError logs err and answers with the generic failure payload. Nothing
// about err reaches the client.
func ServerError(c *gin.Context, logger *zap.SugaredLogger, err error) {
	logger.Errorw("request failed",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"error", err,
	)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"error": "server error",
	})
}

// Recovery turns panics into ServerError responses.
func Recovery(logger *zap.SugaredLogger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Errorw("panic recovered", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "server error",
		})
	})
}

// Invalid redisplays a form: the page context is answered with a 400 and the
// field-level messages under "errors".
func Invalid(c *gin.Context, err error, page gin.H) {
	if page == nil {
		page = gin.H{}
	}
	page["errors"] = FieldErrors(err)
	c.JSON(http.StatusBadRequest, page)
}
