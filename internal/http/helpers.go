package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/bookshelf/internal/catalog"
)

// respondNotFound sends the plain 404 page used for every missing resource.
func respondNotFound(c *gin.Context) {
	c.String(http.StatusNotFound, "Not Found")
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, logger *zap.Logger, err error, context string) {
	logger.Error("Internal error",
		zap.String("context", context),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.String(http.StatusInternalServerError, "Internal Server Error")
}

// parseIDParam extracts a book id from URL parameters. A malformed id
// responds 404, the same as an id that does not exist.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := catalog.ParseID(c.Param(paramName))
	if err != nil {
		respondNotFound(c)
		return 0, false
	}
	return id, true
}

// renderHTML renders a named template with the request's auth data merged in.
func renderHTML(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Auth"] = GetAuthTemplateData(c)
	c.HTML(status, name, data)
}
