package http

import (
	"html/template"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
)

const authTemplateDataKey = "auth_template_data"

// AuthTemplateData holds authentication info for templates.
type AuthTemplateData struct {
	LoggedIn  bool          // Whether user is logged in
	Email     string        // Current user's email (empty if not logged in)
	CSRFField template.HTML // Hidden CSRF input for forms (empty when CSRF is off)
}

// AuthContextMiddleware injects authentication data into Gin context for templates.
// Templates can access auth data via .Auth in the template data.
// It must run after the auth middleware has resolved the session.
func AuthContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authData := AuthTemplateData{
			CSRFField: auth.CSRFTokenField(c),
		}
		if auth.IsAuthenticated(c) {
			authData.LoggedIn = true
			authData.Email = auth.GetEmail(c)
		}

		c.Set(authTemplateDataKey, authData)
		c.Next()
	}
}

// GetAuthTemplateData retrieves auth data from context for use in templates.
func GetAuthTemplateData(c *gin.Context) AuthTemplateData {
	if data, exists := c.Get(authTemplateDataKey); exists {
		if authData, ok := data.(AuthTemplateData); ok {
			return authData
		}
	}
	return AuthTemplateData{}
}
