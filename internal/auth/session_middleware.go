package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// sessionWriter saves the session and sets its cookie right before the
// response headers are sent, the last moment a cookie can still be added.
type sessionWriter struct {
	gin.ResponseWriter
	sm  *SessionManager
	ctx context.Context

	saved bool
	err   error
}

func (w *sessionWriter) save() {
	if w.saved {
		return
	}
	w.saved = true

	switch w.sm.Status(w.ctx) {
	case scs.Modified:
		token, expiry, err := w.sm.Commit(w.ctx)
		if err != nil {
			w.err = err
			return
		}
		w.sm.WriteSessionCookie(w.ctx, w.ResponseWriter, token, expiry)
	case scs.Destroyed:
		w.sm.WriteSessionCookie(w.ctx, w.ResponseWriter, "", time.Time{})
	}
}

func (w *sessionWriter) WriteHeader(code int) {
	w.save()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) WriteHeaderNow() {
	w.save()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.save()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) WriteString(s string) (int, error) {
	w.save()
	return w.ResponseWriter.WriteString(s)
}

func (w *sessionWriter) Flush() {
	w.save()
	w.ResponseWriter.Flush()
}

// SessionLoadSave loads the session named by the request cookie and saves it
// with the response. Handlers touching the session must run after it.
func (sm *SessionManager) SessionLoadSave(logger *zap.Logger) gin.HandlerFunc {
	logger = logger.Named("session")

	return func(c *gin.Context) {
		var token string
		if cookie, err := c.Request.Cookie(sm.Cookie.Name); err == nil {
			token = cookie.Value
		}

		ctx, err := sm.Load(c.Request.Context(), token)
		if err != nil {
			logger.Error("Failed to load session", zap.Error(err))
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.Request = c.Request.WithContext(ctx)

		w := &sessionWriter{ResponseWriter: c.Writer, sm: sm, ctx: ctx}
		c.Writer = w
		c.Next()

		// Handlers that write nothing still get their cookie
		w.save()
		if w.err != nil {
			logger.Error("Failed to save session", zap.Error(w.err))
		}
	}
}
