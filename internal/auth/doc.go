// Package auth provides administrator registration, login and the session
// gate in front of the catalog's admin pages.
//
// There is one capability: a request is either authenticated or anonymous.
// Passwords are stored as bcrypt hashes (cost 10 by default). Sessions live
// in the sessions table of the application database (scs + sqlite3store) and
// carry only the user's id, email and login time; the middleware re-reads the
// user from the credential store on every request.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>   # CSRF key, auto-generated if empty
//	AUTH_SESSION_LIFETIME=24h            # absolute session lifetime
//	AUTH_BCRYPT_COST=10                  # bcrypt cost factor
//	AUTH_SECURE_COOKIES=false            # HTTPS-only cookies
//	AUTH_REGISTRATION_ENABLED=true       # expose /register
//
// # Usage
//
//	authService := auth.NewService(users.NewRepository(db), cfg.Auth, logger)
//	authMiddleware := auth.NewMiddleware(authService, sessionManager, logger)
//	router.Use(sessionManager.SessionLoadSave(logger), authMiddleware.Handler())
//	admin := router.Group("/", authMiddleware.RequireAuth())
//
// Extract user in handlers:
//
//	userID := auth.GetUserID(c) // 0 when anonymous
package auth
