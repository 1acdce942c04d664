package api

import (
	"github.com/gin-gonic/gin"

	"github.com/philsca/registrar/internal/handlers"
)

type sessionRouteDeps struct {
	Auth     *handlers.AuthHandler
	Setup    *handlers.SetupHandler
	Password *handlers.PasswordHandler
}

// registerSessionRoutes mounts the routes reachable without a session. SignOut and
// DeleteAccount read the cookie themselves so they answer with the status shape.
func registerSessionRoutes(r *gin.Engine, deps sessionRouteDeps) {
	r.POST("/api/session", deps.Auth.Login)
	r.GET("/api/session", deps.Auth.Current)
	r.POST("/api/signOut", deps.Auth.SignOut)
	r.POST("/api/deleteAccount", deps.Auth.DeleteAccount)

	r.GET("/api/setup/status", deps.Setup.Status)
	r.POST("/api/setup/initialize", deps.Setup.Initialize)

	password := r.Group("/api/password")
	{
		password.POST("/forgot", deps.Password.Forgot)
		password.POST("/reset", deps.Password.Reset)
	}
}

func registerSettingsRoutes(api *gin.RouterGroup, handler *handlers.SettingsHandler) {
	settings := api.Group("/settings")
	{
		settings.GET("/profile", handler.Profile)
		settings.GET("/history", handler.History)
	}
}
