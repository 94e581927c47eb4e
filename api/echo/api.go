package echo

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wolliz-dev/wolliz-backend/internal/auth"
	"github.com/wolliz-dev/wolliz-backend/middleware"
)

// API aggregates the HTTP handler groups and registers their routes.
type API struct {
	Users      *UserAPI
	Properties *PropertyAPI

	tokenService *auth.TokenService
}

// NewAPI initializes the HTTP API.
func NewAPI(users *UserAPI, properties *PropertyAPI, ts *auth.TokenService) *API {
	return &API{
		Users:        users,
		Properties:   properties,
		tokenService: ts,
	}
}

// RegisterRoutes registers all routes. User management endpoints beyond
// register/login require a bearer token.
func (a *API) RegisterRoutes(e *echo.Echo) {
	authed := middleware.RequireAuth(a.tokenService)

	e.POST("/register", a.Users.Register)
	e.POST("/login", a.Users.Login)
	e.GET("/getallusers", a.Users.GetAllUsers, authed)
	e.GET("/:id", a.Users.GetUser, authed)
	e.PUT("/:id", a.Users.UpdateUser, authed)
	e.PATCH("/:id", a.Users.PatchUser, authed)
	e.DELETE("/:id", a.Users.DeleteUser, authed)

	e.GET("/api/properties/:id", a.Properties.GetProperty)
	e.POST("/api/properties", a.Properties.CreateProperty)
	e.DELETE("/api/properties/:id", a.Properties.DeleteProperty)

	e.GET("/healthz", a.Health)
}

// Health is a liveness probe.
func (a *API) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
