package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civicgov/grievance-service/internal/api/http/handlers"
	"github.com/civicgov/grievance-service/internal/auth"
	"github.com/civicgov/grievance-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Grievances      *handlers.GrievancesHandler
	AdminGrievances *handlers.AdminGrievancesHandler
	AdminAuth       *handlers.AdminAuthHandler
	AuthMiddleware  *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/admin/login", cfg.AdminAuth.Login)

	protectedAuth := authGroup.Group("", cfg.AuthMiddleware.Handle)
	protectedAuth.Post("/password/change", cfg.AdminAuth.ChangePassword)

	api := app.Group("/api/v1")
	api.Post("/grievances", cfg.Grievances.Submit)
	api.Get("/grievances/track/:token", cfg.Grievances.Track)
	api.Get("/departments", cfg.Grievances.ListDepartments)

	admin := api.Group("/admin",
		cfg.AuthMiddleware.Handle,
		auth.RequireRole(domain.AdminRoleAdmin, domain.AdminRoleOfficer))
	admin.Get("/grievances", cfg.AdminGrievances.List)
	admin.Get("/grievances/stats", cfg.AdminGrievances.Stats)
	admin.Get("/grievances/:token", cfg.AdminGrievances.Get)
	admin.Patch("/grievances/:token/status", cfg.AdminGrievances.UpdateStatus)
	admin.Patch("/grievances/:token/priority", cfg.AdminGrievances.OverridePriority)
	admin.Post("/grievances/:token/reclassify", cfg.AdminGrievances.Reclassify)
}
