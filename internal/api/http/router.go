package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/community-portal/internal/api/http/handlers"
	"github.com/spec-kit/community-portal/internal/auth"
	"github.com/spec-kit/community-portal/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Users         *handlers.UsersHandler
	Admin         *handlers.AdminHandler
	News          *handlers.NewsHandler
	Support       *handlers.SupportHandler
	Pages         *handlers.PagesHandler
	Authenticator *auth.Authenticator
	Policy        *auth.Policy
	Metrics       *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Health and metrics sit in front of the
// identity resolution so probes never touch the session store.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	policy := cfg.Policy
	if policy == nil {
		policy = auth.DefaultPolicy()
	}
	app.Use(fiber.Handler(cfg.Authenticator.Handle), auth.Authorize(policy))

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/verify", cfg.Auth.Verify)
	authGroup.Post("/forgot-password", cfg.Auth.ForgotPassword)
	authGroup.Post("/reset-password", cfg.Auth.ResetPassword)
	authGroup.Get("/validate", cfg.Auth.Validate)

	users := api.Group("/users")
	users.Get("/profile", cfg.Users.GetProfile)
	users.Put("/profile", cfg.Users.UpdateProfile)
	users.Post("/change-password", cfg.Users.ChangePassword)

	admin := api.Group("/admin/users")
	admin.Get("/", cfg.Admin.ListUsers)
	admin.Get("/:id", cfg.Admin.GetUser)
	admin.Put("/:id/status", cfg.Admin.UpdateStatus)
	admin.Put("/:id/role", cfg.Admin.UpdateRole)
	admin.Post("/:id/unlock", cfg.Admin.Unlock)
	admin.Delete("/:id", cfg.Admin.DeleteUser)

	news := api.Group("/news")
	news.Get("/", cfg.News.ListPublished)
	news.Get("/carousel", cfg.News.Carousel)
	news.Get("/patch-notes/latest-major", cfg.News.LatestMajorPatchNote)
	news.Get("/admin/status/:status", cfg.News.ListByStatus)
	news.Post("/admin/publish-scheduled", cfg.News.PublishScheduled)
	news.Get("/:id", cfg.News.GetPost)
	news.Post("/", cfg.News.CreatePost)
	news.Put("/:id", cfg.News.UpdatePost)
	news.Delete("/:id", cfg.News.DeletePost)
	news.Post("/:id/publish", cfg.News.PublishPost)
	news.Post("/:id/schedule", cfg.News.SchedulePost)

	support := api.Group("/support")
	support.Post("/tickets", cfg.Support.CreateTicket)
	support.Get("/tickets", cfg.Support.ListMyTickets)
	support.Get("/tickets/:id", cfg.Support.GetTicket)
	support.Put("/tickets/:id", cfg.Support.UpdateTicket)

	staff := support.Group("/staff/tickets")
	staff.Get("/", cfg.Support.ListAllTickets)
	staff.Get("/assigned", cfg.Support.ListAssigned)
	staff.Get("/:id", cfg.Support.GetStaffTicket)
	staff.Post("/:id/assign", cfg.Support.AssignTicket)

	app.Post("/login", cfg.Pages.Login)
	app.Post("/register", cfg.Pages.Register)
	app.Get("/logout", cfg.Pages.Logout)
	app.Get("/home", cfg.Pages.Home)
	app.Get("/profile", cfg.Pages.Profile)
	app.Post("/profile/edit", cfg.Pages.EditProfile)
	app.Post("/profile/change-password", cfg.Pages.ChangePassword)
	app.Get("/admin", cfg.Pages.AdminDashboard)
	app.Get("/staff", cfg.Pages.StaffDashboard)
}
