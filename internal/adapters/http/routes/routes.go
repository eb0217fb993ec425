package routes

import (
	"time"

	"dimos-fixit/internal/adapters/events"
	"dimos-fixit/internal/adapters/http/handlers"
	"dimos-fixit/internal/adapters/http/middleware"
	"dimos-fixit/internal/adapters/persistence/repositories"
	"dimos-fixit/internal/adapters/quota"
	"dimos-fixit/internal/adapters/storage"
	"dimos-fixit/internal/adapters/vision"
	"dimos-fixit/internal/config"
	"dimos-fixit/internal/core/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the process-wide collaborators built by the entrypoint
type Deps struct {
	DB        *gorm.DB
	Config    *config.Config
	Log       *zap.SugaredLogger
	Store     storage.BlobStore
	Publisher events.Publisher
	Quota     quota.Limiter
	Analyzer  vision.Analyzer // nil disables photo analysis
}

// Setup configures all routes for the application
func Setup(app *fiber.App, d Deps) {
	cfg, log := d.Config, d.Log
	if d.Quota == nil {
		d.Quota = quota.Unlimited{}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(d.DB)
	refreshTokenRepo := repositories.NewRefreshTokenRepository(d.DB)
	issueRepo := repositories.NewIssueRepository(d.DB)
	categoryRepo := repositories.NewCategoryRepository(d.DB)
	subcategoryRepo := repositories.NewSubcategoryRepository(d.DB)
	photoRepo := repositories.NewPhotoRepository(d.DB)
	commentRepo := repositories.NewCommentRepository(d.DB)
	settingRepo := repositories.NewSettingRepository(d.DB)

	// Initialize services
	authService := services.NewAuthService(userRepo, refreshTokenRepo, cfg.JWT, log)
	userService := services.NewUserService(userRepo, issueRepo, log)
	issueService := services.NewIssueService(issueRepo, categoryRepo, subcategoryRepo, userRepo, d.Store, d.Publisher, log)
	categoryService := services.NewCategoryService(categoryRepo, subcategoryRepo, issueRepo, log)
	commentService := services.NewCommentService(commentRepo, issueRepo, log)
	photoService := services.NewPhotoService(photoRepo, issueRepo, d.Store, cfg.Upload, log)
	dashboardService := services.NewDashboardService(issueRepo, categoryRepo, photoRepo, commentRepo, userRepo, log)
	excelService := services.NewExcelService(issueService, issueRepo, categoryRepo, subcategoryRepo, log)
	settingsService := services.NewSettingsService(settingRepo, log)
	aiService := services.NewAIService(d.Analyzer, cfg.Upload, log)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(d.DB, cfg)
	authHandler := handlers.NewAuthHandler(authService, log)
	userHandler := handlers.NewUserHandler(userService, log)
	issueHandler := handlers.NewIssueHandler(issueService, log)
	commentHandler := handlers.NewCommentHandler(commentService, log)
	photoHandler := handlers.NewPhotoHandler(photoService, log)
	categoryHandler := handlers.NewCategoryHandler(categoryService, log)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, log)
	excelHandler := handlers.NewExcelHandler(excelService, log)
	settingsHandler := handlers.NewSettingsHandler(settingsService, log)
	aiHandler := handlers.NewAIHandler(aiService, log)

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")
	auth := middleware.AuthMiddleware(authService)

	// Auth routes
	authRoutes := api.Group("/auth", middleware.NoCacheHeaders())
	authRoutes.Post("/register", middleware.AuthRateLimiter(), authHandler.Register)
	authRoutes.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	authRoutes.Post("/refresh", middleware.AuthRateLimiter(), authHandler.RefreshToken)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Post("/logout-all", auth, authHandler.LogoutAll)
	authRoutes.Get("/me", auth, authHandler.Me)

	// Issues and their comments
	issues := api.Group("/issues", auth)
	issues.Get("/", issueHandler.ListIssues)
	issues.Post("/", middleware.IssueQuota(d.Quota, log), issueHandler.CreateIssue)
	issues.Get("/:id", issueHandler.GetIssue)
	issues.Put("/:id", issueHandler.UpdateIssue)
	issues.Delete("/:id", issueHandler.DeleteIssue)
	issues.Get("/:id/comments", commentHandler.ListComments)
	issues.Post("/:id/comments", commentHandler.CreateComment)
	issues.Delete("/:id/comments/:commentId", commentHandler.DeleteComment)

	// Photos
	photos := api.Group("/photos", auth)
	photos.Get("/issues/:issueId", photoHandler.ListPhotos)
	photos.Post("/issues/:issueId", photoHandler.UploadPhotos)
	photos.Get("/:id/file", photoHandler.ServePhoto)
	photos.Delete("/:id", photoHandler.DeletePhoto)

	// Categories; writes are admin only
	categories := api.Group("/categories", auth)
	categories.Get("/", middleware.PrivateCacheHeaders(5*time.Minute), categoryHandler.ListCategories)
	categories.Get("/:id", categoryHandler.GetCategory)
	categories.Post("/", middleware.AdminOnly(), categoryHandler.CreateCategory)
	categories.Put("/:id", middleware.AdminOnly(), categoryHandler.UpdateCategory)
	categories.Delete("/:id", middleware.AdminOnly(), categoryHandler.DeleteCategory)
	categories.Post("/:id/subcategories", middleware.AdminOnly(), categoryHandler.CreateSubcategory)
	categories.Put("/:id/subcategories/:subId", middleware.AdminOnly(), categoryHandler.UpdateSubcategory)
	categories.Delete("/:id/subcategories/:subId", middleware.AdminOnly(), categoryHandler.DeleteSubcategory)

	// Users; profile routes come before /:id
	users := api.Group("/users", auth)
	users.Get("/profile", userHandler.GetProfile)
	users.Put("/profile", userHandler.UpdateProfile)
	users.Put("/profile/password", userHandler.ChangePassword)
	users.Get("/", middleware.StaffOnly(), userHandler.ListUsers)
	users.Post("/", middleware.AdminOnly(), userHandler.CreateUser)
	users.Get("/:id", userHandler.GetUser)
	users.Put("/:id", middleware.AdminOnly(), userHandler.UpdateUser)
	users.Delete("/:id", middleware.AdminOnly(), userHandler.DeleteUser)

	// Statistics
	stats := api.Group("/stats", auth)
	stats.Get("/dashboard", dashboardHandler.GetDashboard)
	stats.Get("/issues/:id", dashboardHandler.GetIssueStats)

	// Spreadsheets
	excel := api.Group("/excel", auth)
	excel.Get("/export", middleware.StaffOnly(), excelHandler.Export)
	excel.Get("/template", middleware.AdminOnly(), excelHandler.Template)
	excel.Post("/import", middleware.AdminOnly(), excelHandler.Import)

	// Settings
	settings := api.Group("/settings", auth)
	settings.Get("/", middleware.StaffOnly(), settingsHandler.ListSettings)
	settings.Put("/:key", middleware.AdminOnly(), settingsHandler.UpdateSetting)

	// AI
	api.Post("/ai/analyze", auth, aiHandler.Analyze)
}
