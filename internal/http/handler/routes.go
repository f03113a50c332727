package handler

import (
	"github.com/gofiber/fiber/v2"

	"sharelink/internal/http/middleware"
	"sharelink/internal/service"
)

// Dependencies are the collaborators RegisterRoutes needs.
type Dependencies struct {
	DB      Pinger
	Shares  service.ShareService
	Auth    service.AuthService
	Tokens  middleware.TokenVerifier
	Limiter fiber.Handler
	BaseURL string
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin; rules live in the service layer.
func RegisterRoutes(app *fiber.App, d Dependencies) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	if d.Limiter != nil {
		api.Use(d.Limiter)
	}

	authGroup := api.Group("/auth")
	authGroup.Post("/register", Register(d.Auth))
	authGroup.Post("/login", Login(d.Auth))

	files := api.Group("/files", middleware.RequireAuth(d.Tokens))
	files.Post("/upload", UploadFile(d.Shares, d.BaseURL))
	files.Get("/", ListFiles(d.Shares))
	files.Get("/stats", FileStats(d.Shares))
	files.Get("/:id", GetFile(d.Shares))
	files.Put("/:id", UpdateFile(d.Shares))
	files.Delete("/:id", DeleteFile(d.Shares))

	// download and qrcode are registered before the catch-all peek route.
	share := api.Group("/share")
	share.Get("/download/:shortLink", DownloadShare(d.Shares))
	share.Get("/qrcode/:shortLink", ShareQRCode(d.Shares, d.BaseURL))
	share.Get("/:shortLink", PeekShare(d.Shares))
}
