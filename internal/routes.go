package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "pixelview/api/v1"
	"pixelview/internal/config"
	"pixelview/internal/http"
)

// publicCORSConfig is shared by every public endpoint. Tracking pixels embed
// anywhere, so the surface is fully cross-origin.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API.
// The catch-all tracking route registers last: fiber matches in registration
// order, so literal routes (/_health, /pixel.js, /views/...) win over /:path.
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()

	// Rate limiting only applies in production. In development and test it
	// would interfere with seeding and request loops.
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// 70/min per IP handles legitimate pixel traffic while capping abuse.
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	// Tracking ingestion: CORS first so rejected requests still carry CORS
	// headers, then the rate limiter.
	// Sec-Fetch-Site validation stays off for the whole surface: pixels are
	// fetched cross-site by design and uptime monitors send no fetch metadata.
	trackConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		EnableSecFetchSite: cartridge.Bool(false),
		WriteConcurrency:   false,
		CustomMiddleware:   []fiber.Handler{publicRateLimiter},
		CORSConfig:         publicCORSConfig,
	}

	// Read-only query surface shares the public protection.
	queryConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{publicRateLimiter},
		CORSConfig:         publicCORSConfig,
	}

	// Snippet delivery, GET-only.
	snippetConfig := &cartridge.RouteConfig{
		EnableCORS:         true,
		EnableSecFetchSite: cartridge.Bool(false),
		CustomMiddleware:   []fiber.Handler{publicRateLimiter},
		CORSConfig:         publicCORSConfig,
	}

	// === OPERATIONAL ROUTES ===
	srv.Get("/_health", http.HealthIndexAction)
	srv.Head("/_health", http.HealthIndexAction)

	// === SNIPPET DELIVERY ===
	srv.Get("/pixel.js", v1.GetSnippetAction, snippetConfig)

	// === QUERY ROUTES ===
	srv.Get("/views/:path", v1.GetViewsHandler, queryConfig)
	srv.Get("/views/:path/tree", v1.GetTreeHandler, queryConfig)
	srv.Get("/views/:path/stats", v1.GetStatsHandler, queryConfig)

	// === TRACKING ROUTE (catch-all, keep last) ===
	srv.Get("/:path", v1.TrackViewHandler, trackConfig)
	srv.Options("/:path", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, trackConfig)
}
