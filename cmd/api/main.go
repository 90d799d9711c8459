package main

import (
	"context"
	"database/sql"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	jwtware "github.com/gofiber/jwt/v2"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wichananm65/chef-marketplace-backend/internal/account"
	"github.com/wichananm65/chef-marketplace-backend/internal/booking"
	"github.com/wichananm65/chef-marketplace-backend/internal/config"
	"github.com/wichananm65/chef-marketplace-backend/internal/database"
	"github.com/wichananm65/chef-marketplace-backend/internal/identity"
	"github.com/wichananm65/chef-marketplace-backend/internal/logger"
	"github.com/wichananm65/chef-marketplace-backend/internal/profile"
	"github.com/wichananm65/chef-marketplace-backend/internal/session"
	"github.com/wichananm65/chef-marketplace-backend/internal/storage"
)

const devJWTSecret = "dev-secret-change-me"

type stores struct {
	identities     identity.Repository
	profiles       profile.Repository
	publicProfiles profile.Repository
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			log.Fatal("JWT_SECRET is required in production")
		}
		log.Warn("JWT_SECRET not set, using development secret")
		cfg.JWTSecret = devJWTSecret
	}

	ctx := context.Background()
	st := mustOpenStores(ctx, cfg, log)
	cache := mustOpenCache(ctx, cfg, log)

	var mailer identity.Mailer = identity.NewLogMailer(log)
	if cfg.SMTPHost != "" {
		mailer = identity.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass)
	}

	ids := identity.NewService(st.identities, mailer, identity.Config{
		JWTSecret:           cfg.JWTSecret,
		TokenTTL:            cfg.TokenTTL,
		OTPTTL:              cfg.OTPTTL,
		RequireEmailConfirm: cfg.RequireEmailConfirm,
		SiteURL:             cfg.SiteURL,
	}, log)
	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		ids.WithGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.SiteURL+"/auth/callback")
	}

	bucket := storage.NewLocalBucket(filepath.Join(cfg.UploadDir, "profiles"), cfg.SiteURL+"/uploads/profiles")
	helpers := profile.NewHelpers(st.profiles, bucket, log)
	publicHelpers := profile.NewPublicHelpers(st.publicProfiles, log)
	reconciler := profile.NewReconciler(st.profiles, ids, log)
	sessions := session.NewManager(cache, log).WithCapacity(cfg.SessionLimit)

	accountSvc := account.NewService(ids, helpers, reconciler, sessions, log)
	bookingSvc := booking.NewService(booking.NewDraftStore(cache, log), publicHelpers, log)

	accountHandler := account.NewHandler(accountSvc, ids, account.Options{
		DemoMode:      cfg.DemoMode,
		SecureCookies: cfg.IsProduction(),
	}, log)
	profileHandler := profile.NewHandler(publicHelpers)
	sessionHandler := session.NewHandler(sessions, log)
	bookingHandler := booking.NewHandler(bookingSvc, sessions)

	app := fiber.New()
	setupCORS(app, cfg.CORSOrigins)
	app.Use(logger.RequestLogger(log))
	app.Use(session.Middleware(cfg.IsProduction(), cfg.SessionTTL))

	// public
	accountHandler.RegisterPublicRoutes(app)
	profileHandler.RegisterPublicRoutes(app)
	sessionHandler.RegisterPublicRoutes(app)
	bookingHandler.RegisterPublicRoutes(app)
	app.Static("/uploads", cfg.UploadDir, fiber.Static{
		ModifyResponse: func(c *fiber.Ctx) error {
			c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
			return nil
		},
	})

	app.Use(jwtware.New(jwtware.Config{
		SigningKey: []byte(cfg.JWTSecret),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "unauthorized"})
		},
	}))

	// protected
	accountHandler.RegisterProtectedRoutes(app)

	log.Info("starting server", zap.String("addr", cfg.Addr), zap.String("env", cfg.Env))
	if err := app.Listen(cfg.Addr); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// mustOpenStores connects to Postgres when DATABASE_URL is set, otherwise it
// falls back to in-memory repositories seeded with the demo profiles.
func mustOpenStores(ctx context.Context, cfg config.Config, log *zap.Logger) stores {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		profiles := profile.NewInMemoryRepository(profile.DemoProfiles())
		return stores{
			identities:     identity.NewInMemoryRepository(nil),
			profiles:       profiles,
			publicProfiles: profiles,
		}
	}

	db := mustOpenDB(ctx, cfg.DatabaseURL, log)
	migrations := append(append([]string{}, identity.Schema...), profile.Schema...)
	if err := database.Migrate(ctx, db, migrations...); err != nil {
		log.Fatal("schema migration failed", zap.Error(err))
	}

	public := db
	if cfg.PublicDatabaseURL != cfg.DatabaseURL {
		public = mustOpenDB(ctx, cfg.PublicDatabaseURL, log)
	}
	return stores{
		identities:     identity.NewPostgresRepository(db),
		profiles:       profile.NewPostgresRepository(db),
		publicProfiles: profile.NewPostgresRepository(public),
	}
}

func mustOpenDB(ctx context.Context, url string, log *zap.Logger) *sql.DB {
	db, err := database.Open(ctx, url)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	return db
}

// mustOpenCache prefers Redis and falls back to the on-disk cache when Redis
// is not configured or unreachable.
func mustOpenCache(ctx context.Context, cfg config.Config, log *zap.Logger) session.Cache {
	if cfg.RedisAddr != "" {
		client := session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		err := client.Ping(pingCtx).Err()
		if err == nil {
			return session.NewRedisCache(client, "session", cfg.SessionTTL)
		}
		log.Warn("redis unreachable, using file cache", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		_ = client.Close()
	}

	cache, err := session.NewFileCache(cfg.SessionDir)
	if err != nil {
		log.Fatal("session cache unavailable", zap.Error(err))
	}
	return cache
}

func setupCORS(app *fiber.App, origins string) {
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,HEAD,PUT,DELETE,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
	}))
}
