package main

import (
	"context"
	"errors"
	"log"
	"runtime"
	"time"

	"github.com/fadilmartias/cv-builder/internal/apperror"
	"github.com/fadilmartias/cv-builder/internal/config"
	"github.com/fadilmartias/cv-builder/internal/domain/fiber/handler"
	"github.com/fadilmartias/cv-builder/internal/extraction"
	"github.com/fadilmartias/cv-builder/internal/figma"
	"github.com/fadilmartias/cv-builder/internal/intake"
	"github.com/fadilmartias/cv-builder/internal/middleware"
	"github.com/fadilmartias/cv-builder/internal/model"
	"github.com/fadilmartias/cv-builder/internal/render"
	"github.com/fadilmartias/cv-builder/internal/repository"
	"github.com/fadilmartias/cv-builder/internal/service"
	"github.com/fadilmartias/cv-builder/internal/tailoring"
	"github.com/fadilmartias/cv-builder/internal/usecase"
	"github.com/fadilmartias/cv-builder/internal/util"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Load .env file
	ctx := context.Background()
	err := godotenv.Load()
	if err != nil {
		log.Println("Could not load .env file")
	}

	appConfig := config.LoadAppConfig()

	app := fiber.New(fiber.Config{
		AppName:   appConfig.Name,
		BodyLimit: 2*intake.MaxFileBytes + 1<<20,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			// fiber errors (404 route, body too large) keep their status
			var e *fiber.Error
			if errors.As(err, &e) {
				code := apperror.CodeInternal
				switch e.Code {
				case fiber.StatusNotFound:
					code = apperror.CodeNotFound
				case fiber.StatusMethodNotAllowed:
					code = apperror.CodeMethodNotAllowed
				case fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge, fiber.StatusUnprocessableEntity:
					code = apperror.CodeInvalidInput
				}
				return util.ErrorResponse(ctx, util.ErrorResponseFormat{
					Code:      e.Code,
					ErrorCode: code,
					Message:   e.Message,
				})
			}
			return util.AppErrorResponse(ctx, err)
		},
	})
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, If-Match",
		ExposeHeaders: "ETag, Content-Disposition",
	}))
	// Use middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !appConfig.IsProduction(),
	}))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // 1
		Next: func(c *fiber.Ctx) bool {
			// the progress stream must not be buffered by the compressor
			return c.Path() == "/api/parse-resume-enhanced"
		},
	}))
	app.Use(pprof.New(pprof.Config{
		Next: func(c *fiber.Ctx) bool {
			return appConfig.IsProduction()
		},
	}))

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.RateLimiter(50, 1*time.Minute))

	db := ConnectDB()
	guests := ConnectGuestStore(ctx)

	resumeUC := newResumeUsecase(ctx, db, guests)
	figmaUC := usecase.NewFigmaUsecase(newFigmaAgent())

	app.Use(healthcheck.New(healthcheck.Config{
		ReadinessProbe: func(c *fiber.Ctx) bool {
			sqlDB, err := db.DB()
			if err != nil || sqlDB.PingContext(c.UserContext()) != nil {
				return false
			}
			if guests != nil && guests.Ping(c.UserContext()) != nil {
				return false
			}
			return true
		},
	}))

	jwtConfig := config.LoadJWTConfig()
	if jwtConfig.Secret == "" {
		log.Println("Warning: JWT_SECRET not set, every request is treated as a guest")
	}
	auth := middleware.NewAuth(jwtConfig.Secret, jwtConfig.Issuer)

	handler.NewResumeHandler(resumeUC, auth).RegisterRoutes(app)
	handler.NewFigmaHandler(figmaUC).RegisterRoutes(app)

	// Monitor goroutine count
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			log.Printf("Active goroutines: %d", runtime.NumGoroutine())
		}
	}()

	log.Println("Server running on ", appConfig.Port)
	if err := app.Listen(appConfig.Port); err != nil {
		log.Fatal(err)
	}
}

func newResumeUsecase(ctx context.Context, db *gorm.DB, guests *repository.GuestStore) *usecase.ResumeUsecase {
	features := config.LoadFeatureConfig()
	appConfig := config.LoadAppConfig()

	var (
		client   service.AIClient
		embedder service.Embedder
	)
	gemini, gerr := service.NewGeminiService(ctx)
	if gerr == nil {
		embedder = gemini
	} else {
		log.Printf("Gemini unavailable, search is disabled: %v", gerr)
	}
	switch features.AIProvider {
	case "openrouter":
		openRouter, err := service.NewOpenRouterService()
		if err != nil {
			log.Fatal(err)
		}
		client = openRouter
	default:
		if gerr != nil {
			log.Fatal(gerr)
		}
		client = gemini
	}

	extractClient := client
	if !features.AIExtraction {
		log.Println("AI extraction disabled, using the regex extractor only")
		extractClient = nil
	}

	html, err := render.NewHTMLRenderer()
	if err != nil {
		log.Fatal(err)
	}

	deps := usecase.ResumeDeps{
		Resumes:          repository.NewResumeRepository(db),
		Reader:           intake.NewReader(intake.NewFitzExtractor(true)),
		Extractor:        extraction.NewResumeExtractor(extractClient, features.AITimeout),
		JobSpecs:         &extraction.JobSpecExtractor{Client: client, Timeout: features.AITimeout},
		Tailor:           tailoring.New(client, features.AITimeout),
		TailoringEnabled: features.Tailoring,
		Embedder:         embedder,
		HTML:             html,
		PDF:              render.NewPDFRenderer(appConfig.ChromePath, 30*time.Second),
	}
	if guests != nil {
		deps.Guests = guests
	}
	return usecase.NewResumeUsecase(deps)
}

// newFigmaAgent talks to the Figma API when a token is configured and to the
// built-in mock design otherwise.
func newFigmaAgent() *figma.Agent {
	cfg := config.LoadFigmaConfig()

	var source figma.Source = figma.NewMockSource()
	if cfg.Token != "" {
		source = figma.NewClient(cfg.BaseURL, cfg.Token, cfg.Timeout)
	} else {
		log.Println("FIGMA_TOKEN not set, using the mock design source")
	}

	var writer *figma.FileWriter
	if cfg.OutputDir != "" {
		writer = &figma.FileWriter{Dir: cfg.OutputDir}
	}
	agent := figma.NewAgent(source, writer)
	agent.Timeout = cfg.Timeout
	return agent
}

// ConnectGuestStore returns nil when REDIS_ADDR is unset; guests then get
// their result only in the response.
func ConnectGuestStore(ctx context.Context) *repository.GuestStore {
	redisConfig := config.LoadRedisConfig()
	if redisConfig.Addr == "" {
		log.Println("REDIS_ADDR not set, guest resumes are not stored")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisConfig.Addr,
		Password: redisConfig.Password,
		DB:       redisConfig.DB,
	})
	store := repository.NewGuestStore(rdb, config.LoadFeatureConfig().EffectiveGuestTTL())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		log.Printf("Could not reach redis, guest storage may fail: %v", err)
	}
	return store
}

func ConnectDB() *gorm.DB {
	dbConfig := config.LoadDBConfig()
	appConfig := config.LoadAppConfig()

	db, err := gorm.Open(postgres.Open(dbConfig.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	pgDB, err := db.DB()
	if err != nil {
		log.Fatalf("Could not get database instance: %v", err)
	}
	if !appConfig.IsProduction() {
		pgDB.SetMaxIdleConns(5)  // cukup 5 idle
		pgDB.SetMaxOpenConns(10) // max 10 koneksi aktif
		pgDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		pgDB.SetMaxIdleConns(20)           // simpan 20 koneksi siap pakai
		pgDB.SetMaxOpenConns(200)          // max 200 koneksi aktif
		pgDB.SetConnMaxLifetime(time.Hour) // recycle tiap 1 jam
	}

	for _, ext := range []string{`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`, `CREATE EXTENSION IF NOT EXISTS vector`} {
		if err := db.Exec(ext).Error; err != nil {
			log.Fatalf("could not enable extension: %v", err)
		}
	}

	// migrasi tabel
	err = db.AutoMigrate(&model.Resume{})
	if err != nil {
		log.Fatal("migration failed: ", err)
	}
	return db
}
