package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	googleauth "docchat-backend/internal/auth"
	"docchat-backend/internal/chat"
	"docchat-backend/internal/documents"
	"docchat-backend/internal/extract"
	"docchat-backend/internal/llm"
	openai "docchat-backend/internal/llm/openai"
	"docchat-backend/internal/services/health"
	sharedauth "docchat-backend/internal/shared/auth"
	"docchat-backend/internal/shared/config"
	"docchat-backend/internal/shared/server"
	"docchat-backend/internal/shared/server/middleware"
	"docchat-backend/internal/shared/storage/db"
	"docchat-backend/internal/shared/storage/object"
	localstore "docchat-backend/internal/shared/storage/object/local"
	s3store "docchat-backend/internal/shared/storage/object/s3"
	"docchat-backend/internal/shared/telemetry"
	"docchat-backend/internal/users"
)

// App holds the wired dependencies of the API process.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	Store            object.ObjectStore
	Sessions         *sharedauth.Manager
	UsersService     *users.Service
	DocumentsService *documents.Service
	Pipeline         *chat.Pipeline
	GoogleAuth       *googleauth.GoogleService
}

type options struct {
	extractor extract.TextExtractor
	completer llm.Completer
	store     object.ObjectStore
}

// Option overrides a collaborator, mainly for tests.
type Option func(*options)

// WithExtractor replaces the PDF extractor.
func WithExtractor(e extract.TextExtractor) Option {
	return func(o *options) { o.extractor = e }
}

// WithCompleter replaces the model client.
func WithCompleter(c llm.Completer) Option {
	return func(o *options) { o.completer = c }
}

// WithStore replaces the object store selected by config.
func WithStore(s object.ObjectStore) Option {
	return func(o *options) { o.store = s }
}

// Build connects storage, constructs services and wires the router.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sessions, err := sharedauth.NewManager(cfg.JWTSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store := o.store
	if store == nil {
		store, err = buildStore(ctx, cfg)
		if err != nil {
			closeDB(sqlDB)
			return nil, err
		}
	}

	completer := o.completer
	if completer == nil {
		completer, err = buildCompleter(cfg)
		if err != nil {
			closeDB(sqlDB)
			return nil, err
		}
	}
	extractor := o.extractor
	if extractor == nil {
		extractor = extract.NewPDFExtractor()
	}

	var (
		docRepo  documents.DocumentsRepo
		userRepo users.Repo
	)
	if sqlDB != nil {
		docRepo = &documents.PGRepo{DB: sqlDB}
		userRepo = &users.PGRepo{DB: sqlDB}
	} else {
		docRepo = documents.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	userSvc := users.NewService(userRepo)
	docSvc := &documents.Service{
		Store:           store,
		Repo:            docRepo,
		StorageProvider: cfg.ObjectStoreType,
		MaxBytes:        cfg.MaxUploadBytes,
	}
	pipeline := &chat.Pipeline{
		Docs: docSvc,
		Context: &chat.Assembler{
			Store:     store,
			Extractor: extractor,
			MaxChars:  cfg.ContextMaxChars,
		},
		Prompts: llm.NewPromptBuilder(cfg.PromptVersion, cfg.LLMMaxTokens),
		LLM:     completer,
		Timeout: cfg.LLMTimeout,
	}

	cookie := middleware.CookieOptionsFor(cfg.Env, cfg.CookieName, sessions.TTL())
	userHandler := users.NewHandler(userSvc, sessions, cookie)

	app := &App{
		Config:           cfg,
		DB:               sqlDB,
		Store:            store,
		Sessions:         sessions,
		UsersService:     userSvc,
		DocumentsService: docSvc,
		Pipeline:         pipeline,
	}

	public := []server.RouteRegistrar{userHandler}
	googleCfg := googleauth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		UIRedirect:   cfg.UIRedirectURL,
	}
	if googleCfg.Enabled() {
		app.GoogleAuth = googleauth.NewGoogleService(googleCfg, userSvc, sessions, cookie)
		public = append(public, app.GoogleAuth)
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   cfg,
		Sessions: sessions,
		Public:   public,
		Protected: []server.RouteRegistrar{
			userHandler.Protected(),
			documents.NewHandler(docSvc),
			chat.NewHandler(pipeline),
		},
		Limiter: middleware.NewRateLimiter(nil),
		Health:  newHealth(sqlDB),
	})

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":            cfg.Env,
		"object_store":   cfg.ObjectStoreType,
		"database":       sqlDB != nil,
		"llm_configured": strings.TrimSpace(cfg.LLMAPIKey) != "",
		"prompt_version": pipeline.Prompts.Version(),
		"google_auth":    app.GoogleAuth != nil,
	})
	return app, nil
}

// Close releases the database pool.
func (a *App) Close() error {
	if a == nil || a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFrom(cfg.DB, db.DefaultServerOptions()))
	if err != nil {
		if cfg.IsDevLike() {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		closeDB(sqlDB)
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func newHealth(sqlDB *sql.DB) *health.Service {
	if sqlDB == nil {
		return health.NewService(nil)
	}
	return health.NewService(sqlDB)
}

func closeDB(sqlDB *sql.DB) {
	if sqlDB != nil {
		_ = sqlDB.Close()
	}
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildCompleter(cfg config.Config) (llm.Completer, error) {
	if strings.TrimSpace(cfg.LLMAPIKey) == "" {
		telemetry.Warn("bootstrap.llm_unconfigured", map[string]any{"reason": "LLM_API_KEY empty"})
		return llm.PlaceholderClient{}, nil
	}
	return openai.NewClient(openai.Options{
		BaseURL:           cfg.LLMBaseURL,
		APIKey:            cfg.LLMAPIKey,
		Model:             cfg.LLMModel,
		Timeout:           cfg.LLMTimeout,
		RequestsPerSecond: cfg.LLMRatePerSec,
	})
}
