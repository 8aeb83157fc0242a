package internal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"rdw-inventory-api/internal/auth"
	"rdw-inventory-api/internal/config"
	"rdw-inventory-api/internal/handlers"
	"rdw-inventory-api/internal/listing"
	"rdw-inventory-api/internal/models"
	"rdw-inventory-api/internal/placement"
	"rdw-inventory-api/internal/storage/postgres"
	"rdw-inventory-api/pkg/importer"
)

// readRoles may browse every catalog and history view.
var readRoles = []string{models.RoleAdmin, models.RoleFrontdesk, models.RoleTeknisi, models.RoleManager}

type Server struct {
	DB         *sql.DB
	Pool       *pgxpool.Pool
	Router     *chi.Mux
	JWTManager *auth.JWTManager
	Metrics    *Metrics
	Logger     *zap.Logger
	Engine     *placement.Engine
	Lister     *listing.Lister
	Importer   *importer.Importer
	Validate   *validator.Validate
	Config     *config.Config
	// Location interprets calendar-day history filters.
	Location *time.Location
}

// NewServer opens the database, builds the placement engine and listing
// service on top of it and mounts every route.
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTExpiry)
	if err := jwtManager.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("jwt config: %w", err)
	}

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
	if err != nil {
		return nil, err
	}

	// database/sql view of the same pool for the catalog handlers
	db := stdlib.OpenDBFromPool(pool)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		pool.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	metrics := NewMetrics()
	metrics.RegisterDBStats(db, "catalog")

	s := &Server{
		DB:         db,
		Pool:       pool,
		JWTManager: jwtManager,
		Metrics:    metrics,
		Logger:     logger,
		Engine: placement.NewEngine(postgres.NewPlacementStore(pool), logger,
			placement.WithRecorder(metrics)),
		Lister:   listing.NewLister(pool),
		Importer: importer.New(pool, logger),
		Validate: newValidator(),
		Config:   cfg,
		Location: time.Local,
	}
	s.routes()

	logger.Info("server initialised",
		zap.String("environment", cfg.Environment),
		zap.Bool("metrics", cfg.EnableMetrics),
		zap.Int32("db_max_conns", cfg.DBMaxConns))
	return s, nil
}

// Close releases both database handles.
func (s *Server) Close(ctx context.Context) error {
	var errs []error
	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	return errors.Join(errs...)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	s.Router = r

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.Logger))
	r.Use(middleware.Recoverer)
	if s.Config != nil {
		r.Use(cors(s.Config.AllowedOrigins))
		if s.Config.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.Config.RequestTimeout))
		}
	}

	metricsEnabled := s.Config != nil && s.Config.EnableMetrics && s.Metrics != nil
	if metricsEnabled {
		r.Use(s.Metrics.Middleware())
		r.Get("/metrics", s.Metrics.Handler().ServeHTTP)
	}

	// Public routes
	r.Get("/health", s.health)
	r.Get("/dbping", s.dbPing)
	r.Post("/auth/login", s.loginUser)
	r.Post("/auth/logout", s.logoutUser)

	r.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(s.JWTManager))

		// Self-service routes
		r.Get("/auth/me", s.getUserProfile)
		r.Get("/auth/profile", s.getUserProfile)
		r.Put("/auth/profile", s.updateUserProfile)
		r.Put("/auth/change-password", s.changePassword)

		r.Group(func(r chi.Router) {
			r.Use(auth.MustRole(readRoles...))

			r.Get("/warehouses", s.listWarehouses)
			r.Get("/warehouses/{id}", s.getWarehouse)
			r.Get("/racks", s.listRacks)
			r.Get("/racks/{id}", s.getRack)
			r.Get("/slots", s.listSlots)
			r.Get("/slots/empty", s.listEmptySlots)
			r.Get("/slots/{id}", s.getSlot)
			r.Get("/classes", s.listClasses)

			r.Get("/equipment", s.listEquipment)
			r.Get("/equipment/unplaced", s.listUnplacedEquipment)
			r.Get("/equipment/{id}", s.getEquipment)
			r.Get("/equipment/{id}/history", s.listEquipmentHistory)
			r.Get("/history", s.listHistory)

			r.Get("/search", s.search)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.MustRole(models.RoleAdmin))

			r.Post("/warehouses", s.createWarehouse)
			r.Put("/warehouses/{id}", s.updateWarehouse)
			r.Post("/racks", s.createRack)
			r.Put("/racks/{id}", s.updateRack)
			r.Post("/slots", s.createSlot)
			r.Put("/slots/{id}", s.updateSlot)
			r.Post("/classes", s.createClass)

			r.Post("/equipment", s.createEquipment)
			r.Put("/equipment/{id}", s.updateEquipment)
			r.Delete("/equipment/{id}", s.deleteEquipment)

			r.Post("/equipment/{id}/move", s.moveEquipment)
			r.Post("/placements", s.createPlacement)

			importsHandler := handlers.NewImportsHandler(s.Importer, s.Logger)
			if s.Config != nil {
				importsHandler.MappingPath = s.Config.ImportMapping
			}
			r.Post("/imports/equipment", importsHandler.UploadExcel)

			r.Post("/users", s.createUser)
			r.Get("/users", s.listUsers)
			r.Get("/users/{id}", s.getUser)
			r.Put("/users/{id}", s.updateUser)
			r.Delete("/users/{id}", s.deleteUser)
		})
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// dbPing checks both the catalog handle and the engine pool.
func (s *Server) dbPing(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.DB == nil || s.Pool == nil {
		s.writeError(w, r, errors.New("database not configured"))
		return
	}
	if err := s.DB.PingContext(ctx); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Pool.Ping(ctx); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"db": "ok"})
}
