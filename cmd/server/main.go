package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/shiva/backhaul/config"
	"github.com/shiva/backhaul/internal/geocode"
	"github.com/shiva/backhaul/internal/handler"
	"github.com/shiva/backhaul/internal/middleware"
	"github.com/shiva/backhaul/internal/repository"
	"github.com/shiva/backhaul/internal/service"
	"github.com/shiva/backhaul/pkg/cache"
	"github.com/shiva/backhaul/pkg/db"
	"github.com/shiva/backhaul/pkg/logger"
)

func main() {
	// ── Load configuration ──────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	// ── Connect to PostgreSQL ───────────────────────────
	pgPool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgPool.Close()
	log.Info("postgres connected", zap.String("host", cfg.Postgres.Host))

	// ── Connect to Redis ────────────────────────────────
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("redis connected", zap.String("addr", cfg.Redis.Addr()))

	// ── Geocoding ───────────────────────────────────────
	provider, err := geocode.NewGoogleGeocoder(cfg.Geocoder)
	if err != nil {
		log.Fatal("failed to create geocoder", zap.Error(err))
	}
	cached := geocode.NewCachedGeocoder(provider, cfg.Geocoder.CacheSize, cfg.Geocoder.CacheTTL,
		redisClient, cfg.Geocoder.RedisTTL, log)
	resolver := geocode.NewResolver(cached, log)

	// ── Initialize layers ───────────────────────────────
	tripRepo := repository.NewTripRepository(pgPool)
	loadRepo := repository.NewLoadRepository(pgPool)
	companyRepo := repository.NewCompanyRepository(pgPool)
	suggestionRepo := repository.NewSuggestionRepository(pgPool)

	costs := service.NewCostEstimator(cfg.Matching.FuelCostPerMile, cfg.Matching.AvgMilesPerDay)
	matchingSvc := service.NewMatchingService(tripRepo, loadRepo, companyRepo, suggestionRepo, resolver, costs,
		service.MatchingOptions{
			SuggestionTTL: cfg.Matching.SuggestionTTL,
			MaxResults:    cfg.Matching.MaxResults,
			Workers:       cfg.Matching.Workers,
		}, log)
	suggestionSvc := service.NewSuggestionService(suggestionRepo, log)
	visibilitySvc := service.NewVisibilityService(visibilityStore{tripRepo, companyRepo}, companyRepo, log)

	matchHandler := handler.NewMatchHandler(matchingSvc, cfg.Matching.Preferences(), log)
	suggestionHandler := handler.NewSuggestionHandler(suggestionSvc, log)
	visibilityHandler := handler.NewVisibilityHandler(visibilitySvc, log)
	costHandler := handler.NewCostHandler(costs)

	// ── Setup router ────────────────────────────────────
	router := mux.NewRouter()
	router.Use(middleware.Recoverer(log), middleware.RequestLogger(log))

	router.HandleFunc("/health", healthHandler(pgPool, redisClient)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// API v1 routes.
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/trips/{trip_id}/matches", matchHandler.RunMatches).Methods(http.MethodPost)
	api.HandleFunc("/trips/{trip_id}/suggestions", suggestionHandler.ListSuggestions).Methods(http.MethodGet)
	api.HandleFunc("/trips/{trip_id}/visibility", visibilityHandler.GetVisibility).Methods(http.MethodGet)
	api.HandleFunc("/suggestions/{id}/status", suggestionHandler.UpdateStatus).Methods(http.MethodPost)
	api.HandleFunc("/costs/estimate", costHandler.EstimateCost).Methods(http.MethodPost)

	// ── Start HTTP server ───────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.ServerAddr(),
		Handler:      middleware.CORS(router),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// ── Graceful shutdown ───────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("server stopped", zap.Int("geocode_cache_entries", cached.Len()))
}

// visibilityStore joins the trip and company repositories.
type visibilityStore struct {
	*repository.TripRepository
	*repository.CompanyRepository
}

// HealthResponse represents the /health endpoint response.
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// healthHandler returns an HTTP handler that checks PG and Redis connectivity.
func healthHandler(pgPool *pgxpool.Pool, redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{
			Status:   "ok",
			Services: make(map[string]string),
		}

		if err := db.HealthCheck(r.Context(), pgPool); err != nil {
			resp.Status = "degraded"
			resp.Services["postgres"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["postgres"] = "healthy"
		}

		if err := cache.HealthCheck(r.Context(), redisClient); err != nil {
			resp.Status = "degraded"
			resp.Services["redis"] = "unhealthy: " + err.Error()
		} else {
			resp.Services["redis"] = "healthy"
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(resp)
	}
}
