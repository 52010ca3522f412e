package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	"github.com/goliatone/go-jwtguard"
	"github.com/goliatone/go-jwtguard/cache"
	"github.com/goliatone/go-jwtguard/cache/bunstore"
	"github.com/goliatone/go-jwtguard/cache/redisstore"
	mguard "github.com/goliatone/go-jwtguard/middleware/guard"
	"github.com/goliatone/go-jwtguard/provider/auth0"
)

type serverConfig struct {
	Addr        string `env:"HTTP_ADDR" envDefault:":8080"`
	SQLiteDSN   string `env:"CACHE_SQLITE_DSN"`
	PassThrough bool   `env:"JWT_PASS_THROUGH" envDefault:"false"`
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(logger); err != nil {
		logger.Fatal("jwtguard demo failed", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := auth0.LoadConfig(".env")
	if err != nil {
		return err
	}

	srvCfg, err := env.ParseAs[serverConfig]()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore(ctx, srvCfg)
	if err != nil {
		return err
	}
	defer closeStore()

	log := jwtguard.NewZapLogger(logger)

	verifier, err := auth0.NewVerifier(cfg, store, auth0.WithLogger(log))
	if err != nil {
		return err
	}

	mode := mguard.ModeReject
	if srvCfg.PassThrough {
		mode = mguard.ModePassThrough
	}

	g := mguard.New(mguard.Config{
		Verifier:  verifier,
		Projector: jwtguard.NewProjector(jwtguard.ProjectNamespaced, cfg.Namespace),
		Mode:      mode,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              srvCfg.Addr,
		Handler:           routes(g, cfg.Namespace),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", srvCfg.Addr), zap.String("mode", mode.String()))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func routes(g *mguard.Guard, namespace string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	r.With(g.RequireScope("profile:read")).Get("/me", func(w http.ResponseWriter, r *http.Request) {
		claims, _ := jwtguard.GetClaims(r.Context())
		profile, err := auth0.NewProfile(claims, namespace)
		if err != nil {
			mguard.WriteError(w, http.StatusInternalServerError, "unable to decode profile")
			return
		}
		writeJSON(w, map[string]any{
			"subject":     profile.Subject,
			"email":       profile.Email,
			"permissions": profile.Permissions,
			"custom":      profile.Custom,
		})
	})

	r.Route("/inventory", func(r chi.Router) {
		r.Use(g.ProjectFields("dealer_id:user_id"))

		r.With(g.RequireScope("inventory:get")).Get("/", func(w http.ResponseWriter, r *http.Request) {
			claims, _ := jwtguard.GetClaims(r.Context())
			dealer, _ := jwtguard.Field(r.Context(), "jwt.namespace.dealer_id")
			writeJSON(w, map[string]any{
				"subject": claims.Subject(),
				"dealer":  dealer,
			})
		})

		r.With(g.RequireScope("inventory:post")).Post("/", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusCreated)
		})
	})

	return r
}

func openStore(ctx context.Context, cfg serverConfig) (cache.Repository, func(), error) {
	if _, ok := os.LookupEnv("REDIS_URL"); ok {
		redisCfg, err := env.ParseAs[redisstore.Config]()
		if err != nil {
			return nil, nil, err
		}
		client, err := redisstore.Connect(ctx, redisCfg)
		if err != nil {
			return nil, nil, err
		}
		store := redisstore.NewStoreWithConfig(client, redisCfg)
		return store, func() { _ = store.Close() }, nil
	}

	if cfg.SQLiteDSN != "" {
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		db := bun.NewDB(sqldb, sqlitedialect.New())
		store := bunstore.NewStore(db)
		if err := store.CreateTable(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	}

	return cache.NewMemoryStore(nil), func() {}, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}
