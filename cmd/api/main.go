package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"ward27.org/internal/auth"
	"ward27.org/internal/config"
	"ward27.org/internal/httpapi"
	"ward27.org/internal/identity"
	"ward27.org/internal/media"
	"ward27.org/internal/obs"
	"ward27.org/internal/registry"
	"ward27.org/internal/rolecache"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(version, commit)

	db, err := sql.Open("pgx", cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLife)

	users := identity.NewPGStore(db)
	verifier, err := identity.NewVerifier(users)
	if err != nil {
		log.Fatalf("identity: %v", err)
	}

	// Role cache: Redis when configured, process-local otherwise.
	var backend rolecache.Backend
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		backend, err = rolecache.NewRedisBackend(client)
		if err != nil {
			log.Fatalf("rolecache: %v", err)
		}
	} else {
		backend = rolecache.NewMemoryBackend()
	}
	roles, err := rolecache.New(users, backend, rolecache.WithTTL(cfg.RoleCacheTTL))
	if err != nil {
		log.Fatalf("rolecache: %v", err)
	}

	signer, err := auth.NewSigner(cfg.AuthSecret, cfg.Issuer, cfg.Audiences,
		auth.WithAccessTTL(cfg.AccessTokenTTL))
	if err != nil {
		log.Fatalf("signer: %v", err)
	}
	tokens, err := auth.NewTokenManager(auth.NewPGTokenStore(db),
		auth.WithRefreshTTL(cfg.RefreshTokenTTL),
		auth.WithRememberMeTTL(cfg.RememberMeTTL))
	if err != nil {
		log.Fatalf("tokens: %v", err)
	}
	authSvc, err := auth.NewService(verifier, roles, signer, tokens)
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	registrySvc, err := registry.NewService(registry.NewPGStore(db))
	if err != nil {
		log.Fatalf("registry: %v", err)
	}

	uploader, err := media.NewDiskUploader(cfg.FilesDir, "/files")
	if err != nil {
		log.Fatalf("media: %v", err)
	}
	mediaSvc, err := media.NewService(media.NewPGStore(db), uploader)
	if err != nil {
		log.Fatalf("media: %v", err)
	}

	api := httpapi.New(httpapi.Deps{
		Auth:     authSvc,
		Signer:   signer,
		Registry: registrySvc,
		Media:    mediaSvc,
		Roles:    roles,
		Ready:    httpapi.ReadyProbe{DB: db},
		Version:  version,
		FilesDir: cfg.FilesDir,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting ward27-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = db.Close()
	log.Println("Stopped")
}
