package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"identra.org/internal/authz"
	"identra.org/internal/config"
	"identra.org/internal/httpapi"
	"identra.org/internal/notify"
	"identra.org/internal/obs"
	"identra.org/internal/revoke"
	"identra.org/internal/store/pg"
	"identra.org/internal/token"
	"identra.org/internal/twofactor"
	"identra.org/internal/user"
)

var version = "0.3.0"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("IDENTRA_PG_DSN must be set")
	}

	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	codec, err := token.NewCodec(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	challenge, err := twofactor.NewChallenge(cfg.EncryptionSecret, "identra")
	if err != nil {
		log.Fatalf("twofactor: %v", err)
	}

	registry := revoke.NewMemoryRegistry(time.Minute)
	defer registry.Close()

	catalog := pg.NewCatalog(store)
	userStore := pg.NewUsers(store)

	resolver, err := authz.NewResolver(catalog)
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}
	users, err := user.NewService(userStore, catalog, resolver, codec, registry)
	if err != nil {
		log.Fatalf("user service: %v", err)
	}

	api, err := httpapi.New(httpapi.Options{
		Config:    cfg,
		Users:     users,
		UserStore: userStore,
		Catalog:   catalog,
		Resolver:  resolver,
		Codec:     codec,
		Registry:  registry,
		Challenge: challenge,
		Notifier:  notify.LogNotifier{},
		Ready:     store.Ping,
	})
	if err != nil {
		log.Fatalf("httpapi: %v", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting identra-api %s on %s", version, srv.Addr)

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
	log.Println("Stopped")
}
