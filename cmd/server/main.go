package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webstore/config"
	"webstore/internal/api"
	"webstore/internal/service"
	"webstore/internal/store"
	"webstore/internal/util"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting webstore service")

	tp, err := util.InitTracer("webstore", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	catalogStore, err := store.NewCatalogStore(cfg.Data.CatalogFile)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	log.Printf("Catalog loaded from %s", cfg.Data.CatalogFile)

	userStore, err := store.NewUserStore(cfg.Data.UsersFile, cfg.Data.AdminsFile, cfg.Security.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to load accounts: %v", err)
	}
	log.Printf("Accounts loaded from %s", cfg.Data.Dir)

	catalogService := service.NewCatalogService(catalogStore)
	cartService := service.NewCartService(catalogStore, userStore, cfg.Business)
	authService := service.NewAuthService(userStore, cfg.Security.BcryptCost)
	reportService := service.NewReportService(catalogStore, userStore)

	sessions := api.NewSessionTable(time.Duration(cfg.Security.SessionTTLHours) * time.Hour)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(catalogService, cartService, authService, reportService, sessions)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
