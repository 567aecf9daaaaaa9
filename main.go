package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github/itish2003/docsearch/config"
	"github/itish2003/docsearch/controller"
	"github/itish2003/docsearch/services"
	"github/itish2003/docsearch/store"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services.SetPDFLicense(cfg.UnidocLicenseKey)

	// The service does not start without a reachable vector store.
	vectorStore, err := store.Open(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("FATAL: Failed to connect to %s vector store: %v", cfg.Store.Type, err)
	}
	defer func() {
		if err := vectorStore.Close(); err != nil {
			log.Printf("Warning: Failed to close vector store: %v", err)
		}
	}()
	log.Printf("Connected to %s, collection '%s' (%d dimensions).",
		cfg.Store.Type, cfg.Store.Collection, cfg.Store.Dimension)

	embedder, err := services.NewEmbedder(ctx, cfg.Embedder, cfg.Store.Dimension)
	if err != nil {
		log.Fatalf("FATAL: Failed to create %s embedder: %v", cfg.Embedder.Type, err)
	}

	documentService := services.NewDocumentService(embedder, services.NewPDFExtractor(), vectorStore)
	folderIndexer := services.NewFolderIndexer(documentService)

	if cfg.WatchPath != "" {
		go func() {
			if err := folderIndexer.WatchDirectory(ctx, cfg.WatchPath); err != nil {
				log.Printf("WATCHER ERROR: %v", err)
			}
		}()
	}

	router := gin.Default()
	controller.NewDocumentController(documentService, folderIndexer).Register(router)
	router.GET("/health", controller.NewHealthController(vectorStore).Health)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Go Gin backend server starting on http://localhost:%s", cfg.Port)
		log.Printf("Health check available at: http://localhost:%s/health", cfg.Port)
		log.Printf("API endpoints:")
		log.Printf("  POST http://localhost:%s/documents/", cfg.Port)
		log.Printf("  POST http://localhost:%s/documents/pdf/", cfg.Port)
		log.Printf("  GET  http://localhost:%s/documents/{doc_id}", cfg.Port)
		log.Printf("  POST http://localhost:%s/search/", cfg.Port)
		log.Printf("  POST http://localhost:%s/index-folder/", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: Server shutdown failed: %v", err)
	}
}
