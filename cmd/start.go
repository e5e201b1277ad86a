/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tieubaoca/embedding-be/config"
	"github.com/tieubaoca/embedding-be/handler"
	"github.com/tieubaoca/embedding-be/middleware"
	"github.com/tieubaoca/embedding-be/service"
)

// startServerCmd represents the startServer command
var startServerCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the embedding server",
	Long:  `Starts the HTTP server that accepts document uploads and search queries`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		ctx := context.Background()

		embeddingService, documentService, store, err := buildPipeline(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize pipeline: %v", err)
		}

		jobService := service.NewJobService(time.Duration(cfg.JobTTLMinutes) * time.Minute)
		jobService.StartSweeper(ctx)

		pool := service.NewWorkerPool(cfg.WorkerCount, cfg.MaxQueueSize)
		pool.Start(ctx)
		defer pool.Stop()

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		healthHandler := handler.NewHealthHandler(store)
		extractHandler := handler.NewExtractHandler(documentService, embeddingService)
		uploadHandler := handler.NewUploadHandler(embeddingService, jobService, pool)
		documentHandler := handler.NewDocumentHandler(embeddingService)
		searchHandler := handler.NewSearchHandler(embeddingService)
		jobHandler := handler.NewJobHandler(jobService)

		// Setup Gin router
		router := gin.Default()

		// Apply global middleware
		router.Use(corsHandler.CorsMiddleware)

		router.GET("/health", healthHandler.HandleHealth)

		apiV1 := router.Group("/api/v1")
		{
			apiV1.POST("/extract", extractHandler.HandleExtract)
			apiV1.GET("/documents/search", searchHandler.HandleSearch)
		}

		// Admin routes - require admin authentication
		adminRoutes := router.Group("/admin/api/v1")
		adminRoutes.Use(middleware.AdminAuthMiddleware())
		{
			adminRoutes.POST("/documents/upload", uploadHandler.UploadDocumentHandler)
			adminRoutes.POST("/documents/upload-textbook", uploadHandler.UploadTextbookHandler)
			adminRoutes.POST("/documents/batch-upload", uploadHandler.BatchUploadDocumentHandler)
			adminRoutes.DELETE("/documents/:id", documentHandler.DeleteDocumentHandler)
			adminRoutes.GET("/documents/:id/metadata", documentHandler.DocumentMetadataHandler)
			adminRoutes.GET("/collection/info", documentHandler.CollectionInfoHandler)
			adminRoutes.GET("/jobs/:id", jobHandler.JobStatusHandler)
			adminRoutes.GET("/jobs/:id/ws", jobHandler.JobStreamHandler)
		}

		log.Printf("Starting server on port %s...\n", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startServerCmd)
	startServerCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
}
