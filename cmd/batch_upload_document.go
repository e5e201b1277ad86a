/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"context"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tieubaoca/embedding-be/config"
	"github.com/tieubaoca/embedding-be/utils"
)

// batchUploadDocumentCmd represents the batchUploadDocument command
var batchUploadDocumentCmd = &cobra.Command{
	Use:   "batch-upload-document",
	Short: "Process every supported document in a directory",
	Long: `Walks a directory and runs the full pipeline on every supported
file, processing several documents in parallel.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		directory, _ := cmd.Flags().GetString("directory")
		metadata, _ := cmd.Flags().GetString("metadata")
		if directory == "" {
			log.Fatal("--directory is required")
		}

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		ctx := context.Background()
		embeddingService, _, _, err := buildPipeline(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize pipeline: %v", err)
		}

		entries, err := os.ReadDir(directory)
		if err != nil {
			log.Fatalf("Failed to read directory: %v", err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(cfg.WorkerCount)

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if utils.MIMETypeFromFilename(name) == "" {
				log.Printf("Skipping unsupported file %s", name)
				continue
			}
			filePath := filepath.Join(directory, name)
			g.Go(func() error {
				content, err := os.ReadFile(filePath)
				if err != nil {
					log.Printf("Failed to read %s: %v", filePath, err)
					return nil
				}
				result, err := embeddingService.ProcessDocument(gctx, content, name, metadata, nil)
				if err != nil {
					log.Printf("Failed to process %s: %v", filePath, err)
					return nil
				}
				log.Printf("Stored %d chunks for %s (document %s)", len(result.Chunks), name, result.DocumentID)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			log.Fatalf("Batch upload failed: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(batchUploadDocumentCmd)

	batchUploadDocumentCmd.Flags().StringP("directory", "d", "", "Directory containing the documents")
	batchUploadDocumentCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
	batchUploadDocumentCmd.Flags().StringP("metadata", "m", "", "Extra metadata attached to every chunk (JSON object)")
}
