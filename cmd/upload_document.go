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

	"github.com/tieubaoca/embedding-be/config"
	"github.com/tieubaoca/embedding-be/utils"
)

// uploadDocumentCmd represents the uploadDocument command
var uploadDocumentCmd = &cobra.Command{
	Use:   "upload-document",
	Short: "Process a single document and store its chunks",
	Long: `Extracts text from a document, splits it into overlapping chunks,
embeds them and stores the result in Weaviate.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		filePath, _ := cmd.Flags().GetString("file")
		metadata, _ := cmd.Flags().GetString("metadata")
		if filePath == "" {
			log.Fatal("--file is required")
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

		content, err := os.ReadFile(filePath)
		if err != nil {
			log.Fatalf("Failed to read file: %v", err)
		}

		progress := func(stage string, p float64) {
			log.Printf("[%3.0f%%] %s", p*100, stage)
		}
		result, err := embeddingService.ProcessDocument(ctx, content, filepath.Base(filePath), metadata, progress)
		if err != nil {
			log.Fatalf("Failed to process document: %v", err)
		}

		log.Printf("Stored %d chunks for document %s", len(result.Chunks), result.DocumentID)

		if cfg.UploadDir != "" {
			archived, err := utils.CopyFileWithTimestamp(filePath, cfg.UploadDir)
			if err != nil {
				log.Printf("Failed to archive file: %v", err)
			} else {
				log.Printf("Archived file to %s", archived)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(uploadDocumentCmd)

	uploadDocumentCmd.Flags().StringP("file", "f", "", "Path to the file to upload")
	uploadDocumentCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
	uploadDocumentCmd.Flags().StringP("metadata", "m", "", "Extra metadata attached to every chunk (JSON object)")
}
