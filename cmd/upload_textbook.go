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
	"github.com/tieubaoca/embedding-be/service"
	"github.com/tieubaoca/embedding-be/types"
	"github.com/tieubaoca/embedding-be/utils"
)

// uploadTextbookCmd represents the uploadTextbook command
var uploadTextbookCmd = &cobra.Command{
	Use:   "upload-textbook",
	Short: "Process a textbook PDF with filename-derived metadata",
	Long: `Processes a textbook PDF named after the convention
TYPE_SUBJECT_PUBLISHER_GRADE.pdf (for example SGK_TIN_CD_3.pdf) and
attaches the derived book metadata to every chunk.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		filePath, _ := cmd.Flags().GetString("file")
		metadata, _ := cmd.Flags().GetString("metadata")
		bookName, _ := cmd.Flags().GetString("book-name")
		publisher, _ := cmd.Flags().GetString("publisher")
		grade, _ := cmd.Flags().GetString("grade")
		productName, _ := cmd.Flags().GetString("product-name")
		if filePath == "" {
			log.Fatal("--file is required")
		}
		if bookName == "" || publisher == "" {
			log.Fatal("--book-name and --publisher are required")
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

		filename := filepath.Base(filePath)
		if !service.MatchesTextbookNaming(filename) {
			log.Printf("%q does not start with a SGK_/SBT_/STK_ code, filename-derived fields will be empty", filename)
		}

		info := types.TextbookInfo{
			BookName:    bookName,
			Publisher:   publisher,
			Grade:       grade,
			ProductName: productName,
		}
		progress := func(stage string, p float64) {
			log.Printf("[%3.0f%%] %s", p*100, stage)
		}
		result, err := embeddingService.ProcessTextbook(ctx, content, filename, info, metadata, progress)
		if err != nil {
			log.Fatalf("Failed to process textbook: %v", err)
		}

		ocrPages := 0
		for _, page := range result.PageInfo {
			if page.OCRUsed {
				ocrPages++
			}
		}
		log.Printf("Book: %s", result.Book.FullName)
		log.Printf("Stored %d chunks over %d pages (%d via OCR) for document %s",
			len(result.Chunks), len(result.PageInfo), ocrPages, result.DocumentID)

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
	rootCmd.AddCommand(uploadTextbookCmd)

	uploadTextbookCmd.Flags().StringP("file", "f", "", "Path to the textbook PDF")
	uploadTextbookCmd.Flags().StringP("config", "c", "config/config.yaml", "config file")
	uploadTextbookCmd.Flags().StringP("metadata", "m", "", "Extra metadata attached to every chunk (JSON object)")
	uploadTextbookCmd.Flags().String("book-name", "", "Display name of the book, overrides the filename-derived name")
	uploadTextbookCmd.Flags().String("publisher", "", "Publisher label, overrides the filename-derived publisher")
	uploadTextbookCmd.Flags().String("grade", "", "Grade label, overrides the filename-derived grade")
	uploadTextbookCmd.Flags().String("product-name", "", "Product label stored on every chunk, defaults to the book name")
}
