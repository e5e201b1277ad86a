package cmd

import (
	"context"
	"fmt"

	"github.com/tieubaoca/embedding-be/config"
	"github.com/tieubaoca/embedding-be/database"
	"github.com/tieubaoca/embedding-be/service"
	"github.com/tieubaoca/embedding-be/types"
)

// buildPipeline wires the processing services from config. Every
// command that touches documents goes through here.
func buildPipeline(ctx context.Context, cfg *config.Config) (*service.EmbeddingService, *service.DocumentService, database.VectorDatabase, error) {
	ocrService := service.NewOCRService(cfg.OCR.Enhance)
	documentService := service.NewDocumentService(ocrService, cfg.OCR.Language)
	chunker := service.NewChunker(types.DocumentServiceConfig{
		ChunkSize:      cfg.ChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap,
		MinChunkLength: cfg.MinChunkLength,
	})

	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	weaviateDb, err := database.NewWeaviateStore(cfg.WeaviateStoreConfig)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to Weaviate database: %w", err)
	}

	embeddingService := service.NewEmbeddingService(
		documentService,
		chunker,
		embedder,
		weaviateDb,
		cfg.MaxFileSizeMB,
		cfg.SupportedFileTypes,
	)
	return embeddingService, documentService, weaviateDb, nil
}

func newEmbedder(ctx context.Context, cfg *config.Config) (service.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "gemini":
		return service.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.Embedding.Model)
	case "openai", "":
		return service.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.Embedding.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Embedding.Provider)
	}
}
